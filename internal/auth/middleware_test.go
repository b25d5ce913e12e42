package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-socialmedia/internal/response"
	"backend-socialmedia/internal/store"

	"github.com/gofiber/fiber/v2"
)

func TestRequireUser(t *testing.T) {
	svc, users := newTestService(t, false)
	user, _ := users.CreateUser(context.Background(), store.User{Name: "Ann", Email: "ann@example.com"})

	app := fiber.New(fiber.Config{ErrorHandler: response.ErrorHandler})
	app.Get("/private", RequireUser(svc), func(c *fiber.Ctx) error {
		return response.Success(c, fiber.StatusOK, UserID(c))
	})

	valid, _ := svc.IssueAccessToken(user.ID)
	orphan, _ := svc.IssueAccessToken("deleted-user")
	refresh, _ := svc.IssueRefreshToken(context.Background(), user.ID)

	cases := []struct {
		name    string
		header  string
		code    int
		message string
	}{
		{"missing header", "", fiber.StatusUnauthorized, "Authorization header is required"},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized, "Authorization header is required"},
		{"bearer without token", "Bearer", fiber.StatusUnauthorized, "Invalid access key"},
		{"garbage token", "Bearer abc", fiber.StatusUnauthorized, "Invalid access key"},
		{"refresh token", "Bearer " + refresh, fiber.StatusUnauthorized, "Invalid access key"},
		{"deleted user", "Bearer " + orphan, fiber.StatusNotFound, "User not found"},
		{"valid", "Bearer " + valid, fiber.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			var env envelope
			decodeBody(t, resp, &env)
			if env.StatusCode != tc.code || env.Message != tc.message {
				t.Fatalf("unexpected envelope: %+v", env)
			}
			if tc.code == fiber.StatusOK && string(env.Data) != `"`+user.ID+`"` {
				t.Fatalf("expected user id in locals, got %s", env.Data)
			}
		})
	}
}
