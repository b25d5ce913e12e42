package auth

import (
	"errors"
	"strings"

	"backend-socialmedia/internal/logging"
	"backend-socialmedia/internal/store"

	"github.com/gofiber/fiber/v2"
)

// RequireUser validates the bearer access token, checks that its subject
// still exists and stores the id in locals under "user_id".
func RequireUser(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerFromHeader(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header is required")
		}

		userID, err := svc.VerifyAccessToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid access key")
		}
		if _, err := svc.users.UserByID(c.UserContext(), userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "User not found")
			}
			return err
		}

		c.Locals(logging.FieldUserID, userID)
		l := logging.Ctx(c.UserContext()).With().Str(logging.FieldUserID, userID).Logger()
		c.SetUserContext(logging.WithLogger(c.UserContext(), l))
		return c.Next()
	}
}

// UserID returns the id stored by RequireUser.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(logging.FieldUserID).(string)
	return id
}

func bearerFromHeader(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer") {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}
