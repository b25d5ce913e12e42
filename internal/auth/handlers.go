package auth

import (
	"errors"
	"time"

	"backend-socialmedia/internal/logging"
	"backend-socialmedia/internal/response"

	"github.com/gofiber/fiber/v2"
)

const RefreshCookie = "jwt"

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Post("/signup", func(c *fiber.Ctx) error {
		var req SignupRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "All fields are required")
		}
		if err := svc.Signup(c.UserContext(), req); err != nil {
			return httpError(err)
		}
		return response.Success(c, fiber.StatusCreated, "User created Successfully")
	})

	r.Post("/login", func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "All fields are required")
		}
		access, refresh, err := svc.Login(c.UserContext(), req)
		if err != nil {
			return httpError(err)
		}
		svc.SetRefreshCookie(c, refresh)
		return response.Success(c, fiber.StatusOK, TokenResponse{AccessToken: access})
	})

	r.Post("/logout", func(c *fiber.Ctx) error {
		if err := svc.Logout(c.UserContext(), c.Cookies(RefreshCookie)); err != nil {
			l := logging.Ctx(c.UserContext())
			l.Warn().Err(err).Msg("revoke session on logout")
		}
		svc.ClearRefreshCookie(c)
		return response.Success(c, fiber.StatusOK, "User logged out")
	})

	refresh := func(c *fiber.Ctx) error {
		access, err := svc.Refresh(c.UserContext(), c.Cookies(RefreshCookie))
		if err != nil {
			return httpError(err)
		}
		return response.Success(c, fiber.StatusCreated, TokenResponse{AccessToken: access})
	}
	r.Get("/refresh", refresh)
	r.Post("/refresh", refresh)
}

func (s *Service) SetRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(s.cookie(token, int(RefreshTokenTTL.Seconds()), time.Time{}))
}

// ClearRefreshCookie expires the refresh cookie with the same attributes it
// was set with.
func (s *Service) ClearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(s.cookie("", 0, time.Unix(0, 0)))
}

func (s *Service) cookie(value string, maxAge int, expires time.Time) *fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if s.cookieSecure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return &fiber.Cookie{
		Name:     RefreshCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.cookieSecure,
		SameSite: sameSite,
	}
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrMissingFields):
		return fiber.NewError(fiber.StatusBadRequest, "All fields are required")
	case errors.Is(err, ErrAlreadyRegistered):
		return fiber.NewError(fiber.StatusConflict, "User is already registered")
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, "User is not found")
	case errors.Is(err, ErrIncorrectPassword):
		return fiber.NewError(fiber.StatusForbidden, "Incorrect Password")
	case errors.Is(err, ErrMissingRefreshAuth):
		return fiber.NewError(fiber.StatusUnauthorized, "Refresh token in cookie is required")
	case errors.Is(err, ErrInvalidToken):
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid refresh token")
	default:
		return err
	}
}
