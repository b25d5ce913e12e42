package users

import (
	"errors"

	"backend-socialmedia/internal/auth"
	"backend-socialmedia/internal/media"
	"backend-socialmedia/internal/response"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the user routes. clearSession runs after a
// successful profile deletion to drop the refresh cookie.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, clearSession func(*fiber.Ctx)) {
	r.Post("/follow", authMiddleware, func(c *fiber.Ctx) error {
		var req FollowRequest
		if err := response.ParseBody(c, &req); err != nil {
			return err
		}
		user, err := svc.FollowOrUnfollow(c.UserContext(), auth.UserID(c), req.UserIDToFollow)
		if err != nil {
			return httpError(err)
		}
		return response.Success(c, fiber.StatusOK, fiber.Map{"user": user})
	})

	r.Get("/getFeedData", authMiddleware, func(c *fiber.Ctx) error {
		feed, err := svc.Feed(c.UserContext(), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return response.Success(c, fiber.StatusOK, feed)
	})

	r.Get("/getMyPosts", authMiddleware, func(c *fiber.Ctx) error {
		list, err := svc.MyPosts(c.UserContext(), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return response.Success(c, fiber.StatusOK, fiber.Map{"allUserPosts": list})
	})

	r.Get("/getUserPosts", authMiddleware, func(c *fiber.Ctx) error {
		userID := c.Query("userId")
		if userID == "" {
			var req UserIDRequest
			if err := response.ParseBody(c, &req); err != nil {
				return err
			}
			userID = req.UserID
		}
		list, err := svc.UserPosts(c.UserContext(), auth.UserID(c), userID)
		if err != nil {
			return httpError(err)
		}
		return response.Success(c, fiber.StatusOK, fiber.Map{"allUserPosts": list})
	})

	r.Delete("/", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteProfile(c.UserContext(), auth.UserID(c)); err != nil {
			return httpError(err)
		}
		if clearSession != nil {
			clearSession(c)
		}
		return response.Success(c, fiber.StatusOK, "User deleted successfully")
	})

	r.Get("/getMyInfo", authMiddleware, func(c *fiber.Ctx) error {
		user, err := svc.MyInfo(c.UserContext(), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return response.Success(c, fiber.StatusOK, fiber.Map{"user": user})
	})

	r.Put("/", authMiddleware, func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := response.ParseBody(c, &req); err != nil {
			return err
		}
		user, err := svc.UpdateProfile(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return httpError(err)
		}
		return response.Success(c, fiber.StatusOK, fiber.Map{"user": user})
	})

	r.Post("/getUserProfile", authMiddleware, func(c *fiber.Ctx) error {
		var req UserIDRequest
		if err := response.ParseBody(c, &req); err != nil {
			return err
		}
		profile, err := svc.UserProfile(c.UserContext(), auth.UserID(c), req.UserID)
		if err != nil {
			return httpError(err)
		}
		return response.Success(c, fiber.StatusOK, profile)
	})
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrMissingTarget):
		return fiber.NewError(fiber.StatusBadRequest, "userIdToFollow is required")
	case errors.Is(err, ErrMissingUserID):
		return fiber.NewError(fiber.StatusBadRequest, "userId is required")
	case errors.Is(err, media.ErrInvalidImage):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid image data")
	case errors.Is(err, ErrSelfFollow):
		return fiber.NewError(fiber.StatusConflict, "Users cannot follow themselves")
	case errors.Is(err, ErrTargetNotFound):
		return fiber.NewError(fiber.StatusNotFound, "User to follow not found")
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	default:
		return err
	}
}
