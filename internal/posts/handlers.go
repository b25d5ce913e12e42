package posts

import (
	"errors"

	"backend-socialmedia/internal/auth"
	"backend-socialmedia/internal/media"
	"backend-socialmedia/internal/response"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Caption and post image is required")
		}
		post, err := svc.Create(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return httpError(err, "")
		}
		return response.Success(c, fiber.StatusOK, fiber.Map{"post": post})
	})

	r.Post("/like", authMiddleware, func(c *fiber.Ctx) error {
		var req LikeRequest
		if err := response.ParseBody(c, &req); err != nil {
			return err
		}
		view, err := svc.LikeOrUnlike(c.UserContext(), auth.UserID(c), req.PostID)
		if err != nil {
			return httpError(err, "")
		}
		return response.Success(c, fiber.StatusOK, fiber.Map{"post": view})
	})

	r.Put("/", authMiddleware, func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := response.ParseBody(c, &req); err != nil {
			return err
		}
		post, err := svc.Update(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return httpError(err, "Only owners can update their post")
		}
		return response.Success(c, fiber.StatusOK, fiber.Map{"post": post})
	})

	r.Delete("/", authMiddleware, func(c *fiber.Ctx) error {
		var req DeleteRequest
		if err := response.ParseBody(c, &req); err != nil {
			return err
		}
		if err := svc.Delete(c.UserContext(), auth.UserID(c), req.PostID); err != nil {
			return httpError(err, "Only owners can delete their posts")
		}
		return response.Success(c, fiber.StatusOK, "post deleted successfully")
	})
}

func httpError(err error, forbidden string) error {
	switch {
	case errors.Is(err, ErrMissingContent):
		return fiber.NewError(fiber.StatusBadRequest, "Caption and post image is required")
	case errors.Is(err, ErrMissingPostID):
		return fiber.NewError(fiber.StatusBadRequest, "postId is required")
	case errors.Is(err, media.ErrInvalidImage):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid image data")
	case errors.Is(err, ErrPostNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Post not found")
	case errors.Is(err, ErrNotOwner):
		return fiber.NewError(fiber.StatusForbidden, forbidden)
	default:
		return err
	}
}
