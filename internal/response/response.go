// Package response renders the API envelope. Every response, successful or
// not, is sent with HTTP 200 and carries its logical status in the body.
package response

import (
	"errors"

	"backend-socialmedia/internal/logging"

	"github.com/gofiber/fiber/v2"
)

// LocalStatusCode is the c.Locals key holding the status code written
// into the envelope.
const LocalStatusCode = "envelope_status_code"

type Envelope struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Success writes a successful envelope.
func Success(c *fiber.Ctx, statusCode int, data any) error {
	c.Locals(LocalStatusCode, statusCode)
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Status:     "ok",
		StatusCode: statusCode,
		Data:       data,
	})
}

// Error writes an error envelope.
func Error(c *fiber.Ctx, statusCode int, message string) error {
	c.Locals(LocalStatusCode, statusCode)
	return c.Status(fiber.StatusOK).JSON(Envelope{
		Status:     "error",
		StatusCode: statusCode,
		Message:    message,
	})
}

// ErrorHandler renders any handler error, including unknown routes and
// recovered panics, as an error envelope. 5xx errors are logged.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		l := logging.Ctx(c.UserContext())
		l.Error().Err(err).Msg("request failed")
	}
	return Error(c, code, err.Error())
}

// ParseBody decodes the request body into out. A request without a body or
// without a content type leaves out untouched; anything else that fails to
// decode is a 400.
func ParseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		if errors.Is(err, fiber.ErrUnprocessableEntity) {
			return nil
		}
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return nil
}
