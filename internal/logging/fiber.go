package logging

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const HeaderRequestID = "X-Request-ID"

// FiberMiddleware tags every request with an X-Request-ID, stores a child
// logger carrying the request metadata in the user context and logs the
// completed request.
func FiberMiddleware(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		child := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Method()).
			Str(FieldPath, c.Path()).
			Str(FieldClientIP, c.IP()).
			Logger()

		c.Set(HeaderRequestID, reqID)
		c.SetUserContext(WithLogger(c.UserContext(), child))

		err := c.Next()

		evt := child.Info().
			Int(FieldStatus, statusOf(c, err)).
			Float64(FieldLatency, float64(time.Since(start).Milliseconds()))
		if userID, ok := c.Locals(FieldUserID).(string); ok && userID != "" {
			evt = evt.Str(FieldUserID, userID)
		}
		evt.Msg("request completed")

		return err
	}
}

// statusOf reports the logical status of the request. Errors are rendered
// later by the app error handler, so they are inspected directly.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
