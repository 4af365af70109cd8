package devbackend

import (
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"mvp/internal/observability"
)

// ContextMiddleware copies the request id and, for requests carrying a valid
// access token, the user id into the request context for the logger.
func (s *Server) ContextMiddleware(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		ctx = observability.WithCorrelationID(ctx, rid)
	}
	if sub, err := s.bearerSubject(c); err == nil {
		ctx = observability.WithUserID(ctx, sub)
	}
	c.SetUserContext(ctx)
	return c.Next()
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			// render the error now so the logged status is the final one
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			logger.WarnContext(c.UserContext(), "request failed", fields...)
		} else {
			logger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return nil
	}
}

// RequireAPIKey rejects requests without the configured anon key in the
// apikey header or query parameter.
func (s *Server) RequireAPIKey(c *fiber.Ctx) error {
	key := c.Get("apikey")
	if key == "" {
		key = c.Query("apikey")
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.config.BackendAnonKey)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid API key",
			"hint":    "Double check the apikey header",
		})
	}
	return c.Next()
}
