package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/airaudit/internal/logging"
	"github.com/soltixdb/airaudit/internal/models"
)

// ErrorHandler renders errors that escape the handlers, including Fiber's own
// (oversized bodies, unknown methods) and recovered panics
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = logging.Global()
	}
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		}

		log := logging.FromContextOr(c.UserContext(), logger)
		fields := []interface{}{"path", c.Path(), "method", c.Method(), "status", status, "error", err}
		if status >= fiber.StatusInternalServerError {
			log.Error("Request error", fields...)
		} else {
			log.Warn("Request error", fields...)
		}

		return c.Status(status).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:      codeFor(status),
				Message:   message,
				Path:      c.Path(),
				RequestID: logging.RequestIDFromContext(c.UserContext()),
			},
		})
	}
}

func codeFor(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "INVALID_REQUEST"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case fiber.StatusRequestTimeout:
		return "TIMEOUT"
	}
	if status >= fiber.StatusInternalServerError {
		return "INTERNAL"
	}
	return "ERROR"
}
