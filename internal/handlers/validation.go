package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/logging"
	"github.com/soltixdb/airaudit/internal/models"
	"github.com/soltixdb/airaudit/internal/services"
	"github.com/soltixdb/airaudit/internal/utils"
)

// validationError collects every problem with a request before replying
type validationError struct {
	fields map[string]interface{}
}

func (v *validationError) add(field, problem string) {
	if v.fields == nil {
		v.fields = make(map[string]interface{})
	}
	v.fields[field] = problem
}

func (v *validationError) empty() bool {
	return len(v.fields) == 0
}

// checkClock validates an "hh:mm" time of day
func (v *validationError) checkClock(field, value string) {
	switch {
	case value == "":
		v.add(field, "is required")
	case !dataset.ClockPattern.MatchString(value):
		v.add(field, "must be hh:mm")
	}
}

// checkChannel validates that channel is one of the session's channels
func (v *validationError) checkChannel(channel string, channels []string) {
	if channel == "" {
		v.add("channel", "is required")
		return
	}
	for _, c := range channels {
		if c == channel {
			return
		}
	}
	v.add("channel", fmt.Sprintf("%q is not a column of this session", channel))
}

// parseConcentration accepts a positive JSON number or decimal string
func (v *validationError) parseConcentration(raw interface{}) float64 {
	if raw == nil {
		v.add("concentration", "is required")
		return 0
	}
	c, ok := utils.PositiveFloat64(raw)
	if !ok {
		v.add("concentration", "must be a positive decimal number")
		return 0
	}
	return c
}

func (v *validationError) respond(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:      services.CodeInvalidRequest,
			Message:   "request validation failed",
			RequestID: logging.RequestIDFromContext(c.UserContext()),
			Details:   v.fields,
		},
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:      services.CodeInvalidRequest,
			Message:   message,
			RequestID: logging.RequestIDFromContext(c.UserContext()),
		},
	})
}

// statusFor maps service error codes to HTTP status codes
func statusFor(code string) int {
	switch code {
	case services.CodeSessionNotFound:
		return fiber.StatusNotFound
	case services.CodeChannelNotFound,
		services.CodeInvalidTime,
		services.CodeInvalidFile,
		services.CodeInvalidRequest,
		services.CodeInvalidReference:
		return fiber.StatusBadRequest
	case services.CodeEmptyWindow,
		services.CodeEmptySeries,
		services.CodeInsufficientSamples:
		return fiber.StatusUnprocessableEntity
	case services.CodeStoreFailed:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *Handler) serviceError(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		svcErr = services.NewServiceError(services.CodeAnalysisFailed, err.Error())
	}
	status := statusFor(svcErr.Code)
	if status >= fiber.StatusInternalServerError {
		logging.FromContextOr(c.UserContext(), h.logger).Error("Request failed", "code", svcErr.Code, "error", err)
	}
	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:      svcErr.Code,
			Message:   svcErr.Message,
			RequestID: logging.RequestIDFromContext(c.UserContext()),
			Details:   svcErr.Details,
		},
	})
}
