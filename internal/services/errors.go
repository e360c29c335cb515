// Package services holds the audit workflow between the HTTP/CLI layers and the
// analytics core: session lifecycle, the four analyses, flagging and result events.
package services

import (
	"errors"

	"github.com/soltixdb/airaudit/internal/analytics"
	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/downsampling"
	"github.com/soltixdb/airaudit/internal/ingest"
	"github.com/soltixdb/airaudit/internal/sessionstore"
)

// Error codes returned in ServiceError.Code
const (
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeChannelNotFound     = "CHANNEL_NOT_FOUND"
	CodeEmptyWindow         = "EMPTY_WINDOW"
	CodeEmptySeries         = "EMPTY_SERIES"
	CodeInvalidReference    = "INVALID_REFERENCE"
	CodeInsufficientSamples = "INSUFFICIENT_SAMPLES"
	CodeInvalidTime         = "INVALID_TIME"
	CodeInvalidFile         = "INVALID_FILE"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeStoreFailed         = "STORE_FAILED"
	CodeAnalysisFailed      = "ANALYSIS_FAILED"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	cause   error
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying error to errors.Is
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// wrapError classifies err by the sentinel it wraps
func wrapError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	code := CodeAnalysisFailed
	switch {
	case errors.Is(err, sessionstore.ErrNotFound):
		code = CodeSessionNotFound
	case errors.Is(err, analytics.ErrChannelNotFound):
		code = CodeChannelNotFound
	case errors.Is(err, analytics.ErrEmptyWindow):
		code = CodeEmptyWindow
	case errors.Is(err, analytics.ErrEmptySeries):
		code = CodeEmptySeries
	case errors.Is(err, analytics.ErrInvalidReference):
		code = CodeInvalidReference
	case errors.Is(err, analytics.ErrInsufficientSamples):
		code = CodeInsufficientSamples
	case errors.Is(err, dataset.ErrInvalidTime),
		errors.Is(err, dataset.ErrInvalidWindow),
		errors.Is(err, dataset.ErrInvalidAuditDate):
		code = CodeInvalidTime
	case errors.Is(err, ingest.ErrNoData),
		errors.Is(err, ingest.ErrNoTimeColumn),
		errors.Is(err, ingest.ErrMixedHeaders),
		errors.Is(err, ingest.ErrMixedDates):
		code = CodeInvalidFile
	case errors.Is(err, downsampling.ErrInvalidMode):
		code = CodeInvalidRequest
	}
	return &ServiceError{Code: code, Message: err.Error(), cause: err}
}
