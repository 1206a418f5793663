package domain

import (
	"errors"
	"fmt"
	"time"
)

// EngineError represents a standardized error response returned by the
// HTTP and MCP surfaces.
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`

	cause error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the error the EngineError was built from, if any.
func (e *EngineError) Unwrap() error {
	return e.cause
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrValidation     = "VALIDATION_ERROR"
	ErrPHIBlocked     = "PHI_DETECTED"
	ErrCheckFailed    = "CHECK_FAILED"
	ErrArchive        = "ARCHIVE_ERROR"
	ErrReportNotFound = "NOT_FOUND"
	ErrConfig         = "CONFIG_ERROR"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrTimeout        = "TIMEOUT"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   any `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details, requestID string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// WrapEngineError creates an EngineError whose details carry cause. The
// cause stays reachable through errors.Is and errors.As.
func WrapEngineError(code, message string, cause error) *EngineError {
	e := NewEngineError(code, message, "", "")
	if cause != nil {
		e.Details = cause.Error()
		e.cause = cause
	}
	return e
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// CodeFor maps an arbitrary error onto an error code.
func CodeFor(err error) string {
	var engineErr *EngineError
	var validationErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &engineErr):
		return engineErr.Code
	case errors.As(err, &validationErr):
		return ErrValidation
	case errors.Is(err, ErrNotFound):
		return ErrReportNotFound
	case errors.Is(err, ErrPHIDetected):
		return ErrPHIBlocked
	case errors.Is(err, ErrUnknownColumn), errors.Is(err, ErrInvalidKeep),
		errors.Is(err, ErrInvalidMethod), errors.Is(err, ErrInvalidRange), errors.Is(err, ErrEmptyTable):
		return ErrInvalidInput
	case errors.Is(err, ErrInvalidWeights):
		return ErrConfig
	default:
		return ErrInternalServer
	}
}
