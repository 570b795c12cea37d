package apperr

import (
	"errors"
	"fmt"
)

// Error codes
const (
	// Validation errors
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeMissingField     = "MISSING_FIELD"

	// Resource errors
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeConflict      = "CONFLICT"

	// External errors
	CodeDatabaseError = "DATABASE_ERROR"
	CodeModelError    = "MODEL_ERROR"
	CodeExternalError = "EXTERNAL_ERROR"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
	CodeTimeout       = "TIMEOUT"
)

// AppError represents a structured application error. Retryable marks
// errors that are worth re-running the job for; validation and
// not-found errors are permanent and retrying them just burns cycles.
type AppError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"-"`
	Details   map[string]any `json:"details,omitempty"`
	Err       error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// Constructor functions
func New(code, message string, retryable bool) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
}

func Wrap(err error, code, message string, retryable bool) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Err:       err,
	}
}

// Validation errors
func ValidationFailed(message string) *AppError {
	return &AppError{
		Code:    CodeValidationFailed,
		Message: message,
	}
}

func InvalidInput(field, reason string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: fmt.Sprintf("invalid input for '%s': %s", field, reason),
		Details: map[string]any{"field": field},
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// Resource errors
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code:    CodeAlreadyExists,
		Message: fmt.Sprintf("%s already exists", resource),
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

// External errors
func DatabaseError(operation string, err error) *AppError {
	return &AppError{
		Code:      CodeDatabaseError,
		Message:   fmt.Sprintf("database error: %s", operation),
		Retryable: true,
		Err:       err,
	}
}

func ModelError(tier string, err error) *AppError {
	return &AppError{
		Code:      CodeModelError,
		Message:   fmt.Sprintf("model call failed: %s", tier),
		Retryable: true,
		Details:   map[string]any{"tier": tier},
		Err:       err,
	}
}

func ExternalError(service string, err error) *AppError {
	return &AppError{
		Code:      CodeExternalError,
		Message:   fmt.Sprintf("external service error: %s", service),
		Retryable: true,
		Details:   map[string]any{"service": service},
		Err:       err,
	}
}

// Internal errors
func Internal(message string) *AppError {
	if message == "" {
		message = "internal error"
	}
	return &AppError{
		Code:      CodeInternalError,
		Message:   message,
		Retryable: true,
	}
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:      CodeInternalError,
		Message:   "internal error",
		Retryable: true,
		Err:       err,
	}
}

func ConfigError(message string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: message,
	}
}

func Timeout(operation string) *AppError {
	return &AppError{
		Code:      CodeTimeout,
		Message:   fmt.Sprintf("operation timed out: %s", operation),
		Retryable: true,
	}
}

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

// IsRetryable reports whether a job failing with err should be retried.
// Unclassified errors default to retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return true
}
