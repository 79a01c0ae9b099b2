package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType discriminates the failure reasons surfaced by the voting engine.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeExpired     ErrorType = "expired"
	ErrorTypeIneligible  ErrorType = "ineligible"
	ErrorTypeLockTimeout ErrorType = "lock_timeout"
	ErrorTypeInternal    ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// PublicMessage returns the message safe to show to callers. Lock-timeout and
// internal failures are replaced by a generic message so responses never leak
// lock or storage details.
func (e *AppError) PublicMessage() string {
	switch e.Type {
	case ErrorTypeLockTimeout:
		return "system busy, please retry"
	case ErrorTypeInternal:
		return "an internal error occurred"
	default:
		return e.Message
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewConflictError creates a new conflict error (duplicate open round for an
// applicant, duplicate ballot for a voter)
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewExpiredError creates an error for ballots submitted past the deadline
func NewExpiredError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeExpired,
		Message:    message,
		StatusCode: http.StatusGone,
	}
}

// NewIneligibleError creates an error for voters outside the frozen snapshot
func NewIneligibleError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeIneligible,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewLockTimeoutError creates an error for exclusive-lock acquisition timeouts
func NewLockTimeoutError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeLockTimeout,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// AsAppError unwraps err into an *AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == t
}
