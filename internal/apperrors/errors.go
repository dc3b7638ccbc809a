// Package apperrors gives every HTTP handler in internal/httpapi a
// uniform error shape: a classified AppError plus a Handler that writes
// it as a JSON envelope.
package apperrors

import "net/http"

// Type classifies an AppError for logging and for the wire envelope.
type Type string

const (
	TypeValidation     Type = "validation"
	TypeNotFound       Type = "not_found"
	TypeAuthentication Type = "authentication"
	TypeInternal       Type = "internal"
)

// AppError is the error type every handler in internal/httpapi returns.
type AppError struct {
	Type       Type
	Code       string
	Message    string
	StatusCode int
	Details    map[string]any
	cause      error
}

func (e *AppError) Error() string { return e.Message }

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *AppError) Unwrap() error { return e.cause }

// Wrap attaches an underlying cause without changing the public message.
func (e *AppError) Wrap(err error) *AppError {
	e.cause = err
	return e
}

func newError(t Type, status int, code, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: status}
}

// ValidationErrorf builds a 400 validation error.
func ValidationErrorf(code, message string) *AppError {
	return newError(TypeValidation, http.StatusBadRequest, code, message)
}

// NotFoundErrorf builds a 404 not-found error.
func NotFoundErrorf(code, message string) *AppError {
	return newError(TypeNotFound, http.StatusNotFound, code, message)
}

// AuthenticationErrorf builds a 401 authentication error.
func AuthenticationErrorf(code, message string) *AppError {
	return newError(TypeAuthentication, http.StatusUnauthorized, code, message)
}

// InternalErrorf builds a 500 internal error.
func InternalErrorf(code, message string) *AppError {
	return newError(TypeInternal, http.StatusInternalServerError, code, message)
}
