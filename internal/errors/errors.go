package errors

import "fmt"

// ErrorCode represents a NeverMiss error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"     // 400
	ErrInvalidTimezone    ErrorCode = "INVALID_TIMEZONE"    // 400
	ErrNotFound           ErrorCode = "NOT_FOUND"           // 404
	ErrUnverifiedDatetime ErrorCode = "UNVERIFIED_DATETIME" // 422
	ErrUpstream           ErrorCode = "UPSTREAM"            // 502
	ErrConfig             ErrorCode = "CONFIG"              // 500, fatal at startup
	ErrInternal           ErrorCode = "INTERNAL"            // 500
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidTimezone creates a 400 error for a missing, unknown, or universal-time zone.
func NewInvalidTimezone(zone, reason string) *Error {
	return &Error{
		Code:    ErrInvalidTimezone,
		Status:  400,
		Message: fmt.Sprintf("invalid timezone %q: %s", zone, reason),
		Details: map[string]any{"timezone": zone},
	}
}

// NewNotFound creates a 404 error for when a task or user cannot be found.
func NewNotFound(kind, identifier string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewUnverifiedDatetime creates a 422 error for a datetime the normalizer could not rebuild.
func NewUnverifiedDatetime(field, raw string) *Error {
	return &Error{
		Code:    ErrUnverifiedDatetime,
		Status:  422,
		Message: fmt.Sprintf("%s %q could not be normalized to the user's timezone", field, raw),
		Details: map[string]any{"field": field, "raw": raw},
	}
}

// NewUpstream creates a 502 error for language-model or transcription failures.
func NewUpstream(msg string, cause error) *Error {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		cause:   cause,
	}
}

// NewConfig creates an error for missing or invalid configuration.
func NewConfig(msg string) *Error {
	return &Error{
		Code:    ErrConfig,
		Status:  500,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	if nErr, ok := err.(*Error); ok {
		return nErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP-style status for err, 500 for foreign errors.
func StatusOf(err error) int {
	if nErr, ok := err.(*Error); ok {
		return nErr.Status
	}
	return 500
}
