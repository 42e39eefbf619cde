// Package apperr defines the error taxonomy shared by services and HTTP handlers.
// Every failure that crosses a handler boundary is an *Error carrying one flat Code;
// handlers translate the code to an HTTP status and never expose wrapped causes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error category
type Code string

const (
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeValidation   Code = "validation_error"
	CodeNotFound     Code = "not_found"
	CodeDatabase     Code = "database_error"
	CodeRateLimited  Code = "rate_limited"
	CodeStorage      Code = "storage_error"
	CodeTooLarge     Code = "payload_too_large"
	CodeUnavailable  Code = "service_unavailable"
	CodeServer       Code = "server_error"
)

// Sentinels for errors.Is checks. Any *Error with the same Code matches.
var (
	ErrUnauthorized = &Error{Code: CodeUnauthorized}
	ErrForbidden    = &Error{Code: CodeForbidden}
	ErrValidation   = &Error{Code: CodeValidation}
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrDatabase     = &Error{Code: CodeDatabase}
	ErrRateLimited  = &Error{Code: CodeRateLimited}
	ErrStorage      = &Error{Code: CodeStorage}
)

// Error is an application error with a user-safe message
type Error struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	// Err is the underlying cause; logged, never serialised
	Err error `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HTTPStatus maps the code to a response status
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates an error with a code and message
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error with a code and message around a cause
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation creates a validation_error. details may be nil.
func Validation(message string, details interface{}) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// NotFound creates a not_found error for the named resource
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Database wraps a store failure. The message shown to clients is generic.
func Database(err error) *Error {
	return &Error{Code: CodeDatabase, Message: "A database error occurred", Err: err}
}

// From converts any error into an *Error. Unknown errors become a generic server_error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeServer, Message: "An unexpected error occurred", Err: err}
}
