package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain failure wraps exactly one of these so the HTTP
// layer can pick a status code with errors.Is.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing document.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate business code or a concurrent modification.
	ErrConflict = errors.New("conflict")
	// ErrBusinessRule marks a request that is well-formed but not allowed in the
	// document's current state.
	ErrBusinessRule = errors.New("business rule violation")
	// ErrUnauthorized marks a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an authenticated caller without the required role.
	ErrForbidden = errors.New("forbidden")
)

// Error carries a kind plus the single message shown to API callers.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Invalid builds a validation error.
func Invalid(format string, args ...any) error { return newError(ErrValidation, format, args...) }

// NotFound builds a not-found error.
func NotFound(format string, args ...any) error { return newError(ErrNotFound, format, args...) }

// Conflict builds a duplicate/concurrency error.
func Conflict(format string, args ...any) error { return newError(ErrConflict, format, args...) }

// Rule builds a business-rule error.
func Rule(format string, args ...any) error { return newError(ErrBusinessRule, format, args...) }

// Unauthorized builds an authentication error.
func Unauthorized(format string, args ...any) error {
	return newError(ErrUnauthorized, format, args...)
}

// Forbidden builds an authorization error.
func Forbidden(format string, args ...any) error { return newError(ErrForbidden, format, args...) }

// Message returns the caller-facing message for err, or fallback when err does
// not carry one.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
