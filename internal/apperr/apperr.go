// Package apperr defines the error taxonomy shared by every component, and
// the HTTP status each kind maps to at the transport boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error classes in the system's error handling design.
type Kind string

const (
	Unauthenticated    Kind = "unauthenticated"
	Forbidden          Kind = "forbidden"
	NotFound           Kind = "not_found"
	ValidationError    Kind = "validation_error"
	Conflict           Kind = "conflict"
	RateLimited        Kind = "rate_limited"
	TierLimited        Kind = "tier_limited"
	BackendUnavailable Kind = "backend_unavailable"
	Internal           Kind = "internal"
)

// httpStatus maps each Kind to the status code the transport layer returns.
// TierLimited has no HTTP mapping of its own: spec.md says it is not an
// error — callers fall back to keyword search and annotate a tier message
// instead of surfacing a non-2xx response.
var httpStatus = map[Kind]int{
	Unauthenticated:    http.StatusUnauthorized,
	Forbidden:          http.StatusForbidden,
	NotFound:           http.StatusNotFound,
	ValidationError:    http.StatusBadRequest,
	Conflict:           http.StatusConflict,
	RateLimited:        http.StatusTooManyRequests,
	BackendUnavailable: http.StatusServiceUnavailable,
	Internal:           http.StatusInternalServerError,
}

// Error is the typed error every component returns for expected failure
// modes. Unexpected failures should be wrapped with Internal rather than
// passed through raw.
type Error struct {
	Kind        Kind
	Message     string
	Suggestions []string // populated for NotFound, per §7
	Retryable   bool     // true for BackendUnavailable transport/timeout failures
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus returns the status code this error maps to at the transport.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new Error of the given kind.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithSuggestions attaches near-miss suggestions (used by NotFound responses).
func (e *Error) WithSuggestions(s []string) *Error {
	e.Suggestions = s
	return e
}

// WithRetryable marks a BackendUnavailable error as safe to retry once.
func (e *Error) WithRetryable() *Error {
	e.Retryable = true
	return e
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Internal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
