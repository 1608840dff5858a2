// Package apperr provides typed domain errors shared by all modules.
// Services return these errors and the HTTP layer maps them to status codes,
// so no handler ever inspects error strings.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind categorizes a domain error for HTTP mapping.
type Kind int

const (
	// KindUnknown is the zero value when no kind was specified.
	KindUnknown Kind = iota
	// KindNotFound indicates the requested entity does not exist,
	// including cross-tenant references which must look identical.
	KindNotFound
	// KindValidation indicates invalid input or an illegal state transition.
	KindValidation
	// KindConflict indicates a race loss with no idempotent interpretation.
	KindConflict
	// KindForbidden indicates an RBAC denial.
	KindForbidden
	// KindUnauthorized indicates missing or failed authentication.
	KindUnauthorized
	// KindInternal indicates an unexpected infrastructure failure.
	KindInternal
	// KindGone indicates a resource that existed but is no longer reachable,
	// e.g. an expired public link.
	KindGone
)

// Error is a domain error carrying a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error       // wrapped cause, optional
	Details interface{} // extra payload for the HTTP response, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap supports errors.Is/errors.As on the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	case KindGone:
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}

// WithDetails attaches a details payload and returns the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// New creates a domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a domain error wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound creates a not-found error.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Validation creates a validation error.
func Validation(message string) *Error { return New(KindValidation, message) }

// Conflict creates a conflict error.
func Conflict(message string) *Error { return New(KindConflict, message) }

// Forbidden creates an RBAC denial error.
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// Unauthorized creates an authentication error.
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// Internal creates an internal error.
func Internal(message string) *Error { return New(KindInternal, message) }

// Gone creates a gone error for expired or removed resources.
func Gone(message string) *Error { return New(KindGone, message) }

// GetKind extracts the Kind from an error, or KindUnknown for untyped errors.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is a domain error of the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
