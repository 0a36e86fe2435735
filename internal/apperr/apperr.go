// Package apperr defines the closed set of error kinds raised by the service
// layer. Handlers translate a Kind into an HTTP status; nothing else in the
// application inspects error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	// Internal is an unexpected persistence or infrastructure failure.
	Internal Kind = iota
	// InvalidInput covers malformed or missing fields and bad id formats.
	InvalidInput
	// Unauthorized means the credential is missing, invalid or expired.
	Unauthorized
	// Forbidden means the caller is authenticated but not permitted.
	Forbidden
	// NotFound means the entity does not exist.
	NotFound
	// Conflict covers duplicates such as an existing email or active request.
	Conflict
	// InvalidState means the entity exists but its state rejects the operation.
	InvalidState
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

// Error carries a Kind, a client-safe message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Internal error around err. The message is what a client sees
// in development mode only.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Internal, Message: message, Err: err}
}

// KindOf reports the Kind of err. Errors that are not *Error are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func InvalidInputf(format string, args ...any) *Error { return New(InvalidInput, format, args...) }
func Unauthorizedf(format string, args ...any) *Error { return New(Unauthorized, format, args...) }
func Forbiddenf(format string, args ...any) *Error    { return New(Forbidden, format, args...) }
func NotFoundf(format string, args ...any) *Error     { return New(NotFound, format, args...) }
func Conflictf(format string, args ...any) *Error     { return New(Conflict, format, args...) }
func InvalidStatef(format string, args ...any) *Error { return New(InvalidState, format, args...) }
