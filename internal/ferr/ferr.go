// Package ferr defines the typed error kinds surfaced across the note
// engine: NotFound, Conflict, Validation, Parse, IO, MigrationFailure and
// External. Callers branch on Kind via errors.As, never on message text.
package ferr

import "fmt"

// Kind classifies an Error for programmatic handling.
type Kind string

const (
	NotFound         Kind = "not_found"
	Conflict         Kind = "conflict"
	Validation       Kind = "validation"
	Parse            Kind = "parse"
	IO               Kind = "io"
	MigrationFailure Kind = "migration_failure"
	External         Kind = "external"
)

// Error is the concrete error type returned by every package in this
// module. It carries a Kind plus a human message and an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, ferr.NotFound) style matching against a bare Kind
// wrapped as an error via New(kind, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if ok := as(err, &e); ok {
		return e.Kind, true
	}
	return "", false
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
