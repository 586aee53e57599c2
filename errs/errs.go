// Package errs defines the error taxonomy shared across the sparse-index
// library: a small set of kinds callers can switch on, independent of the
// wrapped cause.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an Error without binding callers to a concrete type.
type Kind int

const (
	Unknown Kind = iota
	InvalidArgument
	IoError
	Corruption
	ResourceExhausted
	AlreadyExists
	NotFound
	Busy
	Timeout
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid_argument"
	case IoError:
		return "io_error"
	case Corruption:
		return "corruption"
	case ResourceExhausted:
		return "resource_exhausted"
	case AlreadyExists:
		return "already_exists"
	case NotFound:
		return "not_found"
	case Busy:
		return "busy"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned throughout the library.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no wrapped cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to an existing error, preserving it as
// the cause for errors.Is/errors.As and %w-style unwrapping.
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return New(kind, msg)
	}
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf reports the Kind carried by err, or Unknown if err does not wrap
// an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether the first *Error in err's chain carries the given
// Kind; a Kind on a deeper, wrapped *Error is not consulted.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
