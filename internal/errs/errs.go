// Package errs defines the error-kind taxonomy shared across the engine.
//
// Components never invent ad-hoc error strings for control flow; they
// wrap a Kind so callers (the scheduler, the CLI) can classify failures
// without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy entries from spec.md §7. It is not an
// error itself, only a classification tag.
type Kind int

const (
	CliError Kind = iota
	NoResolvers
	Timeout
	NetworkError
	Malformed
	Nxdomain
	WildcardUnknown
	CheckpointIoError
	SinkIoError
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case CliError:
		return "CliError"
	case NoResolvers:
		return "NoResolvers"
	case Timeout:
		return "Timeout"
	case NetworkError:
		return "NetworkError"
	case Malformed:
		return "Malformed"
	case Nxdomain:
		return "Nxdomain"
	case WildcardUnknown:
		return "WildcardUnknown"
	case CheckpointIoError:
		return "CheckpointIoError"
	case SinkIoError:
		return "SinkIoError"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind, preserving errors.Is/As.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error. err may be nil, in which case the
// Kind's default message is used.
func New(k Kind, err error) *Error {
	return &Error{Kind: k, Err: err}
}

// Newf is a convenience wrapper around New+fmt.Errorf.
func Newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf extracts the Kind from err, or false if err does not carry one.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
