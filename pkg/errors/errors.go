// Package errors defines the typed errors shared by the hub, its storage and
// the HTTP layer. Every typed error carries a user-facing detail that
// survives wrapping, so handlers never match on error strings.
package errors

import (
	"errors"
)

// Standard library helpers, re-exported so callers need one errors import.
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// Sentinels matched by the typed errors' Is methods.
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConnectionFailed    = errors.New("connection failed")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrCanceled            = errors.New("operation canceled")
)

// detailer is implemented by errors with a user-facing text distinct from
// Error().
type detailer interface {
	error
	Detail() string
}

// Message returns the user-facing text of the first typed error in err's
// chain, or err.Error() when there is none.
func Message(err error) string {
	var d detailer
	if errors.As(err, &d) {
		return d.Detail()
	}
	return err.Error()
}

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyExists reports whether err is a uniqueness conflict.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsValidationError reports whether err is rejected input.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsConnectionError reports whether err is a source database failure.
func IsConnectionError(err error) bool { return errors.Is(err, ErrConnectionFailed) }

// IsRateLimited reports whether an upstream API throttled the request.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
