// Package apperr carries the error taxonomy shared by the services and the HTTP boundary.
package apperr

import (
	"errors"

	"github.com/samber/oops"
)

type Kind string

const msgKey = "public_message"

const (
	Validation Kind = "VALIDATION"
	NotFound   Kind = "NOT_FOUND"
	Conflict   Kind = "CONFLICT"
	Auth       Kind = "AUTH"
	Unverified Kind = "UNVERIFIED"
	Upstream   Kind = "UPSTREAM"
)

// New returns an error whose message is safe to show to the client.
func New(kind Kind, msg string) error {
	return oops.Code(string(kind)).With(msgKey, msg).Errorf("%s", msg)
}

func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return oops.Code(string(kind)).With(msgKey, msg).Wrapf(err, "%s", msg)
}

// KindOf reports the taxonomy kind of err. Errors not built by this package are Upstream.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if oe, ok := oops.AsOops(err); ok {
		if code, ok := any(oe.Code()).(string); ok && code != "" {
			return Kind(code)
		}
	}
	return Upstream
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-facing message of err without the wrapped cause.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if oe, ok := oops.AsOops(err); ok {
		if m, ok := oe.Context()[msgKey].(string); ok && m != "" {
			return m
		}
	}
	return err.Error()
}

// Cause returns the wrapped cause's text, or "" when err carries none.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	if u := errors.Unwrap(err); u != nil && u.Error() != Message(err) {
		return u.Error()
	}
	return ""
}
