package location

import (
	"context"
	"errors"
)

type ErrorKind string

const (
	PermissionDenied         ErrorKind = "permission_denied"
	PositionUnavailable      ErrorKind = "position_unavailable"
	Timeout                  ErrorKind = "timeout"
	CapabilityUnavailable    ErrorKind = "capability_unavailable"
	LocalityResolutionFailed ErrorKind = "locality_resolution_failed"
)

var messages = map[ErrorKind]string{
	PermissionDenied:         "Location permission denied.",
	PositionUnavailable:      "Location information is unavailable.",
	Timeout:                  "The request to get user location timed out.",
	CapabilityUnavailable:    "Geolocation is not supported on this platform.",
	LocalityResolutionFailed: "Failed to determine location details.",
}

// Error is a location failure surfaced through State.LastError.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Sentinels for errors.Is.
var (
	ErrPermissionDenied         = &Error{Kind: PermissionDenied}
	ErrPositionUnavailable      = &Error{Kind: PositionUnavailable}
	ErrTimeout                  = &Error{Kind: Timeout}
	ErrCapabilityUnavailable    = &Error{Kind: CapabilityUnavailable}
	ErrLocalityResolutionFailed = &Error{Kind: LocalityResolutionFailed}
)

func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := messages[e.Kind]
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Message is the user-facing description without the underlying cause.
func (e *Error) Message() string {
	if msg, ok := messages[e.Kind]; ok {
		return msg
	}
	return "An unknown error occurred."
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// classify maps whatever the locator returned onto the error taxonomy.
func classify(err error) *Error {
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(Timeout, err)
	}
	return NewError(PositionUnavailable, err)
}
