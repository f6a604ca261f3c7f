// Package orcherr defines the typed failure kinds shared across the
// orchestrator's components. Every component-level operation that can fail
// returns one of these instead of an ad-hoc error string, so callers can
// branch on Kind without parsing messages.
package orcherr

import "fmt"

type Kind string

const (
	InvalidInput         Kind = "invalid_input"
	ClassificationFailed Kind = "classification_failed"
	DeviceUnavailable    Kind = "device_unavailable"
	DeviceCommandFailed  Kind = "device_command_failed"
	LocateFailed         Kind = "locate_failed"
	StepFailed           Kind = "step_failed"
	UnableToReachHome    Kind = "unable_to_reach_home"
	ParamsMissing        Kind = "params_missing"
	PlannerFailed        Kind = "planner_failed"
)

// Error wraps a Kind with a human-readable message and an optional
// underlying cause. Components construct one via New or Wrap; callers branch
// on Is(err, Kind) rather than string-matching Error().
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

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind, unwrapping through
// any wrapping chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		if oe, ok := err.(*Error); ok {
			if oe.Kind == kind {
				return true
			}
			err = oe.Cause
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if oe, ok := err.(*Error); ok {
			return oe.Kind, true
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}
