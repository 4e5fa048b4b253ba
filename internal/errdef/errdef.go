// Package errdef defines the error kinds returned by the attendance core.
// Callers classify errors with the Is* predicates rather than comparing values.
package errdef

import (
	"errors"
	"fmt"
)

// NewNotFound creates an error representing an unknown event, member or record.
func NewNotFound(format string, a ...any) error {
	return notFound{fmt.Errorf(format, a...)}
}

type notFound struct{ error }

func (e notFound) Unwrap() error { return e.error }

// IsNotFound returns true if err is an error representing a resource that could not be found.
func IsNotFound(err error) bool {
	var e notFound
	return errors.As(err, &e)
}

// NewEventNotActive creates an error for a scan outside the event's effective window.
func NewEventNotActive(format string, a ...any) error {
	return eventNotActive{fmt.Errorf(format, a...)}
}

type eventNotActive struct{ error }

func (e eventNotActive) Unwrap() error { return e.error }

func IsEventNotActive(err error) bool {
	var e eventNotActive
	return errors.As(err, &e)
}

// NewInvalidState creates an error for a transition whose source state no longer exists.
func NewInvalidState(format string, a ...any) error {
	return invalidState{fmt.Errorf(format, a...)}
}

type invalidState struct{ error }

func (e invalidState) Unwrap() error { return e.error }

func IsInvalidState(err error) bool {
	var e invalidState
	return errors.As(err, &e)
}

// NewConflict creates an error representing a conflicting concurrent write.
func NewConflict(format string, a ...any) error {
	return conflict{fmt.Errorf(format, a...)}
}

type conflict struct{ error }

func (e conflict) Unwrap() error { return e.error }

// IsConflict returns true if err is an error representing a conflict and false otherwise.
func IsConflict(err error) bool {
	var e conflict
	return errors.As(err, &e)
}

func NewBadRequest(format string, a ...any) error {
	return badRequest{fmt.Errorf(format, a...)}
}

type badRequest struct{ error }

func (e badRequest) Unwrap() error { return e.error }

func IsBadRequest(err error) bool {
	var e badRequest
	return errors.As(err, &e)
}
