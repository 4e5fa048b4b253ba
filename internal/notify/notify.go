// Package notify publishes attendance transitions to interested consumers
// such as live displays.
package notify

import (
	"context"
	"time"
)

// Kind names a transition.
type Kind string

const (
	KindSignedIn    Kind = "signed_in"
	KindSignedOut   Kind = "signed_out"
	KindForceClosed Kind = "force_closed"
	KindDiscarded   Kind = "discarded"
)

// Transition is the message published for every state change of a
// (member, event) pair.
type Transition struct {
	Kind     Kind      `json:"kind"`
	MemberID string    `json:"member_id"`
	EventID  string    `json:"event_id"`
	At       time.Time `json:"at"`

	// ElapsedSeconds is set when a session was credited.
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
}

// Notifier publishes transitions. Publishing is best effort: callers log
// failures and never undo the transition.
type Notifier interface {
	Publish(ctx context.Context, t Transition) error
	Close() error
}

// Nop discards every transition.
type Nop struct{}

func (Nop) Publish(context.Context, Transition) error { return nil }
func (Nop) Close() error                              { return nil }
