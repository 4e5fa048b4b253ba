package models

import (
	"time"
)

// EventType classifies events (meeting, outreach, competition...).
type EventType struct {
	ID          string
	Name        string
	Description string

	// Autoload marks the type eligible for ambient display on idle kiosks.
	Autoload bool
}

// Event is a scheduled window members sign in to.
type Event struct {
	// ID is the unique identifier for the event (UUID format).
	ID string

	// Name is the user-visible name.
	Name        string
	Description string
	Location    string

	// Code is the unique string scanned or typed to select the event.
	Code string

	// Start and End bound the nominal window [Start, End) in UTC.
	// Invariant: Start < End.
	Start time.Time
	End   time.Time

	TypeID string
	Type   *EventType

	// Enabled events can be scanned against.
	Enabled bool

	// PreEventMinutes and PostEventMinutes widen the effective window
	// without changing the displayed one.
	PreEventMinutes  int
	PostEventMinutes int

	// Funds and Cost are in cents.
	Funds int64
	Cost  int64

	// Overhead is the fraction (0.0-1.0) of net funds retained by the organization.
	Overhead float64
}

// EffectiveStart is Start moved earlier by the pre-event grace period.
func (e *Event) EffectiveStart() time.Time {
	return e.Start.Add(-time.Duration(e.PreEventMinutes) * time.Minute)
}

// EffectiveEnd is End moved later by the post-event grace period.
func (e *Event) EffectiveEnd() time.Time {
	return e.End.Add(time.Duration(e.PostEventMinutes) * time.Minute)
}

// IsActive reports whether now falls in [EffectiveStart, EffectiveEnd).
// This is the single predicate for scan eligibility and session staleness.
func (e *Event) IsActive(now time.Time) bool {
	return !now.Before(e.EffectiveStart()) && now.Before(e.EffectiveEnd())
}

// HasEnded reports whether the effective window is over at now.
func (e *Event) HasEnded(now time.Time) bool {
	return !now.Before(e.EffectiveEnd())
}

// NetFunds is Funds minus Cost in cents; it may be negative.
func (e *Event) NetFunds() int64 {
	return e.Funds - e.Cost
}

// Clamp moves t into the effective window.
func (e *Event) Clamp(t time.Time) time.Time {
	if start := e.EffectiveStart(); t.Before(start) {
		return start
	}
	if end := e.EffectiveEnd(); t.After(end) {
		return end
	}
	return t
}

// EventBlock is a sub-window of a multi-block event used for registration reporting.
type EventBlock struct {
	ID      string
	EventID string
	Start   time.Time
	End     time.Time

	// Registrations is the number of members registered, filled by list queries.
	Registrations int
}
