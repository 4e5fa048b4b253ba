// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/mmynk/signin/internal/models"
)

// TransitionMode selects how Transition treats an existing session.
type TransitionMode int

const (
	// Toggle opens a session when none exists and closes it otherwise.
	Toggle TransitionMode = iota
	// Open opens a session unless one already exists.
	Open
	// Close closes the session if one exists.
	Close
)

// TransitionRequest asks for a state change of one (member, event) pair.
type TransitionRequest struct {
	MemberID string
	EventID  string
	Mode     TransitionMode
	At       time.Time
}

// TransitionResult describes what Transition did. Exactly one of Opened and
// Closed is non-nil when a change happened; both are nil for a no-op.
type TransitionResult struct {
	Opened *models.Active
	Closed *models.Stamp

	// Existing is the session that was already open when Mode was Open.
	Existing *models.Active
}

// Closure force-closes one Active record.
type Closure struct {
	ActiveID string

	// Credit converts the session into a Stamp ending at End; otherwise the
	// session is deleted and its time is discarded.
	Credit bool
	End    time.Time
}

// ClosureResult reports the outcome of one Closure. Closed is false when the
// Active record no longer existed.
type ClosureResult struct {
	ActiveID string
	Closed   bool

	// MemberID and EventID identify the closed session's pair.
	MemberID string
	EventID  string

	// Stamp is the credited session; nil when discarded.
	Stamp *models.Stamp
}

// ActiveFilter narrows ListActive. Zero values match everything.
type ActiveFilter struct {
	EventID   string
	EventCode string
}

// StampFilter narrows ListStamps. Zero values match everything.
type StampFilter struct {
	EventID  string
	MemberID string

	// EventIDs restricts results to any of the listed events when non-empty.
	EventIDs []string
}

// EventFilter narrows ListEvents. Zero values match everything.
type EventFilter struct {
	// StartFrom and StartBefore bound the nominal start: StartFrom <= start < StartBefore.
	StartFrom   time.Time
	StartBefore time.Time

	// EndAfter and EndBy bound the nominal end: EndAfter < end <= EndBy.
	EndAfter time.Time
	EndBy    time.Time

	// OverlapsAt keeps events whose effective window contains the instant.
	OverlapsAt time.Time

	EnabledOnly  bool
	AutoloadOnly bool
}

// MemberRegistry stores members, roles and subteams.
type MemberRegistry interface {
	CreateRole(ctx context.Context, role *models.Role) error
	CreateSubteam(ctx context.Context, subteam *models.Subteam) error

	// CreateMember persists a new member. The ID and Code are generated when empty.
	CreateMember(ctx context.Context, member *models.Member) error

	// ApproveMember marks the member as approved for scanning.
	ApproveMember(ctx context.Context, memberID string) error

	// GetMember and GetMemberByCode return the member with Role and Subteam
	// populated, or an errdef NotFound error.
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	GetMemberByCode(ctx context.Context, code string) (*models.Member, error)

	// ListMembers returns all members ordered by name.
	ListMembers(ctx context.Context) ([]*models.Member, error)
}

// EventRegistry stores events, event types and blocks.
type EventRegistry interface {
	CreateEventType(ctx context.Context, eventType *models.EventType) error

	// CreateEvent persists a new event. The ID is generated when empty.
	CreateEvent(ctx context.Context, event *models.Event) error

	// CreateEvents persists several events in one transaction.
	CreateEvents(ctx context.Context, events []*models.Event) error

	// UpdateEvent replaces the mutable fields of an existing event.
	UpdateEvent(ctx context.Context, event *models.Event) error

	// GetEvent and GetEventByCode return the event with Type populated, or an
	// errdef NotFound error.
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetEventByCode(ctx context.Context, code string) (*models.Event, error)

	// ListEvents returns events ordered by start.
	ListEvents(ctx context.Context, filter EventFilter) ([]*models.Event, error)

	// DeleteEvent removes the event and its Active, Stamp and block records.
	DeleteEvent(ctx context.Context, eventID string) error

	CreateEventBlock(ctx context.Context, block *models.EventBlock) error
	RegisterForBlock(ctx context.Context, blockID, memberID string) error

	// ListEventBlocks returns the event's blocks with registration counts.
	ListEventBlocks(ctx context.Context, eventID string) ([]*models.EventBlock, error)
}

// AttendanceStore owns the Active and Stamp tables. Implementations must
// serialize Transition and Close per (member, event) pair so that at most one
// Active record exists for the pair at any time.
type AttendanceStore interface {
	// Transition atomically applies req to the pair's current state.
	Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error)

	// ListActive returns open sessions ordered by start.
	ListActive(ctx context.Context, filter ActiveFilter) ([]models.ActiveDetail, error)

	// GetActive returns one open session or an errdef NotFound error.
	GetActive(ctx context.Context, activeID string) (*models.Active, error)

	// CloseActive applies all closures in a single transaction. Records that
	// no longer exist are reported with Closed=false.
	CloseActive(ctx context.Context, closures []Closure) ([]ClosureResult, error)

	// ListStamps returns completed sessions ordered by start.
	ListStamps(ctx context.Context, filter StampFilter) ([]models.StampDetail, error)

	// TrimStamps clamps the event's stamps into [from, to] and returns the
	// number of stamps changed.
	TrimStamps(ctx context.Context, eventID string, from, to time.Time) (int64, error)
}

// Store combines every registry the service needs.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	MemberRegistry
	EventRegistry
	AttendanceStore

	// Close releases any resources held by the store.
	Close() error
}
