// Package attendance implements the presence state machine: scans toggle a
// (member, event) pair between not present (no Active record) and present
// (one Active record), and every completed cycle leaves one Stamp.
package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/metrics"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/notify"
	"github.com/mmynk/signin/internal/storage"
)

// Outcome is what a scan did to the pair.
type Outcome int

const (
	// Unchanged means the pair was already in the requested state.
	Unchanged Outcome = iota
	SignedIn
	SignedOut
)

func (o Outcome) String() string {
	switch o {
	case SignedIn:
		return "SignedIn"
	case SignedOut:
		return "SignedOut"
	default:
		return "Unchanged"
	}
}

// Result is returned by Scan, SignIn and SignOut.
type Result struct {
	Outcome Outcome
	Member  *models.Member
	Event   *models.Event

	// Active is the open session after SignedIn, or the existing one when
	// SignIn found the member already present.
	Active *models.Active

	// Stamp is the completed session after SignedOut.
	Stamp *models.Stamp

	// Present lists the event's open sessions after the transition.
	Present []models.ActiveDetail
}

// Elapsed is the credited duration of a SignedOut result.
func (r *Result) Elapsed() time.Duration {
	if r.Stamp == nil {
		return 0
	}
	return r.Stamp.Elapsed()
}

// Service runs attendance transitions against a store.
type Service struct {
	store    storage.Store
	clock    clock.Clock
	notifier notify.Notifier
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes every transition to n.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records transitions to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a Service reading the current time from clk.
func New(store storage.Store, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		store:    store,
		clock:    clk,
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan toggles the member identified by memberCode at the event identified
// by eventCode: a missing session is opened, an open one is closed and
// credited up to now.
func (s *Service) Scan(ctx context.Context, eventCode, memberCode string) (*Result, error) {
	event, err := s.scannableEvent(ctx, eventCode)
	if err != nil {
		return nil, s.rejected(err)
	}
	member, err := s.store.GetMemberByCode(ctx, memberCode)
	if err != nil {
		return nil, s.rejected(err)
	}
	return s.apply(ctx, member, event, storage.Toggle)
}

// SignIn opens a session for memberID unless one is already open.
func (s *Service) SignIn(ctx context.Context, eventCode, memberID string) (*Result, error) {
	return s.self(ctx, eventCode, memberID, storage.Open)
}

// SignOut closes the member's open session, if any.
func (s *Service) SignOut(ctx context.Context, eventCode, memberID string) (*Result, error) {
	return s.self(ctx, eventCode, memberID, storage.Close)
}

func (s *Service) self(ctx context.Context, eventCode, memberID string, mode storage.TransitionMode) (*Result, error) {
	event, err := s.scannableEvent(ctx, eventCode)
	if err != nil {
		return nil, s.rejected(err)
	}
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return nil, s.rejected(err)
	}
	return s.apply(ctx, member, event, mode)
}

// scannableEvent resolves an enabled event. Disabled events are reported as
// unknown so that a disabled code behaves like a mistyped one.
func (s *Service) scannableEvent(ctx context.Context, code string) (*models.Event, error) {
	event, err := s.store.GetEventByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !event.Enabled {
		return nil, errdef.NewNotFound("no enabled event with code %q", code)
	}
	return event, nil
}

func (s *Service) apply(ctx context.Context, member *models.Member, event *models.Event, mode storage.TransitionMode) (*Result, error) {
	if !member.Approved {
		return nil, s.rejected(errdef.NewNotFound("member %s is not approved", member.ID))
	}

	now := s.clock.Now()
	if !event.IsActive(now) {
		return nil, s.rejected(errdef.NewEventNotActive("event %q is not active at %s", event.Code, now.Format(time.RFC3339)))
	}

	req := storage.TransitionRequest{MemberID: member.ID, EventID: event.ID, Mode: mode, At: now}
	res, err := s.store.Transition(ctx, req)
	if errdef.IsConflict(err) {
		// Another transition for the pair committed first; apply ours to its result.
		slog.Debug("Transition conflict, retrying", "member_id", member.ID, "event_id", event.ID)
		res, err = s.store.Transition(ctx, req)
	}
	if err != nil {
		s.metrics.ObserveScan(metrics.ResultError)
		return nil, err
	}

	result := &Result{Member: member, Event: event}
	switch {
	case res.Opened != nil:
		result.Outcome = SignedIn
		result.Active = res.Opened
		s.metrics.ObserveScan(metrics.ResultSignedIn)
		s.publish(ctx, notify.Transition{Kind: notify.KindSignedIn, MemberID: member.ID, EventID: event.ID, At: now})
		slog.Info("Signed in", "member", member.HumanReadable(), "event", event.Name)
	case res.Closed != nil:
		result.Outcome = SignedOut
		result.Stamp = res.Closed
		s.metrics.ObserveScan(metrics.ResultSignedOut)
		s.publish(ctx, notify.Transition{
			Kind: notify.KindSignedOut, MemberID: member.ID, EventID: event.ID, At: now,
			ElapsedSeconds: res.Closed.Elapsed().Seconds(),
		})
		slog.Info("Signed out", "member", member.HumanReadable(), "event", event.Name, "elapsed", res.Closed.Elapsed())
	default:
		result.Active = res.Existing
		s.metrics.ObserveScan(metrics.ResultNoop)
	}

	present, err := s.store.ListActive(ctx, storage.ActiveFilter{EventID: event.ID})
	if err != nil {
		return nil, err
	}
	result.Present = present
	return result, nil
}

func (s *Service) rejected(err error) error {
	switch {
	case errdef.IsNotFound(err):
		s.metrics.ObserveScan(metrics.ResultNotFound)
	case errdef.IsEventNotActive(err):
		s.metrics.ObserveScan(metrics.ResultEventNotActive)
	default:
		s.metrics.ObserveScan(metrics.ResultError)
	}
	return err
}

func (s *Service) publish(ctx context.Context, t notify.Transition) {
	if err := s.notifier.Publish(ctx, t); err != nil {
		slog.Warn("Failed to publish transition", "kind", t.Kind, "member_id", t.MemberID, "error", err)
	}
}

// CurrentlyPresent lists open sessions, restricted to one event when
// eventCode is not empty. An unknown code yields an empty list.
func (s *Service) CurrentlyPresent(ctx context.Context, eventCode string) ([]models.ActiveDetail, error) {
	return s.store.ListActive(ctx, storage.ActiveFilter{EventCode: eventCode})
}
