// Package reconcile closes sessions left open after their event has ended.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/metrics"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/notify"
	"github.com/mmynk/signin/internal/storage"
)

// DefaultInterval is how often Run reconciles when no interval is given.
const DefaultInterval = 30 * time.Second

// Store is the subset of storage the scheduler needs.
type Store interface {
	ListActive(ctx context.Context, filter storage.ActiveFilter) ([]models.ActiveDetail, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	CloseActive(ctx context.Context, closures []storage.Closure) ([]storage.ClosureResult, error)
}

// Report summarizes one reconciliation run.
type Report struct {
	Policy  models.AutoSignoutPolicy
	Scanned int // open sessions examined
	Stale   int // sessions whose event had ended
	Closed  int // sessions actually closed by this run
	Failed  int // sessions skipped because their event could not be read
}

// Scheduler applies the auto-signout policy on a fixed interval.
type Scheduler struct {
	logger   *slog.Logger
	store    Store
	policy   models.AutoSignoutPolicy
	clock    clock.Clock
	interval time.Duration
	notifier notify.Notifier
	metrics  *metrics.Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func NewScheduler(logger *slog.Logger, store Store, policy models.AutoSignoutPolicy, clk clock.Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:   logger,
		store:    store,
		policy:   policy,
		clock:    clk,
		interval: DefaultInterval,
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reconciles every interval until ctx is cancelled. Errors are logged;
// the next run retries. A run still in progress when the next one is due
// causes that one to be skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if _, err := s.ReconcileNow(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Reconciliation failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	s.logger.Info("Reconciliation scheduler started", "policy", s.policy, "interval", s.interval)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Reconciliation scheduler stopped")
	return nil
}

// cronLogger routes cron's own logging into slog.
type cronLogger struct{ logger *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// ReconcileNow runs one pass: every open session whose event's effective
// window has passed is closed according to the policy, in a single batch.
// Under PolicyNone stale sessions are counted but left open. Running it
// again without new sessions changes nothing.
func (s *Scheduler) ReconcileNow(ctx context.Context) (*Report, error) {
	report := &Report{Policy: s.policy}

	actives, err := s.store.ListActive(ctx, storage.ActiveFilter{})
	if err != nil {
		s.metrics.ObserveReconcileFailure()
		return nil, err
	}
	report.Scanned = len(actives)

	now := s.clock.Now()
	events := make(map[string]*models.Event)
	var closures []storage.Closure
	for _, a := range actives {
		event, ok := events[a.EventID]
		if !ok {
			event, err = s.store.GetEvent(ctx, a.EventID)
			if err != nil {
				s.logger.ErrorContext(ctx, "Failed to load event for session", "active_id", a.ID, "event_id", a.EventID, "error", err)
				report.Failed++
				continue
			}
			events[a.EventID] = event
		}
		if !event.HasEnded(now) {
			continue
		}
		report.Stale++
		if s.policy == models.PolicyNone {
			continue
		}
		closure := storage.Closure{ActiveID: a.ID}
		if s.policy == models.PolicyCredit {
			closure.Credit = true
			closure.End = event.End
		}
		closures = append(closures, closure)
	}

	if len(closures) > 0 {
		results, err := s.store.CloseActive(ctx, closures)
		if err != nil {
			s.metrics.ObserveReconcileFailure()
			return nil, err
		}
		for _, r := range results {
			if !r.Closed {
				// Closed by a scan since ListActive; nothing left to do.
				continue
			}
			report.Closed++
			t := notify.Transition{Kind: notify.KindDiscarded, MemberID: r.MemberID, EventID: r.EventID, At: now}
			if r.Stamp != nil {
				t.Kind = notify.KindForceClosed
				t.ElapsedSeconds = r.Stamp.Elapsed().Seconds()
			}
			if err := s.notifier.Publish(ctx, t); err != nil {
				s.logger.WarnContext(ctx, "Failed to publish transition", "kind", t.Kind, "error", err)
			}
		}
	}

	s.metrics.ObserveReconcile(string(s.policy), report.Scanned, report.Closed, report.Failed)
	if report.Closed > 0 || report.Failed > 0 {
		s.logger.Info("Reconciliation finished",
			"policy", s.policy,
			"scanned", report.Scanned,
			"closed", report.Closed,
			"failed", report.Failed,
		)
	}
	return report, nil
}
