package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/signin/internal/errdef"
	"github.com/mmynk/signin/internal/notify"
	"github.com/mmynk/signin/internal/storage"
)

// ForceClose closes another member's session. With credit the session
// becomes a Stamp ending at end, or now when end is nil; without credit it
// is deleted and its time discarded. The returned result has a nil Stamp
// for a discarded session.
func (s *Service) ForceClose(ctx context.Context, activeID string, credit bool, end *time.Time) (*storage.ClosureResult, error) {
	closure := storage.Closure{ActiveID: activeID, Credit: credit, End: s.clock.Now()}
	override := credit && end != nil
	if override {
		active, err := s.store.GetActive(ctx, activeID)
		if err != nil {
			return nil, err
		}
		if end.Before(active.Start) {
			return nil, errdef.NewBadRequest("end %s is before the session start %s",
				end.UTC().Format(time.RFC3339), active.Start.Format(time.RFC3339))
		}
		closure.End = end.UTC()
	}

	results, err := s.store.CloseActive(ctx, []storage.Closure{closure})
	if err != nil {
		return nil, err
	}
	result := results[0]
	if !result.Closed {
		if override {
			return nil, errdef.NewInvalidState("session %s was closed concurrently", activeID)
		}
		return nil, errdef.NewNotFound("active session not found: %s", activeID)
	}

	s.metrics.ObserveForceClose(credit)
	t := notify.Transition{Kind: notify.KindDiscarded, MemberID: result.MemberID, EventID: result.EventID, At: closure.End}
	if result.Stamp != nil {
		t.Kind = notify.KindForceClosed
		t.ElapsedSeconds = result.Stamp.Elapsed().Seconds()
	}
	s.publish(ctx, t)
	slog.Info("Session force-closed", "active_id", activeID, "credit", credit)
	return &result, nil
}

// DiscardExpired deletes, without credit, every open session whose event
// is no longer active. It returns the number of sessions removed.
func (s *Service) DiscardExpired(ctx context.Context) (int, error) {
	actives, err := s.store.ListActive(ctx, storage.ActiveFilter{})
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	expired := make(map[string]bool)
	var closures []storage.Closure
	for _, a := range actives {
		done, seen := expired[a.EventID]
		if !seen {
			event, err := s.store.GetEvent(ctx, a.EventID)
			if err != nil {
				slog.Warn("Skipping session with unreadable event", "active_id", a.ID, "event_id", a.EventID, "error", err)
				continue
			}
			done = !event.IsActive(now)
			expired[a.EventID] = done
		}
		if done {
			closures = append(closures, storage.Closure{ActiveID: a.ID})
		}
	}
	if len(closures) == 0 {
		return 0, nil
	}

	results, err := s.store.CloseActive(ctx, closures)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range results {
		if r.Closed {
			removed++
			s.publish(ctx, notify.Transition{Kind: notify.KindDiscarded, MemberID: r.MemberID, EventID: r.EventID, At: now})
		}
	}
	slog.Info("Expired sessions discarded", "count", removed)
	return removed, nil
}

// TrimStamps clamps an event's completed sessions into its effective window.
func (s *Service) TrimStamps(ctx context.Context, eventID string) (int64, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	n, err := s.store.TrimStamps(ctx, event.ID, event.EffectiveStart(), event.EffectiveEnd())
	if err != nil {
		return 0, err
	}
	slog.Info("Stamps trimmed", "event_id", event.ID, "count", n)
	return n, nil
}
