package attendance

import (
	"context"
	"sort"
	"time"

	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/storage"
)

// MemberTime is one member's attended time at an event.
type MemberTime struct {
	MemberID string
	Name     string
	Subteam  string
	Time     time.Duration

	// Present is set when the member has an open session; its time up to
	// now is included in Time.
	Present bool
}

// SubteamTime is the attended time summed over a subteam.
type SubteamTime struct {
	Name string
	Time time.Duration
}

// EventStats summarizes attendance at one event.
type EventStats struct {
	Event    *models.Event
	Members  []MemberTime  // by Time, longest first
	Subteams []SubteamTime // by Time, longest first
	Total    time.Duration
}

// EventStats totals completed sessions plus the open time of sessions still
// in progress.
func (s *Service) EventStats(ctx context.Context, eventID string) (*EventStats, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	stamps, err := s.store.ListStamps(ctx, storage.StampFilter{EventID: event.ID})
	if err != nil {
		return nil, err
	}
	actives, err := s.store.ListActive(ctx, storage.ActiveFilter{EventID: event.ID})
	if err != nil {
		return nil, err
	}

	byMember := make(map[string]*MemberTime)
	member := func(id, name, subteam string) *MemberTime {
		m, ok := byMember[id]
		if !ok {
			m = &MemberTime{MemberID: id, Name: name, Subteam: subteam}
			byMember[id] = m
		}
		return m
	}
	for _, st := range stamps {
		member(st.MemberID, st.MemberName, st.SubteamName).Time += st.Elapsed()
	}
	now := s.clock.Now()
	for _, a := range actives {
		m := member(a.MemberID, a.MemberName, a.SubteamName)
		m.Present = true
		if open := now.Sub(a.Start); open > 0 {
			m.Time += open
		}
	}

	stats := &EventStats{Event: event}
	bySubteam := make(map[string]time.Duration)
	for _, m := range byMember {
		stats.Members = append(stats.Members, *m)
		stats.Total += m.Time
		if m.Subteam != "" {
			bySubteam[m.Subteam] += m.Time
		}
	}
	for name, d := range bySubteam {
		stats.Subteams = append(stats.Subteams, SubteamTime{Name: name, Time: d})
	}
	sort.Slice(stats.Members, func(i, j int) bool {
		if stats.Members[i].Time != stats.Members[j].Time {
			return stats.Members[i].Time > stats.Members[j].Time
		}
		return stats.Members[i].Name < stats.Members[j].Name
	})
	sort.Slice(stats.Subteams, func(i, j int) bool {
		if stats.Subteams[i].Time != stats.Subteams[j].Time {
			return stats.Subteams[i].Time > stats.Subteams[j].Time
		}
		return stats.Subteams[i].Name < stats.Subteams[j].Name
	})
	return stats, nil
}

// AutoloadEvent returns the enabled, currently active event of an autoload
// type that started first, or nil when there is none.
func (s *Service) AutoloadEvent(ctx context.Context) (*models.Event, error) {
	events, err := s.store.ListEvents(ctx, storage.EventFilter{
		OverlapsAt:   s.clock.Now(),
		EnabledOnly:  true,
		AutoloadOnly: true,
	})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return events[0], nil
}
