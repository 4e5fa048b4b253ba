// Package funds computes each member's share of event funds from completed
// attendance. It only reads: open sessions are never counted.
package funds

import (
	"context"
	"sort"

	"github.com/mmynk/signin/internal/calculator"
	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/storage"
)

// Store is the subset of storage the engine reads.
type Store interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListEvents(ctx context.Context, filter storage.EventFilter) ([]*models.Event, error)
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	ListMembers(ctx context.Context) ([]*models.Member, error)
	ListStamps(ctx context.Context, filter storage.StampFilter) ([]models.StampDetail, error)
}

// Engine answers fund queries. School years are taken in zone.
type Engine struct {
	store Store
	zone  clock.Zone
}

func NewEngine(store Store, zone clock.Zone) *Engine {
	return &Engine{store: store, zone: zone}
}

// MemberFunds is one row of the finance overview.
type MemberFunds struct {
	MemberID string
	Name     string
	Amount   float64
}

// Overview is the finance report for one school year or for all time.
type Overview struct {
	Year     *int
	Overhead float64
	Members  []MemberFunds // by Name
}

// FundsFor returns the member's share of one event in currency units.
func (e *Engine) FundsFor(ctx context.Context, eventID, memberID string) (float64, error) {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return 0, err
	}
	event, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if !member.ReceivesFunds() {
		return 0, nil
	}

	stamps, err := e.store.ListStamps(ctx, storage.StampFilter{EventID: event.ID})
	if err != nil {
		return 0, err
	}
	shares := calculator.DistributeEventFunds(eventFunds(event), sessions(stamps))
	if share, ok := shares[member.ID]; ok {
		return share.Amount, nil
	}
	return 0, nil
}

// YearlyFunds sums the member's shares over every event of the school year,
// or over all events when year is nil.
func (e *Engine) YearlyFunds(ctx context.Context, memberID string, year *int) (float64, error) {
	member, err := e.store.GetMember(ctx, memberID)
	if err != nil {
		return 0, err
	}
	if !member.ReceivesFunds() {
		return 0, nil
	}
	totals, err := e.distribute(ctx, year)
	if err != nil {
		return 0, err
	}
	return totals[member.ID], nil
}

// OverheadTotal sums net funds × overhead over the school year's events.
func (e *Engine) OverheadTotal(ctx context.Context, year *int) (float64, error) {
	events, err := e.events(ctx, year)
	if err != nil {
		return 0, err
	}
	var cents float64
	for _, event := range events {
		cents += calculator.OverheadCents(eventFunds(event))
	}
	return calculator.ToCurrency(cents), nil
}

// Overview reports the overhead total and the yearly funds of every visible
// member who receives funds.
func (e *Engine) Overview(ctx context.Context, year *int) (*Overview, error) {
	overhead, err := e.OverheadTotal(ctx, year)
	if err != nil {
		return nil, err
	}
	totals, err := e.distribute(ctx, year)
	if err != nil {
		return nil, err
	}
	members, err := e.store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	overview := &Overview{Year: year, Overhead: overhead}
	for _, m := range members {
		if !m.Role.Capabilities.Visible || !m.ReceivesFunds() {
			continue
		}
		name := m.DisplayName
		if name == "" {
			name = m.Name
		}
		overview.Members = append(overview.Members, MemberFunds{MemberID: m.ID, Name: name, Amount: totals[m.ID]})
	}
	sort.Slice(overview.Members, func(i, j int) bool {
		return overview.Members[i].Name < overview.Members[j].Name
	})
	return overview, nil
}

// distribute returns every member's summed share, in currency units, over
// the selected events.
func (e *Engine) distribute(ctx context.Context, year *int) (map[string]float64, error) {
	events, err := e.events(ctx, year)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64)
	if len(events) == 0 {
		return totals, nil
	}

	ids := make([]string, len(events))
	for i, event := range events {
		ids[i] = event.ID
	}
	stamps, err := e.store.ListStamps(ctx, storage.StampFilter{EventIDs: ids})
	if err != nil {
		return nil, err
	}
	byEvent := make(map[string][]models.StampDetail)
	for _, st := range stamps {
		byEvent[st.EventID] = append(byEvent[st.EventID], st)
	}

	for _, event := range events {
		for memberID, share := range calculator.DistributeEventFunds(eventFunds(event), sessions(byEvent[event.ID])) {
			totals[memberID] += share.Amount
		}
	}
	return totals, nil
}

func (e *Engine) events(ctx context.Context, year *int) ([]*models.Event, error) {
	var filter storage.EventFilter
	if year != nil {
		filter.StartFrom, filter.StartBefore = calculator.SchoolYearBounds(*year, e.zone.Location())
	}
	return e.store.ListEvents(ctx, filter)
}

func eventFunds(event *models.Event) calculator.EventFunds {
	return calculator.EventFunds{Funds: event.Funds, Cost: event.Cost, Overhead: event.Overhead}
}

func sessions(stamps []models.StampDetail) []calculator.Session {
	out := make([]calculator.Session, len(stamps))
	for i, st := range stamps {
		out[i] = calculator.Session{MemberID: st.MemberID, Elapsed: st.Elapsed(), ReceivesFunds: st.ReceivesFunds}
	}
	return out
}
