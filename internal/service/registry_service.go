package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/mmynk/signin/internal/auth"
	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/middleware"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/internal/storage"
	"github.com/mmynk/signin/pkg/api"
)

// maxWeeklySpan bounds CreateWeeklyEvents to one school year of dates.
const maxWeeklySpan = 366 * 24 * time.Hour

// GraceDefaults are applied to new events that do not set grace minutes.
type GraceDefaults struct {
	PreEventMinutes  int
	PostEventMinutes int
}

// RegistryService implements the Connect RegistryService.
type RegistryService struct {
	store    storage.Store
	clock    clock.Clock
	zone     clock.Zone
	defaults GraceDefaults
	jwt      *auth.JWTManager
}

// NewRegistryService creates a RegistryService. jwtManager may be nil, in
// which case IssueToken is unavailable.
func NewRegistryService(store storage.Store, clk clock.Clock, zone clock.Zone, defaults GraceDefaults, jwtManager *auth.JWTManager) *RegistryService {
	return &RegistryService{store: store, clock: clk, zone: zone, defaults: defaults, jwt: jwtManager}
}

// CreateRole creates a named capability set.
func (s *RegistryService) CreateRole(ctx context.Context, req *connect.Request[api.CreateRoleRequest]) (*connect.Response[api.CreateRoleResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	role := &models.Role{Name: req.Msg.Name, Capabilities: toCapabilities(req.Msg.Capabilities)}
	if err := s.store.CreateRole(ctx, role); err != nil {
		slog.Error("CreateRole failed", "name", role.Name, "error", err)
		return nil, toConnectError(err)
	}
	slog.Info("Role created", "role_id", role.ID, "name", role.Name)

	return connect.NewResponse(&api.CreateRoleResponse{
		Role: &api.Role{ID: role.ID, Name: role.Name, Capabilities: fromCapabilities(role.Capabilities)},
	}), nil
}

// CreateSubteam creates a reporting group.
func (s *RegistryService) CreateSubteam(ctx context.Context, req *connect.Request[api.CreateSubteamRequest]) (*connect.Response[api.CreateSubteamResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	subteam := &models.Subteam{Name: req.Msg.Name}
	if err := s.store.CreateSubteam(ctx, subteam); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CreateSubteamResponse{
		Subteam: &api.Subteam{ID: subteam.ID, Name: subteam.Name},
	}), nil
}

// CreateMember registers a member with a fresh presence code.
func (s *RegistryService) CreateMember(ctx context.Context, req *connect.Request[api.CreateMemberRequest]) (*connect.Response[api.MemberResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	member := models.NewMember(req.Msg.Name, req.Msg.DisplayName, req.Msg.RoleID)
	member.SubteamID = req.Msg.SubteamID
	member.Approved = req.Msg.Approved
	if err := s.store.CreateMember(ctx, member); err != nil {
		slog.Error("CreateMember failed", "name", member.Name, "error", err)
		return nil, toConnectError(err)
	}
	slog.Info("Member created", "member_id", member.ID, "approved", member.Approved)
	return connect.NewResponse(&api.MemberResponse{Member: toAPIMember(member)}), nil
}

// ApproveMember allows a member to be scanned in.
func (s *RegistryService) ApproveMember(ctx context.Context, req *connect.Request[api.ApproveMemberRequest]) (*connect.Response[api.MemberResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if err := s.store.ApproveMember(ctx, req.Msg.MemberID); err != nil {
		return nil, toConnectError(err)
	}
	member, err := s.store.GetMember(ctx, req.Msg.MemberID)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Member approved", "member_id", member.ID)
	return connect.NewResponse(&api.MemberResponse{Member: toAPIMember(member)}), nil
}

// IssueToken signs a bearer token carrying the member's current capabilities.
func (s *RegistryService) IssueToken(ctx context.Context, req *connect.Request[api.IssueTokenRequest]) (*connect.Response[api.IssueTokenResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if s.jwt == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, auth.ErrMissingToken)
	}
	member, err := s.store.GetMember(ctx, req.Msg.MemberID)
	if err != nil {
		return nil, toConnectError(err)
	}
	token, err := s.jwt.Generate(member)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&api.IssueTokenResponse{Token: token}), nil
}

// CreateEventType creates an event classification.
func (s *RegistryService) CreateEventType(ctx context.Context, req *connect.Request[api.CreateEventTypeRequest]) (*connect.Response[api.CreateEventTypeResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	eventType := &models.EventType{Name: req.Msg.Name, Description: req.Msg.Description, Autoload: req.Msg.Autoload}
	if err := s.store.CreateEventType(ctx, eventType); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CreateEventTypeResponse{
		EventType: &api.EventType{
			ID:          eventType.ID,
			Name:        eventType.Name,
			Description: eventType.Description,
			Autoload:    eventType.Autoload,
		},
	}), nil
}

// CreateEvent creates one event.
func (s *RegistryService) CreateEvent(ctx context.Context, req *connect.Request[api.CreateEventRequest]) (*connect.Response[api.EventResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	event := &models.Event{
		Enabled:          true,
		PreEventMinutes:  s.defaults.PreEventMinutes,
		PostEventMinutes: s.defaults.PostEventMinutes,
	}
	if err := s.applyEventFields(event, req.Msg.EventFields); err != nil {
		return nil, err
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		slog.Error("CreateEvent failed", "name", event.Name, "error", err)
		return nil, toConnectError(err)
	}
	slog.Info("Event created", "event_id", event.ID, "code", event.Code)
	return connect.NewResponse(&api.EventResponse{Event: toAPIEvent(s.zone, event)}), nil
}

// UpdateEvent replaces an event's writable fields. Omitted grace minutes and
// Enabled keep their current values.
func (s *RegistryService) UpdateEvent(ctx context.Context, req *connect.Request[api.UpdateEventRequest]) (*connect.Response[api.EventResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	event, err := s.store.GetEvent(ctx, req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := s.applyEventFields(event, req.Msg.EventFields); err != nil {
		return nil, err
	}
	if err := s.store.UpdateEvent(ctx, event); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Event updated", "event_id", event.ID)
	return connect.NewResponse(&api.EventResponse{Event: toAPIEvent(s.zone, event)}), nil
}

// applyEventFields copies f onto event. A missing code is generated from
// the name when the event has none yet.
func (s *RegistryService) applyEventFields(event *models.Event, f api.EventFields) error {
	start, err := s.zone.ParseLocal(f.Start)
	if err != nil {
		return invalidArgument("start: %v", err)
	}
	end, err := s.zone.ParseLocal(f.End)
	if err != nil {
		return invalidArgument("end: %v", err)
	}
	if !start.Before(end) {
		return invalidArgument("start must be before end")
	}

	event.Name = f.Name
	event.Description = f.Description
	event.Location = f.Location
	event.Start = start
	event.End = end
	event.TypeID = f.TypeID
	event.Funds = f.Funds
	event.Cost = f.Cost
	event.Overhead = f.Overhead
	if f.Code != "" {
		event.Code = f.Code
	} else if event.Code == "" {
		event.Code = newEventCode(f.Name)
	}
	if f.Enabled != nil {
		event.Enabled = *f.Enabled
	}
	if f.PreEventMinutes != nil {
		event.PreEventMinutes = *f.PreEventMinutes
	}
	if f.PostEventMinutes != nil {
		event.PostEventMinutes = *f.PostEventMinutes
	}
	return nil
}

// newEventCode slugs the name and appends a short random suffix.
func newEventCode(name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "event"
	}
	return base + "-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
}

// GetEvent looks an event up by ID or code.
func (s *RegistryService) GetEvent(ctx context.Context, req *connect.Request[api.GetEventRequest]) (*connect.Response[api.EventResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	var event *models.Event
	var err error
	if req.Msg.ID != "" {
		event, err = s.store.GetEvent(ctx, req.Msg.ID)
	} else {
		event, err = s.store.GetEventByCode(ctx, req.Msg.Code)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.EventResponse{Event: toAPIEvent(s.zone, event)}), nil
}

// ListEvents lists events in the requested period relative to now. "today"
// is the calendar day in the display zone.
func (s *RegistryService) ListEvents(ctx context.Context, req *connect.Request[api.ListEventsRequest]) (*connect.Response[api.ListEventsResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	filter := storage.EventFilter{EnabledOnly: !req.Msg.IncludeDisabled}
	switch req.Msg.Period {
	case "previous":
		filter.EndBy = now
	case "active":
		filter.OverlapsAt = now
	case "today":
		y, m, d := s.zone.FromStorage(now).Date()
		dayStart := s.zone.Combine(y, m, d, 0)
		filter.StartBefore = s.zone.Combine(y, m, d+1, 0)
		filter.EndAfter = dayStart
	case "upcoming":
		filter.StartFrom = now
	}

	events, err := s.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &api.ListEventsResponse{Events: make([]*api.Event, len(events))}
	for i, e := range events {
		resp.Events[i] = toAPIEvent(s.zone, e)
	}
	return connect.NewResponse(resp), nil
}

// DeleteEvent removes an event together with its sessions, stamps and blocks.
func (s *RegistryService) DeleteEvent(ctx context.Context, req *connect.Request[api.DeleteEventRequest]) (*connect.Response[api.Empty], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if err := s.store.DeleteEvent(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Event deleted", "event_id", req.Msg.ID, "by", middleware.GetMemberID(ctx))
	return connect.NewResponse(&api.Empty{}), nil
}

// CreateWeeklyEvents creates one event per matching weekday in [From, To].
func (s *RegistryService) CreateWeeklyEvents(ctx context.Context, req *connect.Request[api.CreateWeeklyEventsRequest]) (*connect.Response[api.CreateWeeklyEventsResponse], error) {
	msg := req.Msg
	if err := validateRequest(msg); err != nil {
		return nil, err
	}

	from, err := time.Parse(time.DateOnly, msg.From)
	if err != nil {
		return nil, invalidArgument("from: %v", err)
	}
	to, err := time.Parse(time.DateOnly, msg.To)
	if err != nil {
		return nil, invalidArgument("to: %v", err)
	}
	if to.Before(from) {
		return nil, invalidArgument("to must not be before from")
	}
	if to.Sub(from) > maxWeeklySpan {
		return nil, invalidArgument("date range exceeds one year")
	}
	startClock, err := timeOfDay(msg.StartTime)
	if err != nil {
		return nil, invalidArgument("start_time: %v", err)
	}
	endClock, err := timeOfDay(msg.EndTime)
	if err != nil {
		return nil, invalidArgument("end_time: %v", err)
	}
	if endClock <= startClock {
		return nil, invalidArgument("end_time must be after start_time")
	}

	weekdays := make(map[time.Weekday]bool, len(msg.Weekdays))
	for _, d := range msg.Weekdays {
		weekdays[time.Weekday(d)] = true
	}

	pre, post := s.defaults.PreEventMinutes, s.defaults.PostEventMinutes
	if msg.PreEventMinutes != nil {
		pre = *msg.PreEventMinutes
	}
	if msg.PostEventMinutes != nil {
		post = *msg.PostEventMinutes
	}

	var events []*models.Event
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if !weekdays[day.Weekday()] {
			continue
		}
		y, m, d := day.Date()
		events = append(events, &models.Event{
			Name:             msg.Name,
			Description:      msg.Description,
			Location:         msg.Location,
			Code:             newEventCode(msg.Name),
			Start:            s.zone.Combine(y, m, d, startClock),
			End:              s.zone.Combine(y, m, d, endClock),
			TypeID:           msg.TypeID,
			Enabled:          true,
			PreEventMinutes:  pre,
			PostEventMinutes: post,
			Funds:            msg.Funds,
			Cost:             msg.Cost,
			Overhead:         msg.Overhead,
		})
	}

	if len(events) > 0 {
		if err := s.store.CreateEvents(ctx, events); err != nil {
			slog.Error("CreateWeeklyEvents failed", "name", msg.Name, "error", err)
			return nil, toConnectError(err)
		}
	}
	slog.Info("Weekly events created", "name", msg.Name, "count", len(events))

	resp := &api.CreateWeeklyEventsResponse{Events: make([]*api.Event, len(events))}
	for i, e := range events {
		resp.Events[i] = toAPIEvent(s.zone, e)
	}
	return connect.NewResponse(resp), nil
}

func timeOfDay(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// CreateEventBlock adds a registration sub-window to an event.
func (s *RegistryService) CreateEventBlock(ctx context.Context, req *connect.Request[api.CreateEventBlockRequest]) (*connect.Response[api.EventBlockResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	start, err := s.zone.ParseLocal(req.Msg.Start)
	if err != nil {
		return nil, invalidArgument("start: %v", err)
	}
	end, err := s.zone.ParseLocal(req.Msg.End)
	if err != nil {
		return nil, invalidArgument("end: %v", err)
	}
	event, err := s.store.GetEvent(ctx, req.Msg.EventID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if start.Before(event.Start) || end.After(event.End) {
		return nil, invalidArgument("block must lie within the event window")
	}
	block := &models.EventBlock{EventID: event.ID, Start: start, End: end}
	if err := s.store.CreateEventBlock(ctx, block); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.EventBlockResponse{Block: toAPIBlock(s.zone, block)}), nil
}

// RegisterForBlock records the caller's interest in a block. Registering
// twice is a no-op.
func (s *RegistryService) RegisterForBlock(ctx context.Context, req *connect.Request[api.RegisterForBlockRequest]) (*connect.Response[api.Empty], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	memberID, err := actingMember(ctx, req.Msg.MemberID)
	if err != nil {
		return nil, err
	}
	if err := s.store.RegisterForBlock(ctx, req.Msg.BlockID, memberID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.Empty{}), nil
}

// ListEventBlocks lists an event's blocks with registration counts.
func (s *RegistryService) ListEventBlocks(ctx context.Context, req *connect.Request[api.ListEventBlocksRequest]) (*connect.Response[api.ListEventBlocksResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	blocks, err := s.store.ListEventBlocks(ctx, req.Msg.EventID)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &api.ListEventBlocksResponse{Blocks: make([]*api.EventBlock, len(blocks))}
	for i, b := range blocks {
		resp.Blocks[i] = toAPIBlock(s.zone, b)
	}
	return connect.NewResponse(resp), nil
}
