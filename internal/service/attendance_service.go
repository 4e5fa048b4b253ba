package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/signin/internal/attendance"
	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/middleware"
	"github.com/mmynk/signin/internal/reconcile"
	"github.com/mmynk/signin/pkg/api"
)

// AttendanceService implements the Connect AttendanceService.
type AttendanceService struct {
	attendance *attendance.Service
	scheduler  *reconcile.Scheduler
	zone       clock.Zone
}

// NewAttendanceService creates an AttendanceService. Times in responses are
// rendered in zone.
func NewAttendanceService(svc *attendance.Service, scheduler *reconcile.Scheduler, zone clock.Zone) *AttendanceService {
	return &AttendanceService{attendance: svc, scheduler: scheduler, zone: zone}
}

// Scan toggles a member at an event by presence code.
func (s *AttendanceService) Scan(ctx context.Context, req *connect.Request[api.ScanRequest]) (*connect.Response[api.TransitionResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	slog.Debug("Scan request received", "event_code", req.Msg.EventCode)

	result, err := s.attendance.Scan(ctx, req.Msg.EventCode, req.Msg.MemberCode)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(s.transitionResponse(result)), nil
}

// SignIn opens a session for the caller.
func (s *AttendanceService) SignIn(ctx context.Context, req *connect.Request[api.SignInRequest]) (*connect.Response[api.TransitionResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	memberID, err := actingMember(ctx, req.Msg.MemberID)
	if err != nil {
		return nil, err
	}

	result, err := s.attendance.SignIn(ctx, req.Msg.EventCode, memberID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(s.transitionResponse(result)), nil
}

// SignOut closes the caller's session.
func (s *AttendanceService) SignOut(ctx context.Context, req *connect.Request[api.SignOutRequest]) (*connect.Response[api.TransitionResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	memberID, err := actingMember(ctx, req.Msg.MemberID)
	if err != nil {
		return nil, err
	}

	result, err := s.attendance.SignOut(ctx, req.Msg.EventCode, memberID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(s.transitionResponse(result)), nil
}

// actingMember resolves whom a self-service call acts on. A token holder acts
// on itself; mentors and admins may name another member. Without a token the
// request must name the member.
func actingMember(ctx context.Context, requested string) (string, error) {
	claims := middleware.GetClaims(ctx)
	if claims == nil {
		if requested == "" {
			return "", connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("member_id required"))
		}
		return requested, nil
	}
	if requested == "" || requested == claims.MemberID {
		return claims.MemberID, nil
	}
	if claims.Capabilities.Mentor || claims.Capabilities.Admin {
		return requested, nil
	}
	return "", connect.NewError(connect.CodePermissionDenied, fmt.Errorf("cannot act on behalf of another member"))
}

func (s *AttendanceService) transitionResponse(r *attendance.Result) *api.TransitionResponse {
	resp := &api.TransitionResponse{
		Outcome:    r.Outcome.String(),
		MemberName: r.Member.HumanReadable(),
		EventName:  r.Event.Name,
		Stamp:      toAPIStamp(s.zone, r.Stamp),
		Present:    toAPISessions(s.zone, r.Present),
	}
	if r.Active != nil {
		resp.Active = &api.Session{
			ID:         r.Active.ID,
			MemberID:   r.Member.ID,
			MemberName: r.Member.HumanReadable(),
			EventID:    r.Event.ID,
			EventCode:  r.Event.Code,
			EventName:  r.Event.Name,
			Start:      s.zone.FromStorage(r.Active.Start),
		}
		if r.Member.Subteam != nil {
			resp.Active.SubteamName = r.Member.Subteam.Name
		}
	}
	return resp
}

// CurrentlyPresent lists the open sessions at an event.
func (s *AttendanceService) CurrentlyPresent(ctx context.Context, req *connect.Request[api.CurrentlyPresentRequest]) (*connect.Response[api.CurrentlyPresentResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	actives, err := s.attendance.CurrentlyPresent(ctx, req.Msg.EventCode)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CurrentlyPresentResponse{Sessions: toAPISessions(s.zone, actives)}), nil
}

// ForceClose closes another member's session with or without credit.
func (s *AttendanceService) ForceClose(ctx context.Context, req *connect.Request[api.ForceCloseRequest]) (*connect.Response[api.ForceCloseResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	slog.Info("ForceClose request received",
		"active_id", req.Msg.ActiveID,
		"credit", req.Msg.Credit,
		"by", middleware.GetMemberID(ctx),
	)

	var end *time.Time
	if req.Msg.End != "" {
		t, err := s.zone.ParseLocal(req.Msg.End)
		if err != nil {
			return nil, invalidArgument("end: %v", err)
		}
		end = &t
	}

	result, err := s.attendance.ForceClose(ctx, req.Msg.ActiveID, req.Msg.Credit, end)
	if err != nil {
		slog.Warn("ForceClose failed", "active_id", req.Msg.ActiveID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ForceCloseResponse{
		MemberID: result.MemberID,
		EventID:  result.EventID,
		Stamp:    toAPIStamp(s.zone, result.Stamp),
	}), nil
}

// DiscardExpired drops every session whose event window has passed.
func (s *AttendanceService) DiscardExpired(ctx context.Context, req *connect.Request[api.DiscardExpiredRequest]) (*connect.Response[api.DiscardExpiredResponse], error) {
	n, err := s.attendance.DiscardExpired(ctx)
	if err != nil {
		slog.Error("DiscardExpired failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DiscardExpiredResponse{Discarded: n}), nil
}

// ReconcileNow runs one reconciliation pass immediately.
func (s *AttendanceService) ReconcileNow(ctx context.Context, req *connect.Request[api.ReconcileNowRequest]) (*connect.Response[api.ReconcileNowResponse], error) {
	report, err := s.scheduler.ReconcileNow(ctx)
	if err != nil {
		slog.Error("ReconcileNow failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ReconcileNowResponse{
		Policy:  string(report.Policy),
		Scanned: report.Scanned,
		Stale:   report.Stale,
		Closed:  report.Closed,
		Failed:  report.Failed,
	}), nil
}

// EventStats reports per-member and per-subteam time at an event.
func (s *AttendanceService) EventStats(ctx context.Context, req *connect.Request[api.EventStatsRequest]) (*connect.Response[api.EventStatsResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	stats, err := s.attendance.EventStats(ctx, req.Msg.EventID)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &api.EventStatsResponse{
		Event:        toAPIEvent(s.zone, stats.Event),
		Members:      make([]api.MemberTime, len(stats.Members)),
		Subteams:     make([]api.SubteamTime, len(stats.Subteams)),
		TotalSeconds: stats.Total.Seconds(),
	}
	for i, m := range stats.Members {
		resp.Members[i] = api.MemberTime{
			MemberID: m.MemberID,
			Name:     m.Name,
			Subteam:  m.Subteam,
			Seconds:  m.Time.Seconds(),
			Present:  m.Present,
		}
	}
	for i, st := range stats.Subteams {
		resp.Subteams[i] = api.SubteamTime{Name: st.Name, Seconds: st.Time.Seconds()}
	}
	return connect.NewResponse(resp), nil
}

// TrimStamps clamps an event's completed sessions into its effective window.
func (s *AttendanceService) TrimStamps(ctx context.Context, req *connect.Request[api.TrimStampsRequest]) (*connect.Response[api.TrimStampsResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	n, err := s.attendance.TrimStamps(ctx, req.Msg.EventID)
	if err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Stamps trimmed", "event_id", req.Msg.EventID, "count", n)
	return connect.NewResponse(&api.TrimStampsResponse{Trimmed: n}), nil
}

// AutoloadEvent returns the event idle displays should show, if any.
func (s *AttendanceService) AutoloadEvent(ctx context.Context, req *connect.Request[api.AutoloadEventRequest]) (*connect.Response[api.AutoloadEventResponse], error) {
	event, err := s.attendance.AutoloadEvent(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &api.AutoloadEventResponse{}
	if event != nil {
		resp.EventCode = event.Code
		resp.Event = toAPIEvent(s.zone, event)
	}
	return connect.NewResponse(resp), nil
}
