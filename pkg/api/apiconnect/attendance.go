// Package apiconnect wires the api messages to Connect handlers and clients.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/signin/pkg/api"
)

const AttendanceServiceName = "signin.v1.AttendanceService"

const (
	AttendanceServiceScanProcedure             = "/signin.v1.AttendanceService/Scan"
	AttendanceServiceSignInProcedure           = "/signin.v1.AttendanceService/SignIn"
	AttendanceServiceSignOutProcedure          = "/signin.v1.AttendanceService/SignOut"
	AttendanceServiceCurrentlyPresentProcedure = "/signin.v1.AttendanceService/CurrentlyPresent"
	AttendanceServiceForceCloseProcedure       = "/signin.v1.AttendanceService/ForceClose"
	AttendanceServiceDiscardExpiredProcedure   = "/signin.v1.AttendanceService/DiscardExpired"
	AttendanceServiceReconcileNowProcedure     = "/signin.v1.AttendanceService/ReconcileNow"
	AttendanceServiceEventStatsProcedure       = "/signin.v1.AttendanceService/EventStats"
	AttendanceServiceTrimStampsProcedure       = "/signin.v1.AttendanceService/TrimStamps"
	AttendanceServiceAutoloadEventProcedure    = "/signin.v1.AttendanceService/AutoloadEvent"
)

type AttendanceServiceHandler interface {
	Scan(context.Context, *connect.Request[api.ScanRequest]) (*connect.Response[api.TransitionResponse], error)
	SignIn(context.Context, *connect.Request[api.SignInRequest]) (*connect.Response[api.TransitionResponse], error)
	SignOut(context.Context, *connect.Request[api.SignOutRequest]) (*connect.Response[api.TransitionResponse], error)
	CurrentlyPresent(context.Context, *connect.Request[api.CurrentlyPresentRequest]) (*connect.Response[api.CurrentlyPresentResponse], error)
	ForceClose(context.Context, *connect.Request[api.ForceCloseRequest]) (*connect.Response[api.ForceCloseResponse], error)
	DiscardExpired(context.Context, *connect.Request[api.DiscardExpiredRequest]) (*connect.Response[api.DiscardExpiredResponse], error)
	ReconcileNow(context.Context, *connect.Request[api.ReconcileNowRequest]) (*connect.Response[api.ReconcileNowResponse], error)
	EventStats(context.Context, *connect.Request[api.EventStatsRequest]) (*connect.Response[api.EventStatsResponse], error)
	TrimStamps(context.Context, *connect.Request[api.TrimStampsRequest]) (*connect.Response[api.TrimStampsResponse], error)
	AutoloadEvent(context.Context, *connect.Request[api.AutoloadEventRequest]) (*connect.Response[api.AutoloadEventResponse], error)
}

// NewAttendanceServiceHandler returns the mount path and handler for svc.
func NewAttendanceServiceHandler(svc AttendanceServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return route(AttendanceServiceName, map[string]http.Handler{
		AttendanceServiceScanProcedure:             connect.NewUnaryHandler(AttendanceServiceScanProcedure, svc.Scan, opts...),
		AttendanceServiceSignInProcedure:           connect.NewUnaryHandler(AttendanceServiceSignInProcedure, svc.SignIn, opts...),
		AttendanceServiceSignOutProcedure:          connect.NewUnaryHandler(AttendanceServiceSignOutProcedure, svc.SignOut, opts...),
		AttendanceServiceCurrentlyPresentProcedure: connect.NewUnaryHandler(AttendanceServiceCurrentlyPresentProcedure, svc.CurrentlyPresent, opts...),
		AttendanceServiceForceCloseProcedure:       connect.NewUnaryHandler(AttendanceServiceForceCloseProcedure, svc.ForceClose, opts...),
		AttendanceServiceDiscardExpiredProcedure:   connect.NewUnaryHandler(AttendanceServiceDiscardExpiredProcedure, svc.DiscardExpired, opts...),
		AttendanceServiceReconcileNowProcedure:     connect.NewUnaryHandler(AttendanceServiceReconcileNowProcedure, svc.ReconcileNow, opts...),
		AttendanceServiceEventStatsProcedure:       connect.NewUnaryHandler(AttendanceServiceEventStatsProcedure, svc.EventStats, opts...),
		AttendanceServiceTrimStampsProcedure:       connect.NewUnaryHandler(AttendanceServiceTrimStampsProcedure, svc.TrimStamps, opts...),
		AttendanceServiceAutoloadEventProcedure:    connect.NewUnaryHandler(AttendanceServiceAutoloadEventProcedure, svc.AutoloadEvent, opts...),
	})
}

type AttendanceServiceClient struct {
	scan             *connect.Client[api.ScanRequest, api.TransitionResponse]
	signIn           *connect.Client[api.SignInRequest, api.TransitionResponse]
	signOut          *connect.Client[api.SignOutRequest, api.TransitionResponse]
	currentlyPresent *connect.Client[api.CurrentlyPresentRequest, api.CurrentlyPresentResponse]
	forceClose       *connect.Client[api.ForceCloseRequest, api.ForceCloseResponse]
	discardExpired   *connect.Client[api.DiscardExpiredRequest, api.DiscardExpiredResponse]
	reconcileNow     *connect.Client[api.ReconcileNowRequest, api.ReconcileNowResponse]
	eventStats       *connect.Client[api.EventStatsRequest, api.EventStatsResponse]
	trimStamps       *connect.Client[api.TrimStampsRequest, api.TrimStampsResponse]
	autoloadEvent    *connect.Client[api.AutoloadEventRequest, api.AutoloadEventResponse]
}

func NewAttendanceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AttendanceServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withClientCodec(opts)
	return &AttendanceServiceClient{
		scan:             connect.NewClient[api.ScanRequest, api.TransitionResponse](httpClient, baseURL+AttendanceServiceScanProcedure, opts...),
		signIn:           connect.NewClient[api.SignInRequest, api.TransitionResponse](httpClient, baseURL+AttendanceServiceSignInProcedure, opts...),
		signOut:          connect.NewClient[api.SignOutRequest, api.TransitionResponse](httpClient, baseURL+AttendanceServiceSignOutProcedure, opts...),
		currentlyPresent: connect.NewClient[api.CurrentlyPresentRequest, api.CurrentlyPresentResponse](httpClient, baseURL+AttendanceServiceCurrentlyPresentProcedure, opts...),
		forceClose:       connect.NewClient[api.ForceCloseRequest, api.ForceCloseResponse](httpClient, baseURL+AttendanceServiceForceCloseProcedure, opts...),
		discardExpired:   connect.NewClient[api.DiscardExpiredRequest, api.DiscardExpiredResponse](httpClient, baseURL+AttendanceServiceDiscardExpiredProcedure, opts...),
		reconcileNow:     connect.NewClient[api.ReconcileNowRequest, api.ReconcileNowResponse](httpClient, baseURL+AttendanceServiceReconcileNowProcedure, opts...),
		eventStats:       connect.NewClient[api.EventStatsRequest, api.EventStatsResponse](httpClient, baseURL+AttendanceServiceEventStatsProcedure, opts...),
		trimStamps:       connect.NewClient[api.TrimStampsRequest, api.TrimStampsResponse](httpClient, baseURL+AttendanceServiceTrimStampsProcedure, opts...),
		autoloadEvent:    connect.NewClient[api.AutoloadEventRequest, api.AutoloadEventResponse](httpClient, baseURL+AttendanceServiceAutoloadEventProcedure, opts...),
	}
}

func (c *AttendanceServiceClient) Scan(ctx context.Context, req *connect.Request[api.ScanRequest]) (*connect.Response[api.TransitionResponse], error) {
	return c.scan.CallUnary(ctx, req)
}

func (c *AttendanceServiceClient) SignIn(ctx context.Context, req *connect.Request[api.SignInRequest]) (*connect.Response[api.TransitionResponse], error) {
	return c.signIn.CallUnary(ctx, req)
}

func (c *AttendanceServiceClient) SignOut(ctx context.Context, req *connect.Request[api.SignOutRequest]) (*connect.Response[api.TransitionResponse], error) {
	return c.signOut.CallUnary(ctx, req)
}

func (c *AttendanceServiceClient) CurrentlyPresent(ctx context.Context, req *connect.Request[api.CurrentlyPresentRequest]) (*connect.Response[api.CurrentlyPresentResponse], error) {
	return c.currentlyPresent.CallUnary(ctx, req)
}

func (c *AttendanceServiceClient) ForceClose(ctx context.Context, req *connect.Request[api.ForceCloseRequest]) (*connect.Response[api.ForceCloseResponse], error) {
	return c.forceClose.CallUnary(ctx, req)
}

func (c *AttendanceServiceClient) DiscardExpired(ctx context.Context, req *connect.Request[api.DiscardExpiredRequest]) (*connect.Response[api.DiscardExpiredResponse], error) {
	return c.discardExpired.CallUnary(ctx, req)
}

func (c *AttendanceServiceClient) ReconcileNow(ctx context.Context, req *connect.Request[api.ReconcileNowRequest]) (*connect.Response[api.ReconcileNowResponse], error) {
	return c.reconcileNow.CallUnary(ctx, req)
}

func (c *AttendanceServiceClient) EventStats(ctx context.Context, req *connect.Request[api.EventStatsRequest]) (*connect.Response[api.EventStatsResponse], error) {
	return c.eventStats.CallUnary(ctx, req)
}

func (c *AttendanceServiceClient) TrimStamps(ctx context.Context, req *connect.Request[api.TrimStampsRequest]) (*connect.Response[api.TrimStampsResponse], error) {
	return c.trimStamps.CallUnary(ctx, req)
}

func (c *AttendanceServiceClient) AutoloadEvent(ctx context.Context, req *connect.Request[api.AutoloadEventRequest]) (*connect.Response[api.AutoloadEventResponse], error) {
	return c.autoloadEvent.CallUnary(ctx, req)
}
