package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/signin/pkg/api"
)

const RegistryServiceName = "signin.v1.RegistryService"

const (
	RegistryServiceCreateRoleProcedure         = "/signin.v1.RegistryService/CreateRole"
	RegistryServiceCreateSubteamProcedure      = "/signin.v1.RegistryService/CreateSubteam"
	RegistryServiceCreateMemberProcedure       = "/signin.v1.RegistryService/CreateMember"
	RegistryServiceApproveMemberProcedure      = "/signin.v1.RegistryService/ApproveMember"
	RegistryServiceIssueTokenProcedure         = "/signin.v1.RegistryService/IssueToken"
	RegistryServiceCreateEventTypeProcedure    = "/signin.v1.RegistryService/CreateEventType"
	RegistryServiceCreateEventProcedure        = "/signin.v1.RegistryService/CreateEvent"
	RegistryServiceUpdateEventProcedure        = "/signin.v1.RegistryService/UpdateEvent"
	RegistryServiceGetEventProcedure           = "/signin.v1.RegistryService/GetEvent"
	RegistryServiceListEventsProcedure         = "/signin.v1.RegistryService/ListEvents"
	RegistryServiceDeleteEventProcedure        = "/signin.v1.RegistryService/DeleteEvent"
	RegistryServiceCreateWeeklyEventsProcedure = "/signin.v1.RegistryService/CreateWeeklyEvents"
	RegistryServiceCreateEventBlockProcedure   = "/signin.v1.RegistryService/CreateEventBlock"
	RegistryServiceRegisterForBlockProcedure   = "/signin.v1.RegistryService/RegisterForBlock"
	RegistryServiceListEventBlocksProcedure    = "/signin.v1.RegistryService/ListEventBlocks"
)

type RegistryServiceHandler interface {
	CreateRole(context.Context, *connect.Request[api.CreateRoleRequest]) (*connect.Response[api.CreateRoleResponse], error)
	CreateSubteam(context.Context, *connect.Request[api.CreateSubteamRequest]) (*connect.Response[api.CreateSubteamResponse], error)
	CreateMember(context.Context, *connect.Request[api.CreateMemberRequest]) (*connect.Response[api.MemberResponse], error)
	ApproveMember(context.Context, *connect.Request[api.ApproveMemberRequest]) (*connect.Response[api.MemberResponse], error)
	IssueToken(context.Context, *connect.Request[api.IssueTokenRequest]) (*connect.Response[api.IssueTokenResponse], error)
	CreateEventType(context.Context, *connect.Request[api.CreateEventTypeRequest]) (*connect.Response[api.CreateEventTypeResponse], error)
	CreateEvent(context.Context, *connect.Request[api.CreateEventRequest]) (*connect.Response[api.EventResponse], error)
	UpdateEvent(context.Context, *connect.Request[api.UpdateEventRequest]) (*connect.Response[api.EventResponse], error)
	GetEvent(context.Context, *connect.Request[api.GetEventRequest]) (*connect.Response[api.EventResponse], error)
	ListEvents(context.Context, *connect.Request[api.ListEventsRequest]) (*connect.Response[api.ListEventsResponse], error)
	DeleteEvent(context.Context, *connect.Request[api.DeleteEventRequest]) (*connect.Response[api.Empty], error)
	CreateWeeklyEvents(context.Context, *connect.Request[api.CreateWeeklyEventsRequest]) (*connect.Response[api.CreateWeeklyEventsResponse], error)
	CreateEventBlock(context.Context, *connect.Request[api.CreateEventBlockRequest]) (*connect.Response[api.EventBlockResponse], error)
	RegisterForBlock(context.Context, *connect.Request[api.RegisterForBlockRequest]) (*connect.Response[api.Empty], error)
	ListEventBlocks(context.Context, *connect.Request[api.ListEventBlocksRequest]) (*connect.Response[api.ListEventBlocksResponse], error)
}

func NewRegistryServiceHandler(svc RegistryServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return route(RegistryServiceName, map[string]http.Handler{
		RegistryServiceCreateRoleProcedure:         connect.NewUnaryHandler(RegistryServiceCreateRoleProcedure, svc.CreateRole, opts...),
		RegistryServiceCreateSubteamProcedure:      connect.NewUnaryHandler(RegistryServiceCreateSubteamProcedure, svc.CreateSubteam, opts...),
		RegistryServiceCreateMemberProcedure:       connect.NewUnaryHandler(RegistryServiceCreateMemberProcedure, svc.CreateMember, opts...),
		RegistryServiceApproveMemberProcedure:      connect.NewUnaryHandler(RegistryServiceApproveMemberProcedure, svc.ApproveMember, opts...),
		RegistryServiceIssueTokenProcedure:         connect.NewUnaryHandler(RegistryServiceIssueTokenProcedure, svc.IssueToken, opts...),
		RegistryServiceCreateEventTypeProcedure:    connect.NewUnaryHandler(RegistryServiceCreateEventTypeProcedure, svc.CreateEventType, opts...),
		RegistryServiceCreateEventProcedure:        connect.NewUnaryHandler(RegistryServiceCreateEventProcedure, svc.CreateEvent, opts...),
		RegistryServiceUpdateEventProcedure:        connect.NewUnaryHandler(RegistryServiceUpdateEventProcedure, svc.UpdateEvent, opts...),
		RegistryServiceGetEventProcedure:           connect.NewUnaryHandler(RegistryServiceGetEventProcedure, svc.GetEvent, opts...),
		RegistryServiceListEventsProcedure:         connect.NewUnaryHandler(RegistryServiceListEventsProcedure, svc.ListEvents, opts...),
		RegistryServiceDeleteEventProcedure:        connect.NewUnaryHandler(RegistryServiceDeleteEventProcedure, svc.DeleteEvent, opts...),
		RegistryServiceCreateWeeklyEventsProcedure: connect.NewUnaryHandler(RegistryServiceCreateWeeklyEventsProcedure, svc.CreateWeeklyEvents, opts...),
		RegistryServiceCreateEventBlockProcedure:   connect.NewUnaryHandler(RegistryServiceCreateEventBlockProcedure, svc.CreateEventBlock, opts...),
		RegistryServiceRegisterForBlockProcedure:   connect.NewUnaryHandler(RegistryServiceRegisterForBlockProcedure, svc.RegisterForBlock, opts...),
		RegistryServiceListEventBlocksProcedure:    connect.NewUnaryHandler(RegistryServiceListEventBlocksProcedure, svc.ListEventBlocks, opts...),
	})
}

type RegistryServiceClient struct {
	createRole         *connect.Client[api.CreateRoleRequest, api.CreateRoleResponse]
	createSubteam      *connect.Client[api.CreateSubteamRequest, api.CreateSubteamResponse]
	createMember       *connect.Client[api.CreateMemberRequest, api.MemberResponse]
	approveMember      *connect.Client[api.ApproveMemberRequest, api.MemberResponse]
	issueToken         *connect.Client[api.IssueTokenRequest, api.IssueTokenResponse]
	createEventType    *connect.Client[api.CreateEventTypeRequest, api.CreateEventTypeResponse]
	createEvent        *connect.Client[api.CreateEventRequest, api.EventResponse]
	updateEvent        *connect.Client[api.UpdateEventRequest, api.EventResponse]
	getEvent           *connect.Client[api.GetEventRequest, api.EventResponse]
	listEvents         *connect.Client[api.ListEventsRequest, api.ListEventsResponse]
	deleteEvent        *connect.Client[api.DeleteEventRequest, api.Empty]
	createWeeklyEvents *connect.Client[api.CreateWeeklyEventsRequest, api.CreateWeeklyEventsResponse]
	createEventBlock   *connect.Client[api.CreateEventBlockRequest, api.EventBlockResponse]
	registerForBlock   *connect.Client[api.RegisterForBlockRequest, api.Empty]
	listEventBlocks    *connect.Client[api.ListEventBlocksRequest, api.ListEventBlocksResponse]
}

func NewRegistryServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *RegistryServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withClientCodec(opts)
	return &RegistryServiceClient{
		createRole:         connect.NewClient[api.CreateRoleRequest, api.CreateRoleResponse](httpClient, baseURL+RegistryServiceCreateRoleProcedure, opts...),
		createSubteam:      connect.NewClient[api.CreateSubteamRequest, api.CreateSubteamResponse](httpClient, baseURL+RegistryServiceCreateSubteamProcedure, opts...),
		createMember:       connect.NewClient[api.CreateMemberRequest, api.MemberResponse](httpClient, baseURL+RegistryServiceCreateMemberProcedure, opts...),
		approveMember:      connect.NewClient[api.ApproveMemberRequest, api.MemberResponse](httpClient, baseURL+RegistryServiceApproveMemberProcedure, opts...),
		issueToken:         connect.NewClient[api.IssueTokenRequest, api.IssueTokenResponse](httpClient, baseURL+RegistryServiceIssueTokenProcedure, opts...),
		createEventType:    connect.NewClient[api.CreateEventTypeRequest, api.CreateEventTypeResponse](httpClient, baseURL+RegistryServiceCreateEventTypeProcedure, opts...),
		createEvent:        connect.NewClient[api.CreateEventRequest, api.EventResponse](httpClient, baseURL+RegistryServiceCreateEventProcedure, opts...),
		updateEvent:        connect.NewClient[api.UpdateEventRequest, api.EventResponse](httpClient, baseURL+RegistryServiceUpdateEventProcedure, opts...),
		getEvent:           connect.NewClient[api.GetEventRequest, api.EventResponse](httpClient, baseURL+RegistryServiceGetEventProcedure, opts...),
		listEvents:         connect.NewClient[api.ListEventsRequest, api.ListEventsResponse](httpClient, baseURL+RegistryServiceListEventsProcedure, opts...),
		deleteEvent:        connect.NewClient[api.DeleteEventRequest, api.Empty](httpClient, baseURL+RegistryServiceDeleteEventProcedure, opts...),
		createWeeklyEvents: connect.NewClient[api.CreateWeeklyEventsRequest, api.CreateWeeklyEventsResponse](httpClient, baseURL+RegistryServiceCreateWeeklyEventsProcedure, opts...),
		createEventBlock:   connect.NewClient[api.CreateEventBlockRequest, api.EventBlockResponse](httpClient, baseURL+RegistryServiceCreateEventBlockProcedure, opts...),
		registerForBlock:   connect.NewClient[api.RegisterForBlockRequest, api.Empty](httpClient, baseURL+RegistryServiceRegisterForBlockProcedure, opts...),
		listEventBlocks:    connect.NewClient[api.ListEventBlocksRequest, api.ListEventBlocksResponse](httpClient, baseURL+RegistryServiceListEventBlocksProcedure, opts...),
	}
}

func (c *RegistryServiceClient) CreateRole(ctx context.Context, req *connect.Request[api.CreateRoleRequest]) (*connect.Response[api.CreateRoleResponse], error) {
	return c.createRole.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) CreateSubteam(ctx context.Context, req *connect.Request[api.CreateSubteamRequest]) (*connect.Response[api.CreateSubteamResponse], error) {
	return c.createSubteam.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) CreateMember(ctx context.Context, req *connect.Request[api.CreateMemberRequest]) (*connect.Response[api.MemberResponse], error) {
	return c.createMember.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) ApproveMember(ctx context.Context, req *connect.Request[api.ApproveMemberRequest]) (*connect.Response[api.MemberResponse], error) {
	return c.approveMember.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) IssueToken(ctx context.Context, req *connect.Request[api.IssueTokenRequest]) (*connect.Response[api.IssueTokenResponse], error) {
	return c.issueToken.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) CreateEventType(ctx context.Context, req *connect.Request[api.CreateEventTypeRequest]) (*connect.Response[api.CreateEventTypeResponse], error) {
	return c.createEventType.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) CreateEvent(ctx context.Context, req *connect.Request[api.CreateEventRequest]) (*connect.Response[api.EventResponse], error) {
	return c.createEvent.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) UpdateEvent(ctx context.Context, req *connect.Request[api.UpdateEventRequest]) (*connect.Response[api.EventResponse], error) {
	return c.updateEvent.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) GetEvent(ctx context.Context, req *connect.Request[api.GetEventRequest]) (*connect.Response[api.EventResponse], error) {
	return c.getEvent.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) ListEvents(ctx context.Context, req *connect.Request[api.ListEventsRequest]) (*connect.Response[api.ListEventsResponse], error) {
	return c.listEvents.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) DeleteEvent(ctx context.Context, req *connect.Request[api.DeleteEventRequest]) (*connect.Response[api.Empty], error) {
	return c.deleteEvent.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) CreateWeeklyEvents(ctx context.Context, req *connect.Request[api.CreateWeeklyEventsRequest]) (*connect.Response[api.CreateWeeklyEventsResponse], error) {
	return c.createWeeklyEvents.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) CreateEventBlock(ctx context.Context, req *connect.Request[api.CreateEventBlockRequest]) (*connect.Response[api.EventBlockResponse], error) {
	return c.createEventBlock.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) RegisterForBlock(ctx context.Context, req *connect.Request[api.RegisterForBlockRequest]) (*connect.Response[api.Empty], error) {
	return c.registerForBlock.CallUnary(ctx, req)
}

func (c *RegistryServiceClient) ListEventBlocks(ctx context.Context, req *connect.Request[api.ListEventBlocksRequest]) (*connect.Response[api.ListEventBlocksResponse], error) {
	return c.listEventBlocks.CallUnary(ctx, req)
}
