package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/signin/pkg/api"
)

const FundsServiceName = "signin.v1.FundsService"

const (
	FundsServiceFundsForProcedure        = "/signin.v1.FundsService/FundsFor"
	FundsServiceYearlyFundsProcedure     = "/signin.v1.FundsService/YearlyFunds"
	FundsServiceOverheadTotalProcedure   = "/signin.v1.FundsService/OverheadTotal"
	FundsServiceFinanceOverviewProcedure = "/signin.v1.FundsService/FinanceOverview"
)

type FundsServiceHandler interface {
	FundsFor(context.Context, *connect.Request[api.FundsForRequest]) (*connect.Response[api.FundsResponse], error)
	YearlyFunds(context.Context, *connect.Request[api.YearlyFundsRequest]) (*connect.Response[api.FundsResponse], error)
	OverheadTotal(context.Context, *connect.Request[api.OverheadTotalRequest]) (*connect.Response[api.FundsResponse], error)
	FinanceOverview(context.Context, *connect.Request[api.FinanceOverviewRequest]) (*connect.Response[api.FinanceOverviewResponse], error)
}

func NewFundsServiceHandler(svc FundsServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return route(FundsServiceName, map[string]http.Handler{
		FundsServiceFundsForProcedure:        connect.NewUnaryHandler(FundsServiceFundsForProcedure, svc.FundsFor, opts...),
		FundsServiceYearlyFundsProcedure:     connect.NewUnaryHandler(FundsServiceYearlyFundsProcedure, svc.YearlyFunds, opts...),
		FundsServiceOverheadTotalProcedure:   connect.NewUnaryHandler(FundsServiceOverheadTotalProcedure, svc.OverheadTotal, opts...),
		FundsServiceFinanceOverviewProcedure: connect.NewUnaryHandler(FundsServiceFinanceOverviewProcedure, svc.FinanceOverview, opts...),
	})
}

type FundsServiceClient struct {
	fundsFor        *connect.Client[api.FundsForRequest, api.FundsResponse]
	yearlyFunds     *connect.Client[api.YearlyFundsRequest, api.FundsResponse]
	overheadTotal   *connect.Client[api.OverheadTotalRequest, api.FundsResponse]
	financeOverview *connect.Client[api.FinanceOverviewRequest, api.FinanceOverviewResponse]
}

func NewFundsServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *FundsServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withClientCodec(opts)
	return &FundsServiceClient{
		fundsFor:        connect.NewClient[api.FundsForRequest, api.FundsResponse](httpClient, baseURL+FundsServiceFundsForProcedure, opts...),
		yearlyFunds:     connect.NewClient[api.YearlyFundsRequest, api.FundsResponse](httpClient, baseURL+FundsServiceYearlyFundsProcedure, opts...),
		overheadTotal:   connect.NewClient[api.OverheadTotalRequest, api.FundsResponse](httpClient, baseURL+FundsServiceOverheadTotalProcedure, opts...),
		financeOverview: connect.NewClient[api.FinanceOverviewRequest, api.FinanceOverviewResponse](httpClient, baseURL+FundsServiceFinanceOverviewProcedure, opts...),
	}
}

func (c *FundsServiceClient) FundsFor(ctx context.Context, req *connect.Request[api.FundsForRequest]) (*connect.Response[api.FundsResponse], error) {
	return c.fundsFor.CallUnary(ctx, req)
}

func (c *FundsServiceClient) YearlyFunds(ctx context.Context, req *connect.Request[api.YearlyFundsRequest]) (*connect.Response[api.FundsResponse], error) {
	return c.yearlyFunds.CallUnary(ctx, req)
}

func (c *FundsServiceClient) OverheadTotal(ctx context.Context, req *connect.Request[api.OverheadTotalRequest]) (*connect.Response[api.FundsResponse], error) {
	return c.overheadTotal.CallUnary(ctx, req)
}

func (c *FundsServiceClient) FinanceOverview(ctx context.Context, req *connect.Request[api.FinanceOverviewRequest]) (*connect.Response[api.FinanceOverviewResponse], error) {
	return c.financeOverview.CallUnary(ctx, req)
}
