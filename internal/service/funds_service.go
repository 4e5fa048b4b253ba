package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/signin/internal/funds"
	"github.com/mmynk/signin/pkg/api"
)

// FundsService implements the Connect FundsService.
type FundsService struct {
	engine *funds.Engine
}

// NewFundsService creates a FundsService backed by engine.
func NewFundsService(engine *funds.Engine) *FundsService {
	return &FundsService{engine: engine}
}

// FundsFor returns a member's share of one event's funds.
func (s *FundsService) FundsFor(ctx context.Context, req *connect.Request[api.FundsForRequest]) (*connect.Response[api.FundsResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	amount, err := s.engine.FundsFor(ctx, req.Msg.EventID, req.Msg.MemberID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.FundsResponse{Amount: amount}), nil
}

// YearlyFunds sums a member's shares over a school year, or all events.
func (s *FundsService) YearlyFunds(ctx context.Context, req *connect.Request[api.YearlyFundsRequest]) (*connect.Response[api.FundsResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	amount, err := s.engine.YearlyFunds(ctx, req.Msg.MemberID, req.Msg.Year)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.FundsResponse{Amount: amount}), nil
}

// OverheadTotal sums the retained overhead over a school year, or all events.
func (s *FundsService) OverheadTotal(ctx context.Context, req *connect.Request[api.OverheadTotalRequest]) (*connect.Response[api.FundsResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	amount, err := s.engine.OverheadTotal(ctx, req.Msg.Year)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.FundsResponse{Amount: amount}), nil
}

// FinanceOverview reports overhead plus every visible member's yearly funds.
func (s *FundsService) FinanceOverview(ctx context.Context, req *connect.Request[api.FinanceOverviewRequest]) (*connect.Response[api.FinanceOverviewResponse], error) {
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	overview, err := s.engine.Overview(ctx, req.Msg.Year)
	if err != nil {
		slog.Error("FinanceOverview failed", "error", err)
		return nil, toConnectError(err)
	}

	members := make([]api.MemberFunds, len(overview.Members))
	for i, m := range overview.Members {
		members[i] = api.MemberFunds{MemberID: m.MemberID, Name: m.Name, Amount: m.Amount}
	}
	return connect.NewResponse(&api.FinanceOverviewResponse{
		Year:     overview.Year,
		Overhead: overview.Overhead,
		Members:  members,
	}), nil
}
