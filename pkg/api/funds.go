package api

// Amounts are in currency units (cents / 100). A nil Year covers all events.

type FundsForRequest struct {
	EventID  string `json:"event_id" validate:"required"`
	MemberID string `json:"member_id" validate:"required"`
}

type FundsResponse struct {
	Amount float64 `json:"amount"`
}

type YearlyFundsRequest struct {
	MemberID string `json:"member_id" validate:"required"`
	Year     *int   `json:"year,omitempty" validate:"omitempty,gt=0"`
}

type OverheadTotalRequest struct {
	Year *int `json:"year,omitempty" validate:"omitempty,gt=0"`
}

type FinanceOverviewRequest struct {
	Year *int `json:"year,omitempty" validate:"omitempty,gt=0"`
}

type MemberFunds struct {
	MemberID string  `json:"member_id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
}

type FinanceOverviewResponse struct {
	Year     *int          `json:"year,omitempty"`
	Overhead float64       `json:"overhead"`
	Members  []MemberFunds `json:"members"`
}
