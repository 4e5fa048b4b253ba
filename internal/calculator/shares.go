// Package calculator holds the pure arithmetic behind fund reports.
package calculator

import (
	"time"
)

// EventFunds carries the money fields of one event.
type EventFunds struct {
	Funds    int64   // cents received
	Cost     int64   // cents spent
	Overhead float64 // fraction retained by the organization
}

// Net is Funds minus Cost in cents. It may be negative.
func (f EventFunds) Net() int64 {
	return f.Funds - f.Cost
}

// Session is one completed attendance interval at an event.
type Session struct {
	MemberID      string
	Elapsed       time.Duration
	ReceivesFunds bool
}

// MemberShare is one member's portion of an event's distributable funds.
type MemberShare struct {
	Time       time.Duration
	Proportion float64
	Cents      float64
	Amount     float64 // Cents in currency units
}

// Proportion is memberTime / totalTime, or 0 when nobody attended.
func Proportion(memberTime, totalTime time.Duration) float64 {
	if totalTime <= 0 {
		return 0
	}
	return float64(memberTime) / float64(totalTime)
}

// ShareCents computes proportion × (1 - overhead) × net funds.
// A deficit event yields a negative share; the sign is kept.
func ShareCents(proportion float64, funds EventFunds) float64 {
	return proportion * (1 - funds.Overhead) * float64(funds.Net())
}

// DistributeEventFunds splits an event's funds among its attendees.
//
// Algorithm:
//   - only sessions of members who receive funds count, both for the member's
//     own time and for the event total
//   - proportion = member_time / total_time (0 when total_time is 0)
//   - share = proportion × (1 - overhead) × (funds - cost)
//
// Members without eligible sessions are absent from the result.
func DistributeEventFunds(funds EventFunds, sessions []Session) map[string]*MemberShare {
	shares := make(map[string]*MemberShare)
	var total time.Duration
	for _, s := range sessions {
		if !s.ReceivesFunds {
			continue
		}
		share, exists := shares[s.MemberID]
		if !exists {
			share = &MemberShare{}
			shares[s.MemberID] = share
		}
		share.Time += s.Elapsed
		total += s.Elapsed
	}

	for _, share := range shares {
		share.Proportion = Proportion(share.Time, total)
		share.Cents = ShareCents(share.Proportion, funds)
		share.Amount = ToCurrency(share.Cents)
	}
	return shares
}

// OverheadCents is the portion of net funds the organization keeps.
func OverheadCents(funds EventFunds) float64 {
	return float64(funds.Net()) * funds.Overhead
}

// ToCurrency converts cents to the base currency unit.
func ToCurrency(cents float64) float64 {
	return cents / 100
}
