package models

import (
	"fmt"
	"strings"
	"time"
)

// Active is an in-progress session: the member is currently at the event.
type Active struct {
	ID       string
	MemberID string
	EventID  string

	// Start is assigned by the server when the session opens.
	Start time.Time
}

// Stamp is a completed session. It is created only by closing an Active.
type Stamp struct {
	ID       string
	MemberID string
	EventID  string
	Start    time.Time
	End      time.Time
}

// Elapsed is End - Start; it is never stored.
func (s *Stamp) Elapsed() time.Duration {
	return s.End.Sub(s.Start)
}

// ActiveDetail is an Active joined with the names shown on live dashboards.
type ActiveDetail struct {
	Active
	MemberName  string
	SubteamName string
	EventName   string
	EventCode   string
}

// StampDetail is a Stamp joined with the member attributes used by reports.
type StampDetail struct {
	Stamp
	MemberName    string
	SubteamName   string
	EventName     string
	ReceivesFunds bool
}

// AutoSignoutPolicy decides what the reconciler does with sessions whose
// event has ended.
type AutoSignoutPolicy string

const (
	// PolicyNone leaves stale sessions until a human closes them.
	PolicyNone AutoSignoutPolicy = "None"
	// PolicyCredit closes stale sessions with End set to the event's End.
	PolicyCredit AutoSignoutPolicy = "Credit"
	// PolicyDiscard deletes stale sessions without crediting time.
	PolicyDiscard AutoSignoutPolicy = "Discard"
)

// ParsePolicy accepts the three policy names case-insensitively; empty means None.
func ParsePolicy(s string) (AutoSignoutPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PolicyNone, nil
	case "credit":
		return PolicyCredit, nil
	case "discard":
		return PolicyDiscard, nil
	default:
		return "", fmt.Errorf("unknown auto-signout policy %q", s)
	}
}
