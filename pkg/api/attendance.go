package api

import "time"

// Session is an open attendance session as shown on live displays.
type Session struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	MemberName  string    `json:"member_name"`
	SubteamName string    `json:"subteam_name,omitempty"`
	EventID     string    `json:"event_id"`
	EventCode   string    `json:"event_code"`
	EventName   string    `json:"event_name"`
	Start       time.Time `json:"start"`
}

// Stamp is a completed session.
type Stamp struct {
	ID             string    `json:"id"`
	MemberID       string    `json:"member_id"`
	EventID        string    `json:"event_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

type ScanRequest struct {
	EventCode  string `json:"event_code" validate:"required"`
	MemberCode string `json:"member_code" validate:"required"`
}

// SignInRequest and SignOutRequest act on the caller. MemberID is only
// honored when the server runs without authentication.
type SignInRequest struct {
	EventCode string `json:"event_code" validate:"required"`
	MemberID  string `json:"member_id,omitempty"`
}

type SignOutRequest struct {
	EventCode string `json:"event_code" validate:"required"`
	MemberID  string `json:"member_id,omitempty"`
}

// TransitionResponse is returned by Scan, SignIn and SignOut.
type TransitionResponse struct {
	// Outcome is one of "Unchanged", "SignedIn" or "SignedOut".
	Outcome    string `json:"outcome"`
	MemberName string `json:"member_name"`
	EventName  string `json:"event_name"`

	// Active is set after a sign in, Stamp after a sign out.
	Active *Session `json:"active,omitempty"`
	Stamp  *Stamp   `json:"stamp,omitempty"`

	// Present lists everyone at the event after the transition.
	Present []Session `json:"present"`
}

// CurrentlyPresentRequest lists every open session when EventCode is empty.
type CurrentlyPresentRequest struct {
	EventCode string `json:"event_code,omitempty"`
}

type CurrentlyPresentResponse struct {
	Sessions []Session `json:"sessions"`
}

type ForceCloseRequest struct {
	ActiveID string `json:"active_id" validate:"required"`
	Credit   bool   `json:"credit"`

	// End overrides the credited end time; RFC 3339 or a local timestamp.
	End string `json:"end,omitempty"`
}

type ForceCloseResponse struct {
	MemberID string `json:"member_id"`
	EventID  string `json:"event_id"`
	Stamp    *Stamp `json:"stamp,omitempty"`
}

type DiscardExpiredRequest struct{}

type DiscardExpiredResponse struct {
	Discarded int `json:"discarded"`
}

type ReconcileNowRequest struct{}

type ReconcileNowResponse struct {
	Policy  string `json:"policy"`
	Scanned int    `json:"scanned"`
	Stale   int    `json:"stale"`
	Closed  int    `json:"closed"`
	Failed  int    `json:"failed"`
}

type EventStatsRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

type MemberTime struct {
	MemberID string  `json:"member_id"`
	Name     string  `json:"name"`
	Subteam  string  `json:"subteam,omitempty"`
	Seconds  float64 `json:"seconds"`
	Present  bool    `json:"present"`
}

type SubteamTime struct {
	Name    string  `json:"name"`
	Seconds float64 `json:"seconds"`
}

type EventStatsResponse struct {
	Event        *Event        `json:"event"`
	Members      []MemberTime  `json:"members"`
	Subteams     []SubteamTime `json:"subteams"`
	TotalSeconds float64       `json:"total_seconds"`
}

type TrimStampsRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

type TrimStampsResponse struct {
	Trimmed int64 `json:"trimmed"`
}

type AutoloadEventRequest struct{}

// AutoloadEventResponse carries an empty code when no autoload event is active.
type AutoloadEventResponse struct {
	EventCode string `json:"event_code"`
	Event     *Event `json:"event,omitempty"`
}
