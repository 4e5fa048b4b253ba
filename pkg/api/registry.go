package api

import "time"

type Capabilities struct {
	Admin         bool `json:"admin"`
	Mentor        bool `json:"mentor"`
	CanDisplay    bool `json:"can_display"`
	Autoload      bool `json:"autoload"`
	CanSeeSubteam bool `json:"can_see_subteam"`
	ReceivesFunds bool `json:"receives_funds"`
	Visible       bool `json:"visible"`
}

type Role struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Capabilities Capabilities `json:"capabilities"`
}

type Subteam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Member struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Code        string `json:"code"`
	Approved    bool   `json:"approved"`
	RoleID      string `json:"role_id"`
	SubteamID   string `json:"subteam_id,omitempty"`
}

type EventType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Autoload    bool   `json:"autoload"`
}

// Event times are rendered in the server's configured zone.
type Event struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Location         string    `json:"location,omitempty"`
	Code             string    `json:"code"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	TypeID           string    `json:"type_id,omitempty"`
	Enabled          bool      `json:"enabled"`
	PreEventMinutes  int       `json:"pre_event_minutes"`
	PostEventMinutes int       `json:"post_event_minutes"`
	Funds            int64     `json:"funds"`
	Cost             int64     `json:"cost"`
	Overhead         float64   `json:"overhead"`
}

type EventBlock struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Registrations int       `json:"registrations"`
}

type CreateRoleRequest struct {
	Name         string       `json:"name" validate:"required"`
	Capabilities Capabilities `json:"capabilities"`
}

type CreateRoleResponse struct {
	Role *Role `json:"role"`
}

type CreateSubteamRequest struct {
	Name string `json:"name" validate:"required"`
}

type CreateSubteamResponse struct {
	Subteam *Subteam `json:"subteam"`
}

type CreateMemberRequest struct {
	Name        string `json:"name" validate:"required"`
	DisplayName string `json:"display_name"`
	RoleID      string `json:"role_id" validate:"required"`
	SubteamID   string `json:"subteam_id,omitempty"`
	Approved    bool   `json:"approved"`
}

type MemberResponse struct {
	Member *Member `json:"member"`
}

type ApproveMemberRequest struct {
	MemberID string `json:"member_id" validate:"required"`
}

type CreateEventTypeRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Autoload    bool   `json:"autoload"`
}

type CreateEventTypeResponse struct {
	EventType *EventType `json:"event_type"`
}

// EventFields are the writable event attributes. Start and End accept RFC
// 3339 or a zone-less local timestamp such as "2024-09-14 13:00". Omitted
// grace minutes fall back to the server defaults; omitted Enabled means true.
type EventFields struct {
	Name             string  `json:"name" validate:"required"`
	Description      string  `json:"description,omitempty"`
	Location         string  `json:"location,omitempty"`
	Code             string  `json:"code,omitempty"`
	Start            string  `json:"start" validate:"required"`
	End              string  `json:"end" validate:"required"`
	TypeID           string  `json:"type_id,omitempty"`
	Enabled          *bool   `json:"enabled,omitempty"`
	PreEventMinutes  *int    `json:"pre_event_minutes,omitempty" validate:"omitempty,gte=0"`
	PostEventMinutes *int    `json:"post_event_minutes,omitempty" validate:"omitempty,gte=0"`
	Funds            int64   `json:"funds" validate:"gte=0"`
	Cost             int64   `json:"cost" validate:"gte=0"`
	Overhead         float64 `json:"overhead" validate:"gte=0,lte=1"`
}

type CreateEventRequest struct {
	EventFields
}

type UpdateEventRequest struct {
	ID string `json:"id" validate:"required"`
	EventFields
}

type EventResponse struct {
	Event *Event `json:"event"`
}

// GetEventRequest looks an event up by ID, or by Code when ID is empty.
type GetEventRequest struct {
	ID   string `json:"id" validate:"required_without=Code"`
	Code string `json:"code"`
}

// ListEventsRequest lists events ordered by start. Period is one of "all"
// (the default), "previous", "active", "today" or "upcoming"; disabled
// events are left out unless IncludeDisabled is set.
type ListEventsRequest struct {
	Period          string `json:"period,omitempty" validate:"omitempty,oneof=all previous active today upcoming"`
	IncludeDisabled bool   `json:"include_disabled,omitempty"`
}

type ListEventsResponse struct {
	Events []*Event `json:"events"`
}

type DeleteEventRequest struct {
	ID string `json:"id" validate:"required"`
}

// CreateWeeklyEventsRequest creates one event per selected weekday between
// From and To inclusive. Weekdays use 0 for Sunday; dates are "2006-01-02"
// and times "15:04" in the server's zone.
type CreateWeeklyEventsRequest struct {
	Name             string  `json:"name" validate:"required"`
	Description      string  `json:"description,omitempty"`
	Location         string  `json:"location,omitempty"`
	TypeID           string  `json:"type_id,omitempty"`
	From             string  `json:"from" validate:"required,datetime=2006-01-02"`
	To               string  `json:"to" validate:"required,datetime=2006-01-02"`
	Weekdays         []int   `json:"weekdays" validate:"required,min=1,dive,gte=0,lte=6"`
	StartTime        string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime          string  `json:"end_time" validate:"required,datetime=15:04"`
	PreEventMinutes  *int    `json:"pre_event_minutes,omitempty" validate:"omitempty,gte=0"`
	PostEventMinutes *int    `json:"post_event_minutes,omitempty" validate:"omitempty,gte=0"`
	Funds            int64   `json:"funds" validate:"gte=0"`
	Cost             int64   `json:"cost" validate:"gte=0"`
	Overhead         float64 `json:"overhead" validate:"gte=0,lte=1"`
}

type CreateWeeklyEventsResponse struct {
	Events []*Event `json:"events"`
}

type CreateEventBlockRequest struct {
	EventID string `json:"event_id" validate:"required"`
	Start   string `json:"start" validate:"required"`
	End     string `json:"end" validate:"required"`
}

type EventBlockResponse struct {
	Block *EventBlock `json:"block"`
}

type RegisterForBlockRequest struct {
	BlockID  string `json:"block_id" validate:"required"`
	MemberID string `json:"member_id,omitempty"`
}

type ListEventBlocksRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

type ListEventBlocksResponse struct {
	Blocks []*EventBlock `json:"blocks"`
}

type IssueTokenRequest struct {
	MemberID string `json:"member_id" validate:"required"`
}

type IssueTokenResponse struct {
	Token string `json:"token"`
}

// Empty is returned by calls that have nothing to report.
type Empty struct{}
