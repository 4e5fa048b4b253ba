package models

import (
	"time"

	"github.com/google/uuid"
)

// Capabilities are the permission flags granted by a Role.
type Capabilities struct {
	// Admin may run maintenance and finance operations.
	Admin bool `json:"admin"`

	// Mentor may close other members' sessions and manage events.
	Mentor bool `json:"mentor"`

	// CanDisplay may open the live scan page for an event.
	CanDisplay bool `json:"can_display"`

	// Autoload makes displays follow the current autoload event.
	Autoload bool `json:"autoload"`

	// CanSeeSubteam may export stamps of the member's own subteam.
	CanSeeSubteam bool `json:"can_see_subteam"`

	// ReceivesFunds makes the member eligible for event fund shares.
	ReceivesFunds bool `json:"receives_funds"`

	// Visible lists the member in rosters and finance reports.
	Visible bool `json:"visible"`
}

// Role is a named set of capabilities shared by many members.
type Role struct {
	ID           string
	Name         string
	Capabilities Capabilities
}

// Subteam groups members for reporting.
type Subteam struct {
	ID   string
	Name string
}

// Member is a person who can be scanned into events.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string

	// Name is the unique login name.
	Name string

	// DisplayName is shown on live dashboards and reports.
	DisplayName string

	// Code is the opaque presence code printed on the member's badge.
	Code string

	// Approved must be set by an authorizer before the member can be scanned in.
	Approved bool

	RoleID    string
	SubteamID string

	// Role and Subteam are populated by registry lookups.
	Role    Role
	Subteam *Subteam

	// CreatedAt is the UTC instant the member registered.
	CreatedAt time.Time
}

// NewMember creates an unapproved member with a fresh ID and presence code.
func NewMember(name, displayName, roleID string) *Member {
	return &Member{
		ID:          uuid.New().String(),
		Name:        name,
		DisplayName: displayName,
		Code:        NewPresenceCode(),
		RoleID:      roleID,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewPresenceCode returns a random opaque code suitable for a QR badge.
func NewPresenceCode() string {
	return uuid.New().String()
}

// HumanReadable is the name shown on displays; mentors are marked with '*'.
func (m *Member) HumanReadable() string {
	name := m.DisplayName
	if name == "" {
		name = m.Name
	}
	if m.Role.Capabilities.Mentor {
		return "*" + name
	}
	return name
}

// ReceivesFunds reports whether the member's role is eligible for fund shares.
func (m *Member) ReceivesFunds() bool {
	return m.Role.Capabilities.ReceivesFunds
}
