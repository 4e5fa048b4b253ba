package postgres

import (
	"time"

	"github.com/mmynk/signin/internal/models"
)

type roleRecord struct {
	ID            string `gorm:"primaryKey"`
	Name          string `gorm:"uniqueIndex;not null"`
	Admin         bool
	Mentor        bool
	CanDisplay    bool
	Autoload      bool
	CanSeeSubteam bool
	ReceivesFunds bool
	Visible       bool
}

func (roleRecord) TableName() string { return "roles" }

type subteamRecord struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (subteamRecord) TableName() string { return "subteams" }

type memberRecord struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	DisplayName string `gorm:"not null"`
	Code        string `gorm:"uniqueIndex;not null"`
	Approved    bool
	RoleID      string         `gorm:"index;not null"`
	Role        roleRecord     `gorm:"foreignKey:RoleID"`
	SubteamID   *string        `gorm:"index"`
	Subteam     *subteamRecord `gorm:"foreignKey:SubteamID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time
}

func (memberRecord) TableName() string { return "members" }

type eventTypeRecord struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	Autoload    bool
}

func (eventTypeRecord) TableName() string { return "event_types" }

type eventRecord struct {
	ID               string `gorm:"primaryKey"`
	Name             string `gorm:"not null"`
	Description      string
	Location         string
	Code             string    `gorm:"uniqueIndex;not null"`
	StartsAt         time.Time `gorm:"index;not null"`
	EndsAt           time.Time `gorm:"not null"`
	TypeID           *string
	Type             *eventTypeRecord `gorm:"foreignKey:TypeID;constraint:OnDelete:SET NULL"`
	Enabled          bool
	PreEventMinutes  int
	PostEventMinutes int
	Funds            int64
	Cost             int64
	Overhead         float64
}

func (eventRecord) TableName() string { return "events" }

// activeRecord backs the at-most-one-session rule with a unique index on
// the (member, event) pair.
type activeRecord struct {
	ID        string    `gorm:"primaryKey"`
	MemberID  string    `gorm:"uniqueIndex:idx_active_pair;not null"`
	EventID   string    `gorm:"uniqueIndex:idx_active_pair;index;not null"`
	StartedAt time.Time `gorm:"not null"`
}

func (activeRecord) TableName() string { return "active" }

type stampRecord struct {
	ID        string    `gorm:"primaryKey"`
	MemberID  string    `gorm:"index;not null"`
	EventID   string    `gorm:"index;not null"`
	StartedAt time.Time `gorm:"not null"`
	EndedAt   time.Time `gorm:"not null"`
}

func (stampRecord) TableName() string { return "stamps" }

type blockRecord struct {
	ID       string    `gorm:"primaryKey"`
	EventID  string    `gorm:"index;not null"`
	StartsAt time.Time `gorm:"not null"`
	EndsAt   time.Time `gorm:"not null"`
}

func (blockRecord) TableName() string { return "event_blocks" }

type registrationRecord struct {
	BlockID  string `gorm:"primaryKey"`
	MemberID string `gorm:"primaryKey"`
}

func (registrationRecord) TableName() string { return "block_registrations" }

func toRoleRecord(r *models.Role) roleRecord {
	c := r.Capabilities
	return roleRecord{
		ID: r.ID, Name: r.Name,
		Admin: c.Admin, Mentor: c.Mentor, CanDisplay: c.CanDisplay, Autoload: c.Autoload,
		CanSeeSubteam: c.CanSeeSubteam, ReceivesFunds: c.ReceivesFunds, Visible: c.Visible,
	}
}

func (r roleRecord) toModel() models.Role {
	return models.Role{
		ID:   r.ID,
		Name: r.Name,
		Capabilities: models.Capabilities{
			Admin: r.Admin, Mentor: r.Mentor, CanDisplay: r.CanDisplay, Autoload: r.Autoload,
			CanSeeSubteam: r.CanSeeSubteam, ReceivesFunds: r.ReceivesFunds, Visible: r.Visible,
		},
	}
}

func toMemberRecord(m *models.Member) memberRecord {
	return memberRecord{
		ID: m.ID, Name: m.Name, DisplayName: m.DisplayName, Code: m.Code, Approved: m.Approved,
		RoleID: m.RoleID, SubteamID: nullable(m.SubteamID), CreatedAt: m.CreatedAt.UTC(),
	}
}

func (r memberRecord) toModel() *models.Member {
	m := &models.Member{
		ID: r.ID, Name: r.Name, DisplayName: r.DisplayName, Code: r.Code, Approved: r.Approved,
		RoleID: r.RoleID, SubteamID: deref(r.SubteamID), Role: r.Role.toModel(),
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.Subteam != nil {
		m.Subteam = &models.Subteam{ID: r.Subteam.ID, Name: r.Subteam.Name}
	}
	return m
}

func toEventRecord(e *models.Event) eventRecord {
	return eventRecord{
		ID: e.ID, Name: e.Name, Description: e.Description, Location: e.Location, Code: e.Code,
		StartsAt: e.Start.UTC(), EndsAt: e.End.UTC(), TypeID: nullable(e.TypeID), Enabled: e.Enabled,
		PreEventMinutes: e.PreEventMinutes, PostEventMinutes: e.PostEventMinutes,
		Funds: e.Funds, Cost: e.Cost, Overhead: e.Overhead,
	}
}

func (r eventRecord) toModel() *models.Event {
	e := &models.Event{
		ID: r.ID, Name: r.Name, Description: r.Description, Location: r.Location, Code: r.Code,
		Start: r.StartsAt.UTC(), End: r.EndsAt.UTC(), TypeID: deref(r.TypeID), Enabled: r.Enabled,
		PreEventMinutes: r.PreEventMinutes, PostEventMinutes: r.PostEventMinutes,
		Funds: r.Funds, Cost: r.Cost, Overhead: r.Overhead,
	}
	if r.Type != nil {
		e.Type = &models.EventType{ID: r.Type.ID, Name: r.Type.Name, Description: r.Type.Description, Autoload: r.Type.Autoload}
	}
	return e
}

func (r activeRecord) toModel() *models.Active {
	return &models.Active{ID: r.ID, MemberID: r.MemberID, EventID: r.EventID, Start: r.StartedAt.UTC()}
}

func (r stampRecord) toModel() *models.Stamp {
	return &models.Stamp{ID: r.ID, MemberID: r.MemberID, EventID: r.EventID, Start: r.StartedAt.UTC(), End: r.EndedAt.UTC()}
}
