package service

import (
	"github.com/mmynk/signin/internal/clock"
	"github.com/mmynk/signin/internal/models"
	"github.com/mmynk/signin/pkg/api"
)

func toAPISession(zone clock.Zone, a models.ActiveDetail) api.Session {
	return api.Session{
		ID:          a.ID,
		MemberID:    a.MemberID,
		MemberName:  a.MemberName,
		SubteamName: a.SubteamName,
		EventID:     a.EventID,
		EventCode:   a.EventCode,
		EventName:   a.EventName,
		Start:       zone.FromStorage(a.Start),
	}
}

func toAPISessions(zone clock.Zone, actives []models.ActiveDetail) []api.Session {
	sessions := make([]api.Session, len(actives))
	for i, a := range actives {
		sessions[i] = toAPISession(zone, a)
	}
	return sessions
}

func toAPIStamp(zone clock.Zone, s *models.Stamp) *api.Stamp {
	if s == nil {
		return nil
	}
	return &api.Stamp{
		ID:             s.ID,
		MemberID:       s.MemberID,
		EventID:        s.EventID,
		Start:          zone.FromStorage(s.Start),
		End:            zone.FromStorage(s.End),
		ElapsedSeconds: s.Elapsed().Seconds(),
	}
}

func toAPIEvent(zone clock.Zone, e *models.Event) *api.Event {
	if e == nil {
		return nil
	}
	return &api.Event{
		ID:               e.ID,
		Name:             e.Name,
		Description:      e.Description,
		Location:         e.Location,
		Code:             e.Code,
		Start:            zone.FromStorage(e.Start),
		End:              zone.FromStorage(e.End),
		TypeID:           e.TypeID,
		Enabled:          e.Enabled,
		PreEventMinutes:  e.PreEventMinutes,
		PostEventMinutes: e.PostEventMinutes,
		Funds:            e.Funds,
		Cost:             e.Cost,
		Overhead:         e.Overhead,
	}
}

func toAPIMember(m *models.Member) *api.Member {
	return &api.Member{
		ID:          m.ID,
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Code:        m.Code,
		Approved:    m.Approved,
		RoleID:      m.RoleID,
		SubteamID:   m.SubteamID,
	}
}

func toAPIBlock(zone clock.Zone, b *models.EventBlock) *api.EventBlock {
	return &api.EventBlock{
		ID:            b.ID,
		EventID:       b.EventID,
		Start:         zone.FromStorage(b.Start),
		End:           zone.FromStorage(b.End),
		Registrations: b.Registrations,
	}
}

func toCapabilities(c api.Capabilities) models.Capabilities {
	return models.Capabilities{
		Admin:         c.Admin,
		Mentor:        c.Mentor,
		CanDisplay:    c.CanDisplay,
		Autoload:      c.Autoload,
		CanSeeSubteam: c.CanSeeSubteam,
		ReceivesFunds: c.ReceivesFunds,
		Visible:       c.Visible,
	}
}

func fromCapabilities(c models.Capabilities) api.Capabilities {
	return api.Capabilities{
		Admin:         c.Admin,
		Mentor:        c.Mentor,
		CanDisplay:    c.CanDisplay,
		Autoload:      c.Autoload,
		CanSeeSubteam: c.CanSeeSubteam,
		ReceivesFunds: c.ReceivesFunds,
		Visible:       c.Visible,
	}
}
