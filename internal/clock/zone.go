package clock

import (
	"fmt"
	"strings"
	"time"
)

// LocalLayouts are the accepted formats for zone-less timestamps coming from forms.
var LocalLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// Zone is the organization's configured display zone. All persisted
// timestamps are UTC; every value crossing the boundary goes through Zone.
type Zone struct {
	loc *time.Location
}

// LoadZone resolves an IANA zone name such as "America/New_York".
func LoadZone(name string) (Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("failed to load time zone %q: %w", name, err)
	}
	return Zone{loc: loc}, nil
}

// ZoneFor wraps an already loaded location.
func ZoneFor(loc *time.Location) Zone {
	return Zone{loc: loc}
}

// Location returns the display location, UTC when unset.
func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

func (z Zone) String() string { return z.Location().String() }

// ToStorage converts t to UTC for persistence.
func (z Zone) ToStorage(t time.Time) time.Time {
	return t.UTC()
}

// FromStorage converts a stored UTC instant into the display zone.
func (z Zone) FromStorage(t time.Time) time.Time {
	return t.In(z.Location())
}

// ParseLocal parses a timestamp. Values carrying an offset (RFC 3339) keep it;
// zone-less values are interpreted in the display zone. The result is UTC.
func (z Zone) ParseLocal(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range LocalLayouts {
		if t, err := time.ParseInLocation(layout, value, z.Location()); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

// Combine joins a calendar date and a wall-clock time of day in the display zone.
func (z Zone) Combine(year int, month time.Month, day int, clock time.Duration) time.Time {
	h := int(clock / time.Hour)
	m := int(clock % time.Hour / time.Minute)
	return time.Date(year, month, day, h, m, 0, 0, z.Location()).UTC()
}
