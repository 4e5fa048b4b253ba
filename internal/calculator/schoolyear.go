package calculator

import "time"

// SchoolYearRollover is the first month of a new school year.
const SchoolYearRollover = time.July

// SchoolYear returns the school year t belongs to, named by the calendar
// year in which it ends: July 2024 through June 2025 is school year 2025.
// t is interpreted in its own location.
func SchoolYear(t time.Time) int {
	if t.Month() < SchoolYearRollover {
		return t.Year()
	}
	return t.Year() + 1
}

// SchoolYearBounds returns [from, to) in UTC for the given school year,
// with the rollover taken at local midnight in loc.
func SchoolYearBounds(year int, loc *time.Location) (from, to time.Time) {
	from = time.Date(year-1, SchoolYearRollover, 1, 0, 0, 0, 0, loc)
	to = time.Date(year, SchoolYearRollover, 1, 0, 0, 0, 0, loc)
	return from.UTC(), to.UTC()
}
