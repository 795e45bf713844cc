// Package calendar implements the timezone-aware calendar-day arithmetic
// the streak and XP calculators are built on (spec §4.1): start-of-day,
// same-day comparison, day/hour differences, and week/month/year interval
// endpoints. Every function here is pure over (instant, zone).
package calendar

import (
	"fmt"
	"time"
)

// ErrUnknownZone is returned when the supplied IANA zone name cannot be
// loaded. Unlike the interval helpers, StartOfDay never fails silently —
// an unknown zone is a programmer error surfaced as a typed failure.
type ErrUnknownZone struct {
	Zone string
}

func (e ErrUnknownZone) Error() string {
	return fmt.Sprintf("calendar: unrecognized IANA zone %q", e.Zone)
}

// loadLocation resolves an IANA zone name, returning ErrUnknownZone on failure.
func loadLocation(zone string) (*time.Location, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, ErrUnknownZone{Zone: zone}
	}
	return loc, nil
}

// StartOfDay returns the instant representing 00:00:00 local time in zone
// on the calendar day that contains instant. It takes the local calendar
// date of instant in zone and builds that date's midnight in zone with
// time.Date, so zones with non-hour offsets need no special handling.
func StartOfDay(instant time.Time, zone string) (time.Time, error) {
	loc, err := loadLocation(zone)
	if err != nil {
		return time.Time{}, err
	}
	local := instant.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}

// SameDay reports whether a and b fall on the same calendar day in zone.
func SameDay(a, b time.Time, zone string) (bool, error) {
	dayA, err := StartOfDay(a, zone)
	if err != nil {
		return false, err
	}
	dayB, err := StartOfDay(b, zone)
	if err != nil {
		return false, err
	}
	return dayA.Equal(dayB), nil
}

// DaysBetween returns the whole-day difference of start_of_day(b) minus
// start_of_day(a), rounded to the nearest day.
func DaysBetween(a, b time.Time, zone string) (int, error) {
	dayA, err := StartOfDay(a, zone)
	if err != nil {
		return 0, err
	}
	dayB, err := StartOfDay(b, zone)
	if err != nil {
		return 0, err
	}
	hours := dayB.Sub(dayA).Hours()
	if hours >= 0 {
		return int(hours/24 + 0.5), nil
	}
	return -int(-hours/24 + 0.5), nil
}

// HoursBetween returns the floored wall-time difference, in hours, of b
// minus a. No timezone is needed since it operates on absolute duration.
func HoursBetween(a, b time.Time) int {
	d := b.Sub(a)
	hours := int(d / time.Hour)
	if d < 0 && d%time.Hour != 0 {
		hours--
	}
	return hours
}

// Interval is a closed local-time window, expressed as absolute instants.
// A zero Interval (IsZero() == true) signals "no interval" — the caller
// treats the corresponding window sum as 0, per spec §4.1's unknown-zone
// failure mode for the interval helpers (as opposed to StartOfDay, which
// always errors).
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the interval is unset.
func (iv Interval) IsZero() bool {
	return iv.Start.IsZero() && iv.End.IsZero()
}

// Contains reports whether t falls within [Start, End] inclusive.
func (iv Interval) Contains(t time.Time) bool {
	if iv.IsZero() {
		return false
	}
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// WeekInterval returns the Sunday 00:00 local through Saturday 23:59:59.999
// local window that contains instant.
func WeekInterval(instant time.Time, zone string) Interval {
	loc, err := loadLocation(zone)
	if err != nil {
		return Interval{}
	}
	local := instant.In(loc)
	y, m, d := local.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	start := day.AddDate(0, 0, -int(day.Weekday()))
	end := start.AddDate(0, 0, 7).Add(-time.Millisecond)
	return Interval{Start: start, End: end}
}

// MonthInterval returns the first-of-month 00:00 through last-of-month
// 23:59:59.999 local window that contains instant. The last day is
// derived by stepping to the first of the next month and subtracting one
// millisecond, avoiding month-length hazards.
func MonthInterval(instant time.Time, zone string) Interval {
	loc, err := loadLocation(zone)
	if err != nil {
		return Interval{}
	}
	local := instant.In(loc)
	y, m, _ := local.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return Interval{Start: start, End: end}
}

// YearInterval returns the January 1 00:00 through December 31 23:59:59.999
// local window that contains instant.
func YearInterval(instant time.Time, zone string) Interval {
	loc, err := loadLocation(zone)
	if err != nil {
		return Interval{}
	}
	local := instant.In(loc)
	start := time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc)
	end := time.Date(local.Year()+1, time.January, 1, 0, 0, 0, 0, loc).Add(-time.Millisecond)
	return Interval{Start: start, End: end}
}
