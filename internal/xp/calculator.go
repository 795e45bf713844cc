package xp

import (
	"sort"
	"time"

	"github.com/focusnest/gamification-engine/internal/calendar"
)

// Calculate runs the experience-points aggregator (spec §4.4) over events,
// returning the computed summary. Calculate is a pure function of its inputs.
func Calculate(events []Event, cfg Config, userID string, now time.Time, zone string) (Summary, error) {
	if len(events) == 0 {
		return Summary{
			ExperienceKey: cfg.ExperienceKey,
			UserID:        userID,
			DateUpdated:   now,
		}, nil
	}

	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].CreatedAt.Before(ordered[j].CreatedAt) })

	week := calendar.WeekInterval(now, zone)
	month := calendar.MonthInterval(now, zone)
	year := calendar.YearInterval(now, zone)

	last7 := now.Add(-7 * 24 * time.Hour)
	last30 := now.Add(-30 * 24 * time.Hour)
	last12Months := now.AddDate(0, -12, 0)

	var summary Summary
	var todayCount int

	for _, e := range ordered {
		summary.PointsAllTime += e.Points

		sameDay, err := calendar.SameDay(e.CreatedAt, now, zone)
		if err == nil && sameDay {
			summary.PointsToday += e.Points
			todayCount++
		}

		if !week.IsZero() && week.Contains(e.CreatedAt) {
			summary.PointsThisWeek += e.Points
		}
		if !month.IsZero() && month.Contains(e.CreatedAt) {
			summary.PointsThisMonth += e.Points
		}
		if !year.IsZero() && year.Contains(e.CreatedAt) {
			summary.PointsThisYear += e.Points
		}

		// Rolling windows are zone-independent: compared directly against
		// instants derived from now, never against calendar boundaries.
		if !e.CreatedAt.Before(last7) {
			summary.PointsLast7Days += e.Points
		}
		if !e.CreatedAt.Before(last30) {
			summary.PointsLast30Days += e.Points
		}
		if !e.CreatedAt.Before(last12Months) {
			summary.PointsLast12Months += e.Points
		}
	}

	summary.ExperienceKey = cfg.ExperienceKey
	summary.UserID = userID
	summary.EventsTodayCount = todayCount
	summary.DateUpdated = now

	first := ordered[0].CreatedAt
	summary.DateCreated = &first
	last := ordered[len(ordered)-1].CreatedAt
	summary.DateLastEvent = &last

	recent, err := recentEvents(ordered, now, zone)
	if err != nil {
		return Summary{}, err
	}
	summary.RecentEvents = recent

	return summary, nil
}

// recentEvents implements the 60-day rule without leeway adjustment (spec
// §4.4): XP events have no timezone field and no grace window.
func recentEvents(events []Event, now time.Time, zone string) ([]Event, error) {
	todayLocal, err := calendar.StartOfDay(now, zone)
	if err != nil {
		return nil, err
	}

	type mapped struct {
		event Event
		day   int64
	}
	var withDay []mapped
	dayPresent := map[int64]bool{}

	for _, e := range events {
		dayStart, err := calendar.StartOfDay(e.CreatedAt, zone)
		if err != nil {
			return nil, err
		}
		age, err := calendar.DaysBetween(dayStart, todayLocal, zone)
		if err != nil {
			return nil, err
		}
		if age < 0 || age >= 60 {
			continue
		}
		key := dayStart.Unix()
		withDay = append(withDay, mapped{event: e, day: key})
		dayPresent[key] = true
	}

	var days []int64
	for d := range dayPresent {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	if len(days) > 60 {
		days = days[len(days)-60:]
	}
	keep := make(map[int64]bool, len(days))
	for _, d := range days {
		keep[d] = true
	}

	var out []Event
	for _, m := range withDay {
		if keep[m.day] {
			out = append(out, m.event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
