package streak

import (
	"sort"
	"time"

	"github.com/focusnest/gamification-engine/internal/calendar"
	"github.com/focusnest/gamification-engine/internal/freeze"
)

// dayBucket groups the events that fall on one local calendar day.
type dayBucket struct {
	dayStart time.Time
	events   []Event
}

func hasNonFreezeEvent(b *dayBucket) bool {
	for _, e := range b.events {
		if !e.IsFreeze {
			return true
		}
	}
	return false
}

// Calculate runs the streak algorithm (spec §4.3) over events and freezes,
// returning the computed summary and the freeze consumptions the
// orchestrator must apply. Calculate is a pure function of its inputs.
func Calculate(events []Event, freezes []freeze.Freeze, cfg Config, userID string, now time.Time, zone string) (Summary, []freeze.Consumption, error) {
	// Step 1 — empty guard.
	if len(events) == 0 {
		avail := freeze.AvailableFIFO(freezes, now)
		return Summary{
			StreakKey:             cfg.StreakKey,
			UserID:                userID,
			CurrentStreak:         0,
			LongestStreak:         0,
			TotalEvents:           0,
			FreezesAvailable:      avail,
			FreezesAvailableCount: len(avail),
			EventsRequiredPerDay:  cfg.EventsRequiredPerDay,
			DateUpdated:           now,
		}, nil, nil
	}

	// Step 2 — group events by local day.
	buckets := map[int64]*dayBucket{}
	var dayKeys []int64
	for _, e := range events {
		dayStart, err := calendar.StartOfDay(e.CreatedAt, zone)
		if err != nil {
			return Summary{}, nil, err
		}
		key := dayStart.Unix()
		b, ok := buckets[key]
		if !ok {
			b = &dayBucket{dayStart: dayStart}
			buckets[key] = b
			dayKeys = append(dayKeys, key)
		}
		b.events = append(b.events, e)
	}
	sort.Slice(dayKeys, func(i, j int) bool { return dayKeys[i] < dayKeys[j] })

	// Step 3 — qualifying days, ascending.
	var qualifying []int64
	for _, k := range dayKeys {
		b := buckets[k]
		if cfg.EventsRequiredPerDay <= 1 {
			if len(b.events) > 0 {
				qualifying = append(qualifying, k)
			}
		} else if len(b.events) >= cfg.EventsRequiredPerDay {
			qualifying = append(qualifying, k)
		}
	}

	// Step 4 — determine expected day, applying leeway.
	todayLocal, err := calendar.StartOfDay(now, zone)
	if err != nil {
		return Summary{}, nil, err
	}
	expected := todayLocal
	if cfg.LeewayHours > 0 && calendar.HoursBetween(todayLocal, now) <= cfg.LeewayHours {
		expected = expected.AddDate(0, 0, -1)
	}

	// Step 5 — auto-consume freezes across the gap.
	availFreezes := freeze.AvailableFIFO(freezes, now)
	var consumptions []freeze.Consumption
	if cfg.FreezeBehavior == FreezeBehaviorAutoConsume && len(qualifying) > 0 {
		lastQualDay := buckets[qualifying[len(qualifying)-1]].dayStart
		gapDays, err := calendar.DaysBetween(lastQualDay, todayLocal, zone)
		if err != nil {
			return Summary{}, nil, err
		}
		gap := gapDays - 1
		if gap < 0 {
			gap = 0
		}
		if gap > 0 && len(availFreezes) >= gap {
			gapDaysList := make([]time.Time, 0, gap)
			for i := 1; i <= gap; i++ {
				gapDaysList = append(gapDaysList, lastQualDay.AddDate(0, 0, i))
			}
			consumptions = freeze.SelectForDays(gapDaysList, availFreezes)

			consumedIDs := make(map[string]bool, len(consumptions))
			for _, c := range consumptions {
				consumedIDs[c.FreezeID] = true
			}
			remaining := make([]freeze.Freeze, 0, len(availFreezes))
			for _, f := range availFreezes {
				if !consumedIDs[f.ID] {
					remaining = append(remaining, f)
				}
			}
			availFreezes = remaining

			// Reflect the consumption in this same pass: each consumed day
			// becomes a freeze-only qualifying day, so the streak walk below
			// sees it exactly as it will after the orchestrator's second,
			// post-mutation pass (spec §4.5 step 5 idempotence requirement).
			for _, c := range consumptions {
				key := c.Day.Unix()
				freezeID := c.FreezeID
				buckets[key] = &dayBucket{
					dayStart: c.Day,
					events:   []Event{{IsFreeze: true, FreezeID: &freezeID, CreatedAt: c.Day}},
				}
				dayKeys = append(dayKeys, key)
				qualifying = append(qualifying, key)
			}
			sort.Slice(dayKeys, func(i, j int) bool { return dayKeys[i] < dayKeys[j] })
			sort.Slice(qualifying, func(i, j int) bool { return qualifying[i] < qualifying[j] })
		}
	}

	// Step 6 — walk backward from expected, counting current_streak.
	currentStreak := 0
	started := false
	walkExpected := expected
	sameLocalDay, err := calendar.SameDay(now, expected, zone)
	if err != nil {
		return Summary{}, nil, err
	}
	for i := len(qualifying) - 1; i >= 0; i-- {
		b := buckets[qualifying[i]]
		qualDay := b.dayStart

		if qualDay.Equal(walkExpected) {
			if hasNonFreezeEvent(b) {
				currentStreak++
			}
			walkExpected = walkExpected.AddDate(0, 0, -1)
			started = true
			continue
		}

		if qualDay.Before(walkExpected) {
			d, err := calendar.DaysBetween(qualDay, walkExpected, zone)
			if err != nil {
				return Summary{}, nil, err
			}
			if !started && d == 1 && (sameLocalDay || cfg.LeewayHours > 0) {
				if hasNonFreezeEvent(b) {
					currentStreak++
				}
				walkExpected = qualDay.AddDate(0, 0, -1)
				started = true
				continue
			}
			break
		}
	}

	// Step 7 — longest streak.
	longestStreak := 0
	running := 0
	var prevDay time.Time
	for idx, k := range qualifying {
		b := buckets[k]
		day := b.dayStart
		real := hasNonFreezeEvent(b)

		if idx == 0 {
			if real {
				running = 1
			} else {
				running = 0
			}
		} else {
			d, err := calendar.DaysBetween(prevDay, day, zone)
			if err != nil {
				return Summary{}, nil, err
			}
			if d == 1 {
				if real {
					running++
				}
			} else {
				if running > longestStreak {
					longestStreak = running
				}
				if real {
					running = 1
				} else {
					running = 0
				}
			}
		}
		prevDay = day
	}
	if running > longestStreak {
		longestStreak = running
	}
	if currentStreak > longestStreak {
		longestStreak = currentStreak
	}

	// Step 8 — derived fields.
	var dateStreakStart *time.Time
	if currentStreak > 0 {
		start := expected.AddDate(0, 0, -(currentStreak - 1))
		dateStreakStart = &start
	}

	todayCount := 0
	if b, ok := buckets[todayLocal.Unix()]; ok {
		todayCount = len(b.events)
	}

	var dateLastEvent, dateCreated *time.Time
	var lastEventTZ string
	for _, e := range events {
		ev := e
		if dateLastEvent == nil || ev.CreatedAt.After(*dateLastEvent) {
			t := ev.CreatedAt
			dateLastEvent = &t
			lastEventTZ = ev.Timezone
		}
		if dateCreated == nil || ev.CreatedAt.Before(*dateCreated) {
			t := ev.CreatedAt
			dateCreated = &t
		}
	}

	recent, err := recentEvents(events, now, zone, cfg.LeewayHours)
	if err != nil {
		return Summary{}, nil, err
	}

	summary := Summary{
		StreakKey:             cfg.StreakKey,
		UserID:                userID,
		CurrentStreak:         currentStreak,
		LongestStreak:         longestStreak,
		DateLastEvent:         dateLastEvent,
		LastEventTimezone:     lastEventTZ,
		DateStreakStart:       dateStreakStart,
		TotalEvents:           len(events),
		FreezesAvailable:      availFreezes,
		FreezesAvailableCount: len(availFreezes),
		DateCreated:           dateCreated,
		DateUpdated:           now,
		EventsRequiredPerDay:  cfg.EventsRequiredPerDay,
		TodayEventCount:       todayCount,
		RecentEvents:          recent,
	}

	return summary, consumptions, nil
}

// recentEvents implements the 60-day leeway-adjusted recent-events rule
// (spec §4.3): events are grouped into a "mapped day" (remapped to the
// previous local day when they fall inside the leeway window right after
// midnight), the last 60 distinct mapped days anchored at today are kept,
// and the original events that map into them are emitted ascending by
// created_at.
func recentEvents(events []Event, now time.Time, zone string, leewayHours int) ([]Event, error) {
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
		if leewayHours > 0 && calendar.HoursBetween(dayStart, e.CreatedAt) < leewayHours {
			dayStart = dayStart.AddDate(0, 0, -1)
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
