// Package freeze implements the freeze consumption policy (spec §4.2):
// availability, FIFO ordering, and day-selection for gap-filling.
package freeze

import "time"

// Freeze is a consumable token that can fill one missed local day to keep
// a streak alive (spec §3).
type Freeze struct {
	ID        string     `json:"id"`
	EarnedAt  *time.Time `json:"earnedAt,omitempty"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Available reports whether f can be consumed at instant now: it has not
// already been used, and either never expires or has not yet expired.
func Available(f Freeze, now time.Time) bool {
	if f.UsedAt != nil {
		return false
	}
	if f.ExpiresAt != nil && now.After(*f.ExpiresAt) {
		return false
	}
	return true
}

// FIFO returns freezes ordered ascending by EarnedAt, with nil EarnedAt
// sorting before any real date, breaking ties by ID so the order is
// total. The input slice is not mutated.
func FIFO(freezes []Freeze) []Freeze {
	ordered := make([]Freeze, len(freezes))
	copy(ordered, freezes)

	less := func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		switch {
		case a.EarnedAt == nil && b.EarnedAt == nil:
			return a.ID < b.ID
		case a.EarnedAt == nil:
			return true
		case b.EarnedAt == nil:
			return false
		case !a.EarnedAt.Equal(*b.EarnedAt):
			return a.EarnedAt.Before(*b.EarnedAt)
		default:
			return a.ID < b.ID
		}
	}

	// insertion sort: freeze lists are small (per-user inventories), and
	// this keeps the comparator above simple to read.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

// AvailableFIFO returns the subset of freezes available at now, in FIFO order.
func AvailableFIFO(freezes []Freeze, now time.Time) []Freeze {
	var avail []Freeze
	for _, f := range freezes {
		if Available(f, now) {
			avail = append(avail, f)
		}
	}
	return FIFO(avail)
}

// Consumption pairs a freeze with the calendar day it fills.
type Consumption struct {
	FreezeID string
	Day      time.Time
}

// SelectForDays pairs the first min(len(days), len(availableFreezes))
// freezes (FIFO order) with the first same-count days. The caller is
// responsible for not invoking this when fewer freezes than days are
// available — the auto-consume policy in spec §4.3 forbids partial saves.
func SelectForDays(days []time.Time, availableFreezes []Freeze) []Consumption {
	ordered := FIFO(availableFreezes)
	n := len(days)
	if len(ordered) < n {
		n = len(ordered)
	}

	out := make([]Consumption, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Consumption{FreezeID: ordered[i].ID, Day: days[i]})
	}
	return out
}
