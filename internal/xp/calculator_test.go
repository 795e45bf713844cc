package xp

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return tm
}

// Scenario G — XP windows.
func TestCalculateScenarioG(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-15T10:00:00Z"), Points: 10},
		{ID: "2", CreatedAt: mustParse(t, "2025-01-20T10:00:00Z"), Points: 5},
	}
	now := mustParse(t, "2025-01-21T00:00:00Z")

	summary, err := Calculate(events, Config{ExperienceKey: "main"}, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PointsAllTime != 15 {
		t.Fatalf("points_all_time = %d, want 15", summary.PointsAllTime)
	}
	if summary.PointsToday != 0 {
		t.Fatalf("points_today = %d, want 0", summary.PointsToday)
	}
	if summary.PointsThisMonth != 15 {
		t.Fatalf("points_this_month = %d, want 15", summary.PointsThisMonth)
	}
	if summary.PointsThisYear != 15 {
		t.Fatalf("points_this_year = %d, want 15", summary.PointsThisYear)
	}
	if summary.PointsLast7Days != 15 {
		t.Fatalf("points_last_7_days = %d, want 15", summary.PointsLast7Days)
	}
	if summary.PointsLast30Days != 15 {
		t.Fatalf("points_last_30_days = %d, want 15", summary.PointsLast30Days)
	}
}

func TestCalculateEmptyEvents(t *testing.T) {
	now := mustParse(t, "2025-01-21T00:00:00Z")
	summary, err := Calculate(nil, Config{ExperienceKey: "main"}, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PointsAllTime != 0 || summary.DateLastEvent != nil || summary.DateCreated != nil {
		t.Fatalf("expected zeroed summary with no dates, got %+v", summary)
	}
}

// Invariant 5: monotone non-decreasing windows when adding a non-negative event.
func TestCalculateMonotoneWindows(t *testing.T) {
	base := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-10T10:00:00Z"), Points: 3},
	}
	now := mustParse(t, "2025-01-15T00:00:00Z")

	before, err := Calculate(base, Config{ExperienceKey: "main"}, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	withExtra := append(append([]Event{}, base...), Event{
		ID: "2", CreatedAt: mustParse(t, "2025-01-12T10:00:00Z"), Points: 2,
	})
	after, err := Calculate(withExtra, Config{ExperienceKey: "main"}, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if after.PointsAllTime < before.PointsAllTime {
		t.Fatalf("points_all_time decreased: %d -> %d", before.PointsAllTime, after.PointsAllTime)
	}
	if after.PointsLast7Days < before.PointsLast7Days {
		t.Fatalf("points_last_7_days decreased: %d -> %d", before.PointsLast7Days, after.PointsLast7Days)
	}
	if after.PointsThisMonth < before.PointsThisMonth {
		t.Fatalf("points_this_month decreased: %d -> %d", before.PointsThisMonth, after.PointsThisMonth)
	}
}

// Invariant 6: points_all_time does not depend on zone.
func TestCalculateAllTimeTimezoneInvariant(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-10T10:00:00Z"), Points: 7},
		{ID: "2", CreatedAt: mustParse(t, "2025-01-12T23:00:00Z"), Points: 4},
	}
	now := mustParse(t, "2025-01-15T00:00:00Z")

	utc, err := Calculate(events, Config{ExperienceKey: "main"}, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tokyo, err := Calculate(events, Config{ExperienceKey: "main"}, "u1", now, "Asia/Tokyo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if utc.PointsAllTime != tokyo.PointsAllTime {
		t.Fatalf("points_all_time depends on zone: %d vs %d", utc.PointsAllTime, tokyo.PointsAllTime)
	}
}

// Invariant 7: rolling windows do not depend on zone.
func TestCalculateRollingWindowsTimezoneInvariant(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-10T10:00:00Z"), Points: 7},
		{ID: "2", CreatedAt: mustParse(t, "2025-01-12T23:00:00Z"), Points: 4},
	}
	now := mustParse(t, "2025-01-15T00:00:00Z")

	utc, err := Calculate(events, Config{ExperienceKey: "main"}, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tokyo, err := Calculate(events, Config{ExperienceKey: "main"}, "u1", now, "Asia/Tokyo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if utc.PointsLast7Days != tokyo.PointsLast7Days {
		t.Fatalf("points_last_7_days depends on zone: %d vs %d", utc.PointsLast7Days, tokyo.PointsLast7Days)
	}
	if utc.PointsLast30Days != tokyo.PointsLast30Days {
		t.Fatalf("points_last_30_days depends on zone: %d vs %d", utc.PointsLast30Days, tokyo.PointsLast30Days)
	}
	if utc.PointsLast12Months != tokyo.PointsLast12Months {
		t.Fatalf("points_last_12_months depends on zone: %d vs %d", utc.PointsLast12Months, tokyo.PointsLast12Months)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{ExperienceKey: "main"}).Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	if err := (Config{}).Validate(); err == nil {
		t.Fatal("expected error for missing experience key")
	}
}
