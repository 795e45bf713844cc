package streak

import (
	"testing"
	"time"

	"github.com/focusnest/gamification-engine/internal/freeze"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return tm
}

func baseConfig() Config {
	return Config{
		StreakKey:            "daily",
		EventsRequiredPerDay: 1,
		LeewayHours:          0,
		FreezeBehavior:       FreezeBehaviorNone,
	}
}

// Scenario A — basic streak.
func TestCalculateScenarioA(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
		{ID: "2", CreatedAt: mustParse(t, "2025-01-02T12:00:00Z")},
		{ID: "3", CreatedAt: mustParse(t, "2025-01-03T12:00:00Z")},
	}
	now := mustParse(t, "2025-01-03T18:00:00Z")

	summary, consumptions, err := Calculate(events, nil, baseConfig(), "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(consumptions) != 0 {
		t.Fatalf("expected no consumptions, got %v", consumptions)
	}
	if summary.CurrentStreak != 3 {
		t.Fatalf("current_streak = %d, want 3", summary.CurrentStreak)
	}
	if summary.LongestStreak != 3 {
		t.Fatalf("longest_streak = %d, want 3", summary.LongestStreak)
	}
	if summary.TodayEventCount != 1 {
		t.Fatalf("today_event_count = %d, want 1", summary.TodayEventCount)
	}
}

// Scenario B — at-risk yesterday.
func TestCalculateScenarioB(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
		{ID: "2", CreatedAt: mustParse(t, "2025-01-02T12:00:00Z")},
	}
	now := mustParse(t, "2025-01-03T10:00:00Z")

	summary, _, err := Calculate(events, nil, baseConfig(), "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CurrentStreak != 2 {
		t.Fatalf("current_streak = %d, want 2", summary.CurrentStreak)
	}
	if summary.LongestStreak != 2 {
		t.Fatalf("longest_streak = %d, want 2", summary.LongestStreak)
	}
}

// Scenario C — at-risk expires.
func TestCalculateScenarioC(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
		{ID: "2", CreatedAt: mustParse(t, "2025-01-02T12:00:00Z")},
	}
	now := mustParse(t, "2025-01-04T10:00:00Z")

	summary, _, err := Calculate(events, nil, baseConfig(), "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CurrentStreak != 0 {
		t.Fatalf("current_streak = %d, want 0", summary.CurrentStreak)
	}
}

// Scenario D — auto-consume save; freeze days preserve continuity without counting.
func TestCalculateScenarioD(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
		{ID: "2", CreatedAt: mustParse(t, "2025-01-02T12:00:00Z")},
	}
	earned := mustParse(t, "2024-12-20T00:00:00Z")
	freezes := []freeze.Freeze{{ID: "f1", EarnedAt: &earned}}
	now := mustParse(t, "2025-01-04T12:00:00Z")

	cfg := baseConfig()
	cfg.FreezeBehavior = FreezeBehaviorAutoConsume

	summary, consumptions, err := Calculate(events, freezes, cfg, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(consumptions) != 1 {
		t.Fatalf("expected 1 consumption, got %d", len(consumptions))
	}
	wantDay := mustParse(t, "2025-01-03T00:00:00Z")
	if consumptions[0].FreezeID != "f1" || !consumptions[0].Day.Equal(wantDay) {
		t.Fatalf("unexpected consumption: %+v", consumptions[0])
	}
	if summary.CurrentStreak != 2 {
		t.Fatalf("current_streak = %d, want 2", summary.CurrentStreak)
	}
	if summary.FreezesAvailableCount != 0 {
		t.Fatalf("freezes_available_count = %d, want 0", summary.FreezesAvailableCount)
	}
}

// Scenario E — insufficient freezes, no consumption.
func TestCalculateScenarioE(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
	}
	now := mustParse(t, "2025-01-04T00:00:00Z")

	cfg := baseConfig()
	cfg.FreezeBehavior = FreezeBehaviorAutoConsume

	summary, consumptions, err := Calculate(events, nil, cfg, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(consumptions) != 0 {
		t.Fatalf("expected no consumptions, got %v", consumptions)
	}
	if summary.CurrentStreak != 0 {
		t.Fatalf("current_streak = %d, want 0", summary.CurrentStreak)
	}
}

// Scenario F — goal-based threshold.
func TestCalculateScenarioF(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-01T08:00:00Z")},
		{ID: "2", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
		{ID: "3", CreatedAt: mustParse(t, "2025-01-01T16:00:00Z")},
		{ID: "4", CreatedAt: mustParse(t, "2025-01-02T08:00:00Z")},
		{ID: "5", CreatedAt: mustParse(t, "2025-01-02T12:00:00Z")},
		{ID: "6", CreatedAt: mustParse(t, "2025-01-03T08:00:00Z")},
		{ID: "7", CreatedAt: mustParse(t, "2025-01-03T12:00:00Z")},
		{ID: "8", CreatedAt: mustParse(t, "2025-01-03T16:00:00Z")},
	}
	now := mustParse(t, "2025-01-03T23:00:00Z")

	cfg := baseConfig()
	cfg.EventsRequiredPerDay = 3

	summary, _, err := Calculate(events, nil, cfg, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.CurrentStreak != 1 {
		t.Fatalf("current_streak = %d, want 1", summary.CurrentStreak)
	}
	if summary.LongestStreak != 1 {
		t.Fatalf("longest_streak = %d, want 1", summary.LongestStreak)
	}
}

// Invariant 1: with no_freezes, consumptions is always empty.
func TestCalculateNoFreezesNeverConsumes(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
	}
	earned := mustParse(t, "2024-12-01T00:00:00Z")
	freezes := []freeze.Freeze{{ID: "f1", EarnedAt: &earned}}
	now := mustParse(t, "2025-01-10T00:00:00Z")

	_, consumptions, err := Calculate(events, freezes, baseConfig(), "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(consumptions) != 0 {
		t.Fatalf("expected no consumptions under no_freezes, got %v", consumptions)
	}
}

// Invariant 2: longest_streak >= current_streak for every case above.
func TestCalculateLongestAtLeastCurrent(t *testing.T) {
	cases := []struct {
		name   string
		events []Event
		now    time.Time
		cfg    Config
	}{
		{"A", []Event{
			{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
			{ID: "2", CreatedAt: mustParse(t, "2025-01-02T12:00:00Z")},
			{ID: "3", CreatedAt: mustParse(t, "2025-01-03T12:00:00Z")},
		}, mustParse(t, "2025-01-03T18:00:00Z"), baseConfig()},
		{"C", []Event{
			{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
			{ID: "2", CreatedAt: mustParse(t, "2025-01-02T12:00:00Z")},
		}, mustParse(t, "2025-01-04T10:00:00Z"), baseConfig()},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			summary, _, err := Calculate(c.events, nil, c.cfg, "u1", c.now, "UTC")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if summary.LongestStreak < summary.CurrentStreak {
				t.Fatalf("longest_streak %d < current_streak %d", summary.LongestStreak, summary.CurrentStreak)
			}
		})
	}
}

// Invariant 3: date_streak_start equals the leeway-shifted start-of-day minus (current_streak-1) days.
func TestCalculateDateStreakStart(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
		{ID: "2", CreatedAt: mustParse(t, "2025-01-02T12:00:00Z")},
		{ID: "3", CreatedAt: mustParse(t, "2025-01-03T12:00:00Z")},
	}
	now := mustParse(t, "2025-01-03T18:00:00Z")

	summary, _, err := Calculate(events, nil, baseConfig(), "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.DateStreakStart == nil {
		t.Fatal("expected date_streak_start to be set")
	}
	want := mustParse(t, "2025-01-01T00:00:00Z")
	if !summary.DateStreakStart.Equal(want) {
		t.Fatalf("date_streak_start = %v, want %v", summary.DateStreakStart, want)
	}
}

// Invariant 8: FIFO consumption order — consumed freeze is the earliest by (earned_at, id).
func TestCalculateFreezeFIFOOrder(t *testing.T) {
	events := []Event{
		{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")},
	}
	earlier := mustParse(t, "2024-11-01T00:00:00Z")
	later := mustParse(t, "2024-12-01T00:00:00Z")
	freezes := []freeze.Freeze{
		{ID: "later", EarnedAt: &later},
		{ID: "earlier", EarnedAt: &earlier},
	}
	now := mustParse(t, "2025-01-03T00:00:00Z")

	cfg := baseConfig()
	cfg.FreezeBehavior = FreezeBehaviorAutoConsume

	_, consumptions, err := Calculate(events, freezes, cfg, "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(consumptions) != 1 {
		t.Fatalf("expected 1 consumption, got %d", len(consumptions))
	}
	if consumptions[0].FreezeID != "earlier" {
		t.Fatalf("consumed freeze = %q, want %q", consumptions[0].FreezeID, "earlier")
	}
}

func TestCalculateEmptyEvents(t *testing.T) {
	earned := mustParse(t, "2024-12-01T00:00:00Z")
	freezes := []freeze.Freeze{{ID: "f1", EarnedAt: &earned}}
	now := mustParse(t, "2025-01-03T00:00:00Z")

	summary, consumptions, err := Calculate(nil, freezes, baseConfig(), "u1", now, "UTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consumptions != nil {
		t.Fatalf("expected nil consumptions, got %v", consumptions)
	}
	if summary.CurrentStreak != 0 || summary.LongestStreak != 0 || summary.TotalEvents != 0 {
		t.Fatalf("expected zeroed summary, got %+v", summary)
	}
	if summary.FreezesAvailableCount != 1 {
		t.Fatalf("freezes_available_count = %d, want 1", summary.FreezesAvailableCount)
	}
}

func TestCalculateUnknownZoneErrors(t *testing.T) {
	events := []Event{{ID: "1", CreatedAt: mustParse(t, "2025-01-01T12:00:00Z")}}
	now := mustParse(t, "2025-01-03T00:00:00Z")

	_, _, err := Calculate(events, nil, baseConfig(), "u1", now, "Not/AZone")
	if err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := baseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	bad := cfg
	bad.StreakKey = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for missing streak key")
	}

	bad = cfg
	bad.EventsRequiredPerDay = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for non-positive events_required_per_day")
	}

	bad = cfg
	bad.LeewayHours = 24
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for leeway_hours out of range")
	}

	bad = cfg
	bad.FreezeBehavior = "bogus"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown freeze_behavior")
	}
}

func TestProjectState(t *testing.T) {
	if ProjectState(Summary{CurrentStreak: 0}) != StateBroken {
		t.Fatal("expected broken when current_streak is 0")
	}
	if ProjectState(Summary{CurrentStreak: 2, EventsRequiredPerDay: 1, TodayEventCount: 1}) != StateActive {
		t.Fatal("expected active when today qualifies")
	}
	if ProjectState(Summary{CurrentStreak: 2, EventsRequiredPerDay: 1, TodayEventCount: 0}) != StateAtRisk {
		t.Fatal("expected at_risk when today has not yet qualified")
	}
}
