package freeze

import (
	"testing"
	"time"
)

func ptr(t time.Time) *time.Time { return &t }

func TestAvailable(t *testing.T) {
	now := time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)

	notUsedNoExpiry := Freeze{ID: "a"}
	if !Available(notUsedNoExpiry, now) {
		t.Fatal("expected available: no used_at, no expiry")
	}

	used := Freeze{ID: "b", UsedAt: ptr(now)}
	if Available(used, now) {
		t.Fatal("expected unavailable: already used")
	}

	expired := Freeze{ID: "c", ExpiresAt: ptr(now.Add(-time.Hour))}
	if Available(expired, now) {
		t.Fatal("expected unavailable: expired")
	}

	notYetExpired := Freeze{ID: "d", ExpiresAt: ptr(now.Add(time.Hour))}
	if !Available(notYetExpired, now) {
		t.Fatal("expected available: expiry is in the future")
	}
}

func TestFIFONilsSortFirstThenByID(t *testing.T) {
	d1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	freezes := []Freeze{
		{ID: "z", EarnedAt: ptr(d2)},
		{ID: "b"}, // nil EarnedAt
		{ID: "a"}, // nil EarnedAt
		{ID: "y", EarnedAt: ptr(d1)},
	}

	ordered := FIFO(freezes)
	gotIDs := make([]string, len(ordered))
	for i, f := range ordered {
		gotIDs[i] = f.ID
	}
	want := []string{"a", "b", "y", "z"}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("FIFO order = %v, want %v", gotIDs, want)
		}
	}
}

func TestSelectForDaysPairsFIFOOrder(t *testing.T) {
	d1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	freezes := []Freeze{
		{ID: "second", EarnedAt: ptr(d2)},
		{ID: "first", EarnedAt: ptr(d1)},
	}
	days := []time.Time{
		time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}

	consumptions := SelectForDays(days, freezes)
	if len(consumptions) != 1 {
		t.Fatalf("expected 1 consumption, got %d", len(consumptions))
	}
	if consumptions[0].FreezeID != "first" {
		t.Fatalf("expected FIFO freeze %q, got %q", "first", consumptions[0].FreezeID)
	}
	if !consumptions[0].Day.Equal(days[0]) {
		t.Fatalf("unexpected day: %v", consumptions[0].Day)
	}
}

func TestSelectForDaysCapsAtFewerAvailable(t *testing.T) {
	freezes := []Freeze{{ID: "only"}}
	days := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	got := SelectForDays(days, freezes)
	if len(got) != 1 {
		t.Fatalf("expected selection capped at 1, got %d", len(got))
	}
}
