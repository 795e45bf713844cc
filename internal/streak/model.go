// Package streak implements the streak calculator and its callable
// orchestrator (spec §4.3, §4.5): freeze auto-consumption, the
// at-risk-yesterday edge case, and the idempotent read-calculate-write
// cycle.
package streak

import (
	"context"
	"fmt"
	"time"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/freeze"
	"github.com/focusnest/gamification-engine/internal/metadata"
)

// Event is a single streak-relevant occurrence in a user's append-only log.
type Event struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	Timezone  string       `json:"timezone"`
	IsFreeze  bool         `json:"isFreeze"`
	FreezeID  *string      `json:"freezeId,omitempty"`
	Metadata  metadata.Map `json:"metadata,omitempty"`
}

// FreezeBehavior selects how the calculator treats available freezes.
type FreezeBehavior string

const (
	FreezeBehaviorNone        FreezeBehavior = "no_freezes"
	FreezeBehaviorAutoConsume FreezeBehavior = "auto_consume"
	FreezeBehaviorManual      FreezeBehavior = "manual_consume"
)

// Config captures the per-streak calculation policy (spec §3).
type Config struct {
	StreakKey            string
	EventsRequiredPerDay int
	LeewayHours          int
	FreezeBehavior       FreezeBehavior
}

// Validate enforces the invalid_argument constraints from spec §7. The
// calculator itself is total on valid inputs; this is the orchestrator's
// admission check.
func (c Config) Validate() error {
	if c.StreakKey == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "streak key is required")
	}
	if c.EventsRequiredPerDay < 1 {
		return apperrors.New(apperrors.CodeInvalidArgument, "events_required_per_day must be >= 1")
	}
	if c.LeewayHours < 0 || c.LeewayHours > 23 {
		return apperrors.New(apperrors.CodeInvalidArgument, "leeway_hours must be between 0 and 23")
	}
	switch c.FreezeBehavior {
	case FreezeBehaviorNone, FreezeBehaviorAutoConsume, FreezeBehaviorManual:
	default:
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown freeze_behavior %q", c.FreezeBehavior))
	}
	return nil
}

// Summary is the computed streak state for one (user, streak_key) pair (spec §3).
type Summary struct {
	StreakKey             string          `json:"streakKey"`
	UserID                string          `json:"userId"`
	CurrentStreak         int             `json:"currentStreak"`
	LongestStreak         int             `json:"longestStreak"`
	DateLastEvent         *time.Time      `json:"dateLastEvent,omitempty"`
	LastEventTimezone     string          `json:"lastEventTimezone,omitempty"`
	DateStreakStart       *time.Time      `json:"dateStreakStart,omitempty"`
	TotalEvents           int             `json:"totalEvents"`
	FreezesAvailable      []freeze.Freeze `json:"freezesAvailable,omitempty"`
	FreezesAvailableCount int             `json:"freezesAvailableCount"`
	DateCreated           *time.Time      `json:"dateCreated,omitempty"`
	DateUpdated           time.Time       `json:"dateUpdated"`
	EventsRequiredPerDay  int             `json:"eventsRequiredPerDay"`
	TodayEventCount       int             `json:"todayEventCount"`
	RecentEvents          []Event         `json:"recentEvents,omitempty"`
}

// State is the pure projection of a Summary into active/at_risk/broken
// (spec §4.3's "no stored state fields" note).
type State string

const (
	StateActive State = "active"
	StateAtRisk State = "at_risk"
	StateBroken State = "broken"
)

// ProjectState derives the latent streak state from a computed summary.
func ProjectState(s Summary) State {
	if s.CurrentStreak == 0 {
		return StateBroken
	}
	if s.TodayEventCount >= s.EventsRequiredPerDay {
		return StateActive
	}
	return StateAtRisk
}

// Repository is the persistence contract the calculator and orchestrator
// bind to (spec §6). All operations are scoped to a single (user, streak_key).
type Repository interface {
	ListEvents(ctx context.Context, userID, streakKey string) ([]Event, error)
	ListFreezes(ctx context.Context, userID, streakKey string) ([]freeze.Freeze, error)
	AppendEvent(ctx context.Context, userID, streakKey string, event Event) error
	MarkFreezeUsed(ctx context.Context, userID, streakKey, freezeID string, at time.Time) error
	UpsertSummary(ctx context.Context, userID, streakKey string, summary Summary) error
	// StreamSummary returns a restartable, cancellable channel of every
	// server-observed summary change. The consumer cancels by cancelling ctx.
	StreamSummary(ctx context.Context, userID, streakKey string) (<-chan Summary, error)
}
