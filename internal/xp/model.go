// Package xp implements the experience-points calculator and its callable
// orchestrator (spec §4.4, §4.5): windowed point sums across calendar and
// rolling windows.
package xp

import (
	"context"
	"time"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/metadata"
)

// Event is a single point-bearing occurrence in a user's append-only log.
type Event struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	Points    int64        `json:"points"`
	Metadata  metadata.Map `json:"metadata,omitempty"`
}

// Config captures the per-ledger calculation policy (spec §3).
type Config struct {
	ExperienceKey string
}

// Validate enforces the invalid_argument constraint from spec §7.
func (c Config) Validate() error {
	if c.ExperienceKey == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "experience key is required")
	}
	return nil
}

// Summary is the computed XP state for one (user, experience_key) pair (spec §3).
type Summary struct {
	ExperienceKey      string     `json:"experienceKey"`
	UserID             string     `json:"userId"`
	PointsAllTime      int64      `json:"pointsAllTime"`
	PointsToday        int64      `json:"pointsToday"`
	EventsTodayCount   int        `json:"eventsTodayCount"`
	PointsThisWeek     int64      `json:"pointsThisWeek"`
	PointsLast7Days    int64      `json:"pointsLast7Days"`
	PointsThisMonth    int64      `json:"pointsThisMonth"`
	PointsLast30Days   int64      `json:"pointsLast30Days"`
	PointsThisYear     int64      `json:"pointsThisYear"`
	PointsLast12Months int64      `json:"pointsLast12Months"`
	DateLastEvent      *time.Time `json:"dateLastEvent,omitempty"`
	DateCreated        *time.Time `json:"dateCreated,omitempty"`
	DateUpdated        time.Time  `json:"dateUpdated"`
	RecentEvents       []Event    `json:"recentEvents,omitempty"`
}

// Repository is the persistence contract the calculator and orchestrator
// bind to (spec §6). All operations are scoped to a single (user, experience_key).
type Repository interface {
	ListEvents(ctx context.Context, userID, experienceKey string) ([]Event, error)
	AppendEvent(ctx context.Context, userID, experienceKey string, event Event) error
	UpsertSummary(ctx context.Context, userID, experienceKey string, summary Summary) error
	// StreamSummary returns a restartable, cancellable channel of every
	// server-observed summary change. The consumer cancels by cancelling ctx.
	StreamSummary(ctx context.Context, userID, experienceKey string) (<-chan Summary, error)
}
