package xp

import (
	"context"
	"errors"
	"time"

	"github.com/focusnest/gamification-engine/internal/apperrors"
)

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// Orchestrator binds the XP calculator to a Repository (spec §4.5).
type Orchestrator struct {
	repo  Repository
	clock Clock
}

// NewOrchestrator constructs an Orchestrator with the given collaborators.
func NewOrchestrator(repo Repository, clock Clock) (*Orchestrator, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	return &Orchestrator{repo: repo, clock: clock}, nil
}

// Calculate runs the callable entry point described in spec §4.5 and §6
// (calculateExperiencePoints). XP events carry no timezone, so zone
// defaults to UTC unless the caller supplies one.
func (o *Orchestrator) Calculate(ctx context.Context, userID string, cfg Config, zone string) (Summary, error) {
	if userID == "" {
		return Summary{}, apperrors.New(apperrors.CodeInvalidArgument, "userId is required")
	}
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}
	if zone == "" {
		zone = "UTC"
	}

	events, err := o.repo.ListEvents(ctx, userID, cfg.ExperienceKey)
	if err != nil {
		return Summary{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to list xp events", err)
	}

	now := o.clock.Now()
	summary, err := Calculate(events, cfg, userID, now, zone)
	if err != nil {
		return Summary{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "xp calculation failed", err)
	}

	if err := o.repo.UpsertSummary(ctx, userID, cfg.ExperienceKey, summary); err != nil {
		return Summary{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to upsert xp summary", err)
	}

	return summary, nil
}

// ReadSummary returns the currently persisted summary without running the
// calculator — a read-only convenience for the HTTP surface (spec §6).
func (o *Orchestrator) ReadSummary(ctx context.Context, userID, experienceKey string) (Summary, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := o.repo.StreamSummary(streamCtx, userID, experienceKey)
	if err != nil {
		return Summary{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to read xp summary", err)
	}
	select {
	case summary, ok := <-ch:
		if !ok {
			return Summary{}, apperrors.New(apperrors.CodeInvalidArgument, "no summary found")
		}
		return summary, nil
	case <-ctx.Done():
		return Summary{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "timed out reading xp summary", ctx.Err())
	}
}
