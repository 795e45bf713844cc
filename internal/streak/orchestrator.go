package streak

import (
	"context"
	"errors"
	"time"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/freeze"
)

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for synthesized freeze events.
type IDGenerator interface {
	NewID() string
}

// Orchestrator binds the streak calculator to a Repository and runs the
// read-calculate-mutate-reread-recalculate-write cycle of spec §4.5.
type Orchestrator struct {
	repo  Repository
	clock Clock
	ids   IDGenerator
}

// NewOrchestrator constructs an Orchestrator with the given collaborators.
func NewOrchestrator(repo Repository, clock Clock, ids IDGenerator) (*Orchestrator, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	return &Orchestrator{repo: repo, clock: clock, ids: ids}, nil
}

// Calculate runs the callable entry point described in spec §4.5 and §6
// (calculateStreak): load state, compute the summary, apply freeze
// consumptions, and upsert. It returns the final summary.
func (o *Orchestrator) Calculate(ctx context.Context, userID string, cfg Config, zone string) (Summary, error) {
	if userID == "" {
		return Summary{}, apperrors.New(apperrors.CodeInvalidArgument, "userId is required")
	}
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	events, freezes, err := o.readState(ctx, userID, cfg.StreakKey)
	if err != nil {
		return Summary{}, err
	}

	resolvedZone := resolveZone(zone, events)
	now := o.clock.Now()

	summary, consumptions, err := Calculate(events, freezes, cfg, userID, now, resolvedZone)
	if err != nil {
		return Summary{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "streak calculation failed", err)
	}

	if len(consumptions) > 0 {
		eventTimezone := resolvedZone
		if summary.LastEventTimezone != "" {
			eventTimezone = summary.LastEventTimezone
		}
		for _, c := range consumptions {
			freezeID := c.FreezeID
			synthesized := Event{
				ID:        o.ids.NewID(),
				CreatedAt: c.Day,
				Timezone:  eventTimezone,
				IsFreeze:  true,
				FreezeID:  &freezeID,
			}
			if err := o.repo.AppendEvent(ctx, userID, cfg.StreakKey, synthesized); err != nil {
				return Summary{}, apperrors.Wrap(apperrors.CodeInternal, "failed to append freeze event", err)
			}
			if err := o.markFreezeUsed(ctx, userID, cfg.StreakKey, freezeID, now); err != nil {
				return Summary{}, err
			}
		}

		// Re-read and recompute: the invariant is that the gap is now closed
		// by the freeze-events just appended, so this pass must yield zero
		// additional consumptions (spec §4.5 step 5).
		events, freezes, err = o.readState(ctx, userID, cfg.StreakKey)
		if err != nil {
			return Summary{}, err
		}
		summary, _, err = Calculate(events, freezes, cfg, userID, now, resolvedZone)
		if err != nil {
			return Summary{}, apperrors.Wrap(apperrors.CodeInvalidArgument, "streak recalculation failed", err)
		}
	}

	if err := o.repo.UpsertSummary(ctx, userID, cfg.StreakKey, summary); err != nil {
		return Summary{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to upsert streak summary", err)
	}

	return summary, nil
}

// ReadSummary returns the currently persisted summary without running the
// calculator — a read-only convenience for the HTTP surface (spec §6).
func (o *Orchestrator) ReadSummary(ctx context.Context, userID, streakKey string) (Summary, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := o.repo.StreamSummary(streamCtx, userID, streakKey)
	if err != nil {
		return Summary{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to read streak summary", err)
	}
	select {
	case summary, ok := <-ch:
		if !ok {
			return Summary{}, apperrors.New(apperrors.CodeInvalidArgument, "no summary found")
		}
		return summary, nil
	case <-ctx.Done():
		return Summary{}, apperrors.Wrap(apperrors.CodeStoreUnavailable, "timed out reading streak summary", ctx.Err())
	}
}

func (o *Orchestrator) readState(ctx context.Context, userID, streakKey string) ([]Event, []freeze.Freeze, error) {
	events, err := o.repo.ListEvents(ctx, userID, streakKey)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to list streak events", err)
	}
	freezes, err := o.repo.ListFreezes(ctx, userID, streakKey)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to list freezes", err)
	}
	return events, freezes, nil
}

func (o *Orchestrator) markFreezeUsed(ctx context.Context, userID, streakKey, freezeID string, at time.Time) error {
	if err := o.repo.MarkFreezeUsed(ctx, userID, streakKey, freezeID, at); err != nil {
		// A conflict here means the freeze was already marked used by a
		// previous attempt; the orchestrator treats that as benign and
		// proceeds (spec §7).
		if apperrors.CodeOf(err) == apperrors.CodeConflict {
			return nil
		}
		return apperrors.Wrap(apperrors.CodeInternal, "failed to mark freeze used", err)
	}
	return nil
}

// resolveZone implements spec §4.5 step 2: prefer the caller-supplied zone,
// else the timezone of the latest event, else UTC.
func resolveZone(zone string, events []Event) string {
	if zone != "" {
		return zone
	}
	var latest *Event
	for i := range events {
		if latest == nil || events[i].CreatedAt.After(latest.CreatedAt) {
			latest = &events[i]
		}
	}
	if latest != nil && latest.Timezone != "" {
		return latest.Timezone
	}
	return "UTC"
}
