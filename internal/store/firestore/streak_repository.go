// Package firestore adapts the streak, XP, and progress repository
// contracts (spec §6) onto Cloud Firestore, preserving the bit-exact
// document layout the existing client applications already read.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/freeze"
	"github.com/focusnest/gamification-engine/internal/streak"
)

const (
	currentStreakDoc = "current_streak"
	streakEventsDoc   = "streak_events"
	streakFreezesDoc  = "streak_freezes"
	dataColl          = "data"
)

type streakEventDTO struct {
	ID        string         `firestore:"id"`
	CreatedAt time.Time      `firestore:"created_at"`
	Timezone  string         `firestore:"timezone"`
	IsFreeze  bool           `firestore:"is_freeze"`
	FreezeID  *string        `firestore:"freeze_id,omitempty"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
}

type freezeDTO struct {
	ID        string     `firestore:"id"`
	EarnedAt  *time.Time `firestore:"earned_at,omitempty"`
	UsedAt    *time.Time `firestore:"used_at,omitempty"`
	ExpiresAt *time.Time `firestore:"expires_at,omitempty"`
}

type streakSummaryDTO struct {
	StreakKey             string           `firestore:"streak_key"`
	UserID                string           `firestore:"user_id"`
	CurrentStreak         int              `firestore:"current_streak"`
	LongestStreak         int              `firestore:"longest_streak"`
	DateLastEvent         *time.Time       `firestore:"date_last_event,omitempty"`
	LastEventTimezone     string           `firestore:"last_event_timezone,omitempty"`
	DateStreakStart       *time.Time       `firestore:"date_streak_start,omitempty"`
	TotalEvents           int              `firestore:"total_events"`
	FreezesAvailable      []freezeDTO      `firestore:"freezes_available"`
	FreezesAvailableCount int              `firestore:"freezes_available_count"`
	DateCreated           *time.Time       `firestore:"date_created,omitempty"`
	DateUpdated           time.Time        `firestore:"date_updated"`
	EventsRequiredPerDay  int              `firestore:"events_required_per_day"`
	TodayEventCount       int              `firestore:"today_event_count"`
	RecentEvents          []streakEventDTO `firestore:"recent_events"`
}

// StreakRepository adapts streak.Repository onto Firestore, rooted at
// <rootCollection>/<user_id>/<streak_key>/... (spec §6).
type StreakRepository struct {
	client         *firestore.Client
	rootCollection string
}

// NewStreakRepository constructs a Firestore-backed streak.Repository.
func NewStreakRepository(client *firestore.Client, rootCollection string) *StreakRepository {
	return &StreakRepository{client: client, rootCollection: rootCollection}
}

func (r *StreakRepository) keyDoc(userID, streakKey string) *firestore.DocumentRef {
	return r.client.Collection(r.rootCollection).Doc(userID).Collection(streakKey).Doc(currentStreakDoc)
}

func (r *StreakRepository) eventsColl(userID, streakKey string) *firestore.CollectionRef {
	return r.client.Collection(r.rootCollection).Doc(userID).Collection(streakKey).Doc(streakEventsDoc).Collection(dataColl)
}

func (r *StreakRepository) freezesColl(userID, streakKey string) *firestore.CollectionRef {
	return r.client.Collection(r.rootCollection).Doc(userID).Collection(streakKey).Doc(streakFreezesDoc).Collection(dataColl)
}

func (r *StreakRepository) ListEvents(ctx context.Context, userID, streakKey string) ([]streak.Event, error) {
	iter := r.eventsColl(userID, streakKey).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var events []streak.Event
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to list streak events", err)
		}
		var dto streakEventDTO
		if err := doc.DataTo(&dto); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to decode streak event", err)
		}
		events = append(events, fromEventDTO(dto))
	}
	return events, nil
}

func (r *StreakRepository) ListFreezes(ctx context.Context, userID, streakKey string) ([]freeze.Freeze, error) {
	iter := r.freezesColl(userID, streakKey).OrderBy("earned_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var freezes []freeze.Freeze
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to list freezes", err)
		}
		var dto freezeDTO
		if err := doc.DataTo(&dto); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to decode freeze", err)
		}
		freezes = append(freezes, fromFreezeDTO(dto))
	}
	return freezes, nil
}

func (r *StreakRepository) AppendEvent(ctx context.Context, userID, streakKey string, event streak.Event) error {
	dto := toEventDTO(event)
	_, err := r.eventsColl(userID, streakKey).Doc(event.ID).Set(ctx, dto)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to append streak event", err)
	}
	return nil
}

func (r *StreakRepository) MarkFreezeUsed(ctx context.Context, userID, streakKey, freezeID string, at time.Time) error {
	ref := r.freezesColl(userID, streakKey).Doc(freezeID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return apperrors.New(apperrors.CodeInvalidArgument, "unknown freeze")
			}
			return err
		}
		var dto freezeDTO
		if err := doc.DataTo(&dto); err != nil {
			return fmt.Errorf("decode freeze: %w", err)
		}
		if dto.UsedAt != nil {
			return apperrors.New(apperrors.CodeConflict, "freeze already used")
		}
		usedAt := at
		dto.UsedAt = &usedAt
		return tx.Set(ref, dto)
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeConflict {
			return err
		}
		if appErr, ok := err.(*apperrors.Error); ok {
			return appErr
		}
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to mark freeze used", err)
	}
	return nil
}

func (r *StreakRepository) UpsertSummary(ctx context.Context, userID, streakKey string, summary streak.Summary) error {
	dto := toSummaryDTO(summary)
	_, err := r.keyDoc(userID, streakKey).Set(ctx, dto, firestore.MergeAll)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to upsert streak summary", err)
	}
	return nil
}

func (r *StreakRepository) StreamSummary(ctx context.Context, userID, streakKey string) (<-chan streak.Summary, error) {
	ch := make(chan streak.Summary, 1)
	snapIter := r.keyDoc(userID, streakKey).Snapshots(ctx)

	go func() {
		defer snapIter.Stop()
		defer close(ch)
		for {
			snap, err := snapIter.Next()
			if err != nil {
				return
			}
			if !snap.Exists() {
				continue
			}
			var dto streakSummaryDTO
			if err := snap.DataTo(&dto); err != nil {
				continue
			}
			select {
			case ch <- fromSummaryDTO(dto):
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

func toEventDTO(e streak.Event) streakEventDTO {
	return streakEventDTO{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		Timezone:  e.Timezone,
		IsFreeze:  e.IsFreeze,
		FreezeID:  e.FreezeID,
		Metadata:  map[string]any(e.Metadata),
	}
}

func fromEventDTO(dto streakEventDTO) streak.Event {
	return streak.Event{
		ID:        dto.ID,
		CreatedAt: dto.CreatedAt,
		Timezone:  dto.Timezone,
		IsFreeze:  dto.IsFreeze,
		FreezeID:  dto.FreezeID,
		Metadata:  dto.Metadata,
	}
}

func toFreezeDTO(f freeze.Freeze) freezeDTO {
	return freezeDTO{ID: f.ID, EarnedAt: f.EarnedAt, UsedAt: f.UsedAt, ExpiresAt: f.ExpiresAt}
}

func fromFreezeDTO(dto freezeDTO) freeze.Freeze {
	return freeze.Freeze{ID: dto.ID, EarnedAt: dto.EarnedAt, UsedAt: dto.UsedAt, ExpiresAt: dto.ExpiresAt}
}

func toSummaryDTO(s streak.Summary) streakSummaryDTO {
	freezes := make([]freezeDTO, 0, len(s.FreezesAvailable))
	for _, f := range s.FreezesAvailable {
		freezes = append(freezes, toFreezeDTO(f))
	}
	recent := make([]streakEventDTO, 0, len(s.RecentEvents))
	for _, e := range s.RecentEvents {
		recent = append(recent, toEventDTO(e))
	}
	return streakSummaryDTO{
		StreakKey:             s.StreakKey,
		UserID:                s.UserID,
		CurrentStreak:         s.CurrentStreak,
		LongestStreak:         s.LongestStreak,
		DateLastEvent:         s.DateLastEvent,
		LastEventTimezone:     s.LastEventTimezone,
		DateStreakStart:       s.DateStreakStart,
		TotalEvents:           s.TotalEvents,
		FreezesAvailable:      freezes,
		FreezesAvailableCount: s.FreezesAvailableCount,
		DateCreated:           s.DateCreated,
		DateUpdated:           s.DateUpdated,
		EventsRequiredPerDay:  s.EventsRequiredPerDay,
		TodayEventCount:       s.TodayEventCount,
		RecentEvents:          recent,
	}
}

func fromSummaryDTO(dto streakSummaryDTO) streak.Summary {
	freezes := make([]freeze.Freeze, 0, len(dto.FreezesAvailable))
	for _, f := range dto.FreezesAvailable {
		freezes = append(freezes, fromFreezeDTO(f))
	}
	recent := make([]streak.Event, 0, len(dto.RecentEvents))
	for _, e := range dto.RecentEvents {
		recent = append(recent, fromEventDTO(e))
	}
	return streak.Summary{
		StreakKey:             dto.StreakKey,
		UserID:                dto.UserID,
		CurrentStreak:         dto.CurrentStreak,
		LongestStreak:         dto.LongestStreak,
		DateLastEvent:         dto.DateLastEvent,
		LastEventTimezone:     dto.LastEventTimezone,
		DateStreakStart:       dto.DateStreakStart,
		TotalEvents:           dto.TotalEvents,
		FreezesAvailable:      freezes,
		FreezesAvailableCount: dto.FreezesAvailableCount,
		DateCreated:           dto.DateCreated,
		DateUpdated:           dto.DateUpdated,
		EventsRequiredPerDay:  dto.EventsRequiredPerDay,
		TodayEventCount:       dto.TodayEventCount,
		RecentEvents:          recent,
	}
}

func isNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}
