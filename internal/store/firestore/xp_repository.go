package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/xp"
)

const (
	currentXPDoc = "current_xp"
	xpEventsDoc  = "xp_events"
)

type xpEventDTO struct {
	ID        string         `firestore:"id"`
	CreatedAt time.Time      `firestore:"created_at"`
	Points    int64          `firestore:"points"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
}

type xpSummaryDTO struct {
	ExperienceKey      string       `firestore:"experience_key"`
	UserID             string       `firestore:"user_id"`
	PointsAllTime      int64        `firestore:"points_all_time"`
	PointsToday        int64        `firestore:"points_today"`
	EventsTodayCount   int          `firestore:"events_today_count"`
	PointsThisWeek     int64        `firestore:"points_this_week"`
	PointsLast7Days    int64        `firestore:"points_last_7_days"`
	PointsThisMonth    int64        `firestore:"points_this_month"`
	PointsLast30Days   int64        `firestore:"points_last_30_days"`
	PointsThisYear     int64        `firestore:"points_this_year"`
	PointsLast12Months int64        `firestore:"points_last_12_months"`
	DateLastEvent      *time.Time   `firestore:"date_last_event,omitempty"`
	DateCreated        *time.Time   `firestore:"date_created,omitempty"`
	DateUpdated        time.Time    `firestore:"date_updated"`
	RecentEvents       []xpEventDTO `firestore:"recent_events"`
}

// XPRepository adapts xp.Repository onto Firestore, rooted at
// <rootCollection>/<user_id>/<experience_key>/... (spec §6).
type XPRepository struct {
	client         *firestore.Client
	rootCollection string
}

// NewXPRepository constructs a Firestore-backed xp.Repository.
func NewXPRepository(client *firestore.Client, rootCollection string) *XPRepository {
	return &XPRepository{client: client, rootCollection: rootCollection}
}

func (r *XPRepository) keyDoc(userID, experienceKey string) *firestore.DocumentRef {
	return r.client.Collection(r.rootCollection).Doc(userID).Collection(experienceKey).Doc(currentXPDoc)
}

func (r *XPRepository) eventsColl(userID, experienceKey string) *firestore.CollectionRef {
	return r.client.Collection(r.rootCollection).Doc(userID).Collection(experienceKey).Doc(xpEventsDoc).Collection(dataColl)
}

func (r *XPRepository) ListEvents(ctx context.Context, userID, experienceKey string) ([]xp.Event, error) {
	iter := r.eventsColl(userID, experienceKey).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var events []xp.Event
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to list xp events", err)
		}
		var dto xpEventDTO
		if err := doc.DataTo(&dto); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to decode xp event", err)
		}
		events = append(events, xp.Event{ID: dto.ID, CreatedAt: dto.CreatedAt, Points: dto.Points, Metadata: dto.Metadata})
	}
	return events, nil
}

func (r *XPRepository) AppendEvent(ctx context.Context, userID, experienceKey string, event xp.Event) error {
	dto := xpEventDTO{ID: event.ID, CreatedAt: event.CreatedAt, Points: event.Points, Metadata: map[string]any(event.Metadata)}
	_, err := r.eventsColl(userID, experienceKey).Doc(event.ID).Set(ctx, dto)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to append xp event", err)
	}
	return nil
}

func (r *XPRepository) UpsertSummary(ctx context.Context, userID, experienceKey string, summary xp.Summary) error {
	recent := make([]xpEventDTO, 0, len(summary.RecentEvents))
	for _, e := range summary.RecentEvents {
		recent = append(recent, xpEventDTO{ID: e.ID, CreatedAt: e.CreatedAt, Points: e.Points, Metadata: map[string]any(e.Metadata)})
	}
	dto := xpSummaryDTO{
		ExperienceKey:      summary.ExperienceKey,
		UserID:             summary.UserID,
		PointsAllTime:      summary.PointsAllTime,
		PointsToday:        summary.PointsToday,
		EventsTodayCount:   summary.EventsTodayCount,
		PointsThisWeek:     summary.PointsThisWeek,
		PointsLast7Days:    summary.PointsLast7Days,
		PointsThisMonth:    summary.PointsThisMonth,
		PointsLast30Days:   summary.PointsLast30Days,
		PointsThisYear:     summary.PointsThisYear,
		PointsLast12Months: summary.PointsLast12Months,
		DateLastEvent:      summary.DateLastEvent,
		DateCreated:        summary.DateCreated,
		DateUpdated:        summary.DateUpdated,
		RecentEvents:       recent,
	}
	_, err := r.keyDoc(userID, experienceKey).Set(ctx, dto, firestore.MergeAll)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to upsert xp summary", err)
	}
	return nil
}

func (r *XPRepository) StreamSummary(ctx context.Context, userID, experienceKey string) (<-chan xp.Summary, error) {
	ch := make(chan xp.Summary, 1)
	snapIter := r.keyDoc(userID, experienceKey).Snapshots(ctx)

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
			var dto xpSummaryDTO
			if err := snap.DataTo(&dto); err != nil {
				continue
			}
			recent := make([]xp.Event, 0, len(dto.RecentEvents))
			for _, e := range dto.RecentEvents {
				recent = append(recent, xp.Event{ID: e.ID, CreatedAt: e.CreatedAt, Points: e.Points, Metadata: e.Metadata})
			}
			summary := xp.Summary{
				ExperienceKey:      dto.ExperienceKey,
				UserID:             dto.UserID,
				PointsAllTime:      dto.PointsAllTime,
				PointsToday:        dto.PointsToday,
				EventsTodayCount:   dto.EventsTodayCount,
				PointsThisWeek:     dto.PointsThisWeek,
				PointsLast7Days:    dto.PointsLast7Days,
				PointsThisMonth:    dto.PointsThisMonth,
				PointsLast30Days:   dto.PointsLast30Days,
				PointsThisYear:     dto.PointsThisYear,
				PointsLast12Months: dto.PointsLast12Months,
				DateLastEvent:      dto.DateLastEvent,
				DateCreated:        dto.DateCreated,
				DateUpdated:        dto.DateUpdated,
				RecentEvents:       recent,
			}
			select {
			case ch <- summary:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
