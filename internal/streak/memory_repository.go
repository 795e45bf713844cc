package streak

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/freeze"
)

type streakKeyPair struct {
	userID    string
	streakKey string
}

// memoryRepository is an in-memory Repository intended for local
// development and tests.
type memoryRepository struct {
	mu        sync.RWMutex
	events    map[streakKeyPair]map[string]Event
	freezes   map[streakKeyPair]map[string]freeze.Freeze
	summaries map[streakKeyPair]Summary
	watchers  map[streakKeyPair][]chan Summary
}

// NewMemoryRepository returns an in-memory repository intended for local
// development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		events:    make(map[streakKeyPair]map[string]Event),
		freezes:   make(map[streakKeyPair]map[string]freeze.Freeze),
		summaries: make(map[streakKeyPair]Summary),
		watchers:  make(map[streakKeyPair][]chan Summary),
	}
}

func (r *memoryRepository) ListEvents(_ context.Context, userID, streakKey string) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := streakKeyPair{userID, streakKey}
	bucket := r.events[key]
	out := make([]Event, 0, len(bucket))
	for _, e := range bucket {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) ListFreezes(_ context.Context, userID, streakKey string) ([]freeze.Freeze, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := streakKeyPair{userID, streakKey}
	bucket := r.freezes[key]
	out := make([]freeze.Freeze, 0, len(bucket))
	for _, f := range bucket {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
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
	})
	return out, nil
}

func (r *memoryRepository) AppendEvent(_ context.Context, userID, streakKey string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := streakKeyPair{userID, streakKey}
	bucket, ok := r.events[key]
	if !ok {
		bucket = make(map[string]Event)
		r.events[key] = bucket
	}
	// Upsert keyed by event.id (spec §6): retrying the same invocation
	// converges rather than duplicating.
	bucket[event.ID] = event
	return nil
}

func (r *memoryRepository) MarkFreezeUsed(_ context.Context, userID, streakKey, freezeID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := streakKeyPair{userID, streakKey}
	bucket, ok := r.freezes[key]
	if !ok {
		return apperrors.New(apperrors.CodeInvalidArgument, "unknown freeze")
	}
	f, ok := bucket[freezeID]
	if !ok {
		return apperrors.New(apperrors.CodeInvalidArgument, "unknown freeze")
	}
	if f.UsedAt != nil {
		return apperrors.New(apperrors.CodeConflict, "freeze already used")
	}
	usedAt := at
	f.UsedAt = &usedAt
	bucket[freezeID] = f
	return nil
}

func (r *memoryRepository) UpsertSummary(_ context.Context, userID, streakKey string, summary Summary) error {
	r.mu.Lock()
	key := streakKeyPair{userID, streakKey}
	r.summaries[key] = summary
	watchers := append([]chan Summary(nil), r.watchers[key]...)
	r.mu.Unlock()

	// The send never blocks: a watcher whose buffer is still full misses
	// this update.
	for _, w := range watchers {
		select {
		case w <- summary:
		default:
		}
	}
	return nil
}

func (r *memoryRepository) StreamSummary(ctx context.Context, userID, streakKey string) (<-chan Summary, error) {
	key := streakKeyPair{userID, streakKey}
	ch := make(chan Summary, 1)

	r.mu.Lock()
	if existing, ok := r.summaries[key]; ok {
		ch <- existing
	}
	r.watchers[key] = append(r.watchers[key], ch)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		watchers := r.watchers[key]
		for i, w := range watchers {
			if w == ch {
				r.watchers[key] = append(watchers[:i], watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}

// SeedFreeze inserts a freeze directly into an in-memory repository,
// bypassing the orchestrator. Intended for local development and test
// fixtures, where freezes are granted by an external collaborator.
func SeedFreeze(repo Repository, userID, streakKey string, f freeze.Freeze) {
	mr, ok := repo.(*memoryRepository)
	if !ok {
		return
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()

	key := streakKeyPair{userID, streakKey}
	bucket, ok := mr.freezes[key]
	if !ok {
		bucket = make(map[string]freeze.Freeze)
		mr.freezes[key] = bucket
	}
	bucket[f.ID] = f
}
