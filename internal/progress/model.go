// Package progress implements the progress-item repository contract (spec
// §6, §4.6): arbitrary per-user progress markers, persisted alongside the
// streak and XP summaries in the same document-store foundation but with
// no calculator of their own — items are stored and streamed as-is.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/focusnest/gamification-engine/internal/metadata"
)

// ErrMissingUserID indicates a required user id was absent.
var ErrMissingUserID = errors.New("user id is required")

// ErrNotFound indicates the requested progress item does not exist.
var ErrNotFound = errors.New("progress item not found")

// Item is an arbitrary per-user progress marker (spec §6): a progress key
// names the collection (e.g. "badges", "onboarding"), the item id names
// one entry within it.
type Item struct {
	ID        string
	Key       string
	Data      metadata.Map
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChangeKind is the kind of mutation observed on a StreamChanges feed.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is one observed mutation to the progress collection.
type Change struct {
	Kind ChangeKind
	Item Item
}

// Repository is the persistence contract for progress items (spec §6).
// Unlike the streak and XP repositories, there is no calculator sitting in
// front of it: callers read and write items directly.
type Repository interface {
	ListItems(ctx context.Context, userID, progressKey string) ([]Item, error)
	UpsertItem(ctx context.Context, userID, progressKey string, item Item) error
	DeleteItem(ctx context.Context, userID, progressKey, itemID string) error
	DeleteAll(ctx context.Context, userID, progressKey string) error
	// StreamChanges returns a restartable, cancellable channel of every
	// server-observed change. The consumer cancels by cancelling ctx.
	StreamChanges(ctx context.Context, userID, progressKey string) (<-chan Change, error)
}
