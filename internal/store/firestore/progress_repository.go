package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/focusnest/gamification-engine/internal/apperrors"
	"github.com/focusnest/gamification-engine/internal/progress"
)

type progressItemDTO struct {
	ID        string         `firestore:"id"`
	Data      map[string]any `firestore:"data,omitempty"`
	CreatedAt time.Time      `firestore:"created_at"`
	UpdatedAt time.Time      `firestore:"updated_at"`
}

// ProgressRepository adapts progress.Repository onto Firestore, rooted at
// <rootCollection>/<user_id>/<progress_key>/<item_id> (spec §6).
type ProgressRepository struct {
	client         *firestore.Client
	rootCollection string
}

// NewProgressRepository constructs a Firestore-backed progress.Repository.
func NewProgressRepository(client *firestore.Client, rootCollection string) *ProgressRepository {
	return &ProgressRepository{client: client, rootCollection: rootCollection}
}

func (r *ProgressRepository) itemsColl(userID, progressKey string) *firestore.CollectionRef {
	return r.client.Collection(r.rootCollection).Doc(userID).Collection(progressKey)
}

func (r *ProgressRepository) ListItems(ctx context.Context, userID, progressKey string) ([]progress.Item, error) {
	iter := r.itemsColl(userID, progressKey).Documents(ctx)
	defer iter.Stop()

	var items []progress.Item
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to list progress items", err)
		}
		var dto progressItemDTO
		if err := doc.DataTo(&dto); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to decode progress item", err)
		}
		items = append(items, fromItemDTO(progressKey, doc.Ref.ID, dto))
	}
	return items, nil
}

func (r *ProgressRepository) UpsertItem(ctx context.Context, userID, progressKey string, item progress.Item) error {
	dto := progressItemDTO{ID: item.ID, Data: map[string]any(item.Data), CreatedAt: item.CreatedAt, UpdatedAt: item.UpdatedAt}
	_, err := r.itemsColl(userID, progressKey).Doc(item.ID).Set(ctx, dto, firestore.MergeAll)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to upsert progress item", err)
	}
	return nil
}

func (r *ProgressRepository) DeleteItem(ctx context.Context, userID, progressKey, itemID string) error {
	_, err := r.itemsColl(userID, progressKey).Doc(itemID).Delete(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to delete progress item", err)
	}
	return nil
}

func (r *ProgressRepository) DeleteAll(ctx context.Context, userID, progressKey string) error {
	iter := r.itemsColl(userID, progressKey).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to list progress items for deletion", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return apperrors.Wrap(apperrors.CodeStoreUnavailable, "failed to delete progress item", err)
		}
	}
	return nil
}

func (r *ProgressRepository) StreamChanges(ctx context.Context, userID, progressKey string) (<-chan progress.Change, error) {
	ch := make(chan progress.Change, 8)
	snapIter := r.itemsColl(userID, progressKey).Snapshots(ctx)

	go func() {
		defer snapIter.Stop()
		defer close(ch)
		for {
			snap, err := snapIter.Next()
			if err != nil {
				return
			}
			for _, change := range snap.Changes {
				var dto progressItemDTO
				if err := change.Doc.DataTo(&dto); err != nil {
					continue
				}
				item := fromItemDTO(progressKey, change.Doc.Ref.ID, dto)
				var kind progress.ChangeKind
				switch change.Kind {
				case firestore.DocumentAdded:
					kind = progress.ChangeAdded
				case firestore.DocumentModified:
					kind = progress.ChangeModified
				case firestore.DocumentRemoved:
					kind = progress.ChangeRemoved
				}
				select {
				case ch <- progress.Change{Kind: kind, Item: item}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func fromItemDTO(progressKey, docID string, dto progressItemDTO) progress.Item {
	id := dto.ID
	if id == "" {
		id = docID
	}
	return progress.Item{ID: id, Key: progressKey, Data: dto.Data, CreatedAt: dto.CreatedAt, UpdatedAt: dto.UpdatedAt}
}
