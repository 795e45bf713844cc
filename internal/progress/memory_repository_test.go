package progress

import (
	"context"
	"testing"

	"github.com/focusnest/gamification-engine/internal/metadata"
)

func TestMemoryRepositoryUpsertAndList(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	item := Item{ID: "badge_bronze", Key: "badges", Data: metadata.Map{"label": "Bronze"}}
	if err := repo.UpsertItem(ctx, "u1", "badges", item); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}

	items, err := repo.ListItems(ctx, "u1", "badges")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].ID != "badge_bronze" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestMemoryRepositoryDeleteItem(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.UpsertItem(ctx, "u1", "badges", Item{ID: "a"}); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	if err := repo.DeleteItem(ctx, "u1", "badges", "a"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := repo.DeleteItem(ctx, "u1", "badges", "a"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepositoryDeleteAll(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.UpsertItem(ctx, "u1", "badges", Item{ID: "a"}); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	if err := repo.UpsertItem(ctx, "u1", "badges", Item{ID: "b"}); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	if err := repo.DeleteAll(ctx, "u1", "badges"); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	items, err := repo.ListItems(ctx, "u1", "badges")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list after DeleteAll, got %+v", items)
	}
}

func TestMemoryRepositoryStreamChanges(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := repo.StreamChanges(ctx, "u1", "badges")
	if err != nil {
		t.Fatalf("StreamChanges: %v", err)
	}

	if err := repo.UpsertItem(ctx, "u1", "badges", Item{ID: "a"}); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}

	select {
	case change := <-changes:
		if change.Kind != ChangeAdded || change.Item.ID != "a" {
			t.Fatalf("unexpected change: %+v", change)
		}
	default:
		t.Fatal("expected a buffered change")
	}
}
