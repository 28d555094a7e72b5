package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestCartRepository_PostgresLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCatalogForIntegrationTest(t, store)
	repo := NewCartRepository(store)
	ctx := context.Background()

	if err := repo.Upsert(ctx, "user-1", "speaker", 1); err != nil {
		t.Fatalf("upsert speaker: %v", err)
	}
	if err := repo.Upsert(ctx, "user-1", "novel", 2); err != nil {
		t.Fatalf("upsert novel: %v", err)
	}
	if err := repo.Upsert(ctx, "user-1", "speaker", 3); err != nil {
		t.Fatalf("upsert speaker again: %v", err)
	}

	lines, err := repo.ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lines) != 2 || lines[0].ID != "speaker" || lines[0].Quantity != 3 {
		t.Fatalf("unexpected lines: %+v", lines)
	}
	if lines[0].Name != "Bluetooth Speaker" {
		t.Fatalf("expected joined product name, got %q", lines[0].Name)
	}

	if err := repo.Upsert(ctx, "user-1", "missing", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for unknown product, got %v", err)
	}

	if err := repo.Delete(ctx, "user-1", "speaker"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteAll(ctx, "user-1"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	lines, _ = repo.ListByUser(ctx, "user-1")
	if len(lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", lines)
	}
}
