package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/landedcost/internal/db"
	"github.com/Simplici0/landedcost/internal/migrations"
	"github.com/Simplici0/landedcost/internal/pricing"
	"github.com/Simplici0/landedcost/internal/store"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	categories := DefaultCategories()
	for i := 0; i < 10; i++ {
		stats, err := Run(ctx, database, categories)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != len(categories) {
				t.Fatalf("expected %d inserts in first run, got %d", len(categories), stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Skipped != len(categories) {
			t.Fatalf("expected 0 inserts in iteration %d, got %+v", i, stats)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM categories`, nil, len(categories))
	assertCount(t, database, `SELECT COUNT(*) FROM categories WHERE name = ?`, "Textiles", 1)

	list, err := store.New(database).ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	resolver := pricing.NewResolver(list)
	res := resolver.Resolve("textiles")
	if !res.Found {
		t.Fatalf("seeded textiles not resolvable")
	}
	if got := res.Category.DeliveryDays(pricing.Air); got != 8 {
		t.Fatalf("textiles air days = %d, want 8", got)
	}
}

func TestRunRollsBackInvalidCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := db.Open(ctx, db.MemoryPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	categories := append(DefaultCategories()[:1], pricing.Category{Name: "Broken", Density: -5})
	if _, err := Run(ctx, database, categories); err == nil {
		t.Fatalf("expected an error for an invalid category")
	}

	assertCount(t, database, `SELECT COUNT(*) FROM categories`, nil, 0)
}

func TestDefaultCategoriesAreValid(t *testing.T) {
	for _, c := range DefaultCategories() {
		if err := c.Validate(); err != nil {
			t.Fatalf("category %q: %v", c.Name, err)
		}
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, arg any, want int) {
	t.Helper()

	var got int
	var err error
	switch v := arg.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&got)
	case []any:
		err = database.QueryRow(query, v...).Scan(&got)
	default:
		err = database.QueryRow(query, v).Scan(&got)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if got != want {
		t.Fatalf("count mismatch for %q: got %d want %d", query, got, want)
	}
}
