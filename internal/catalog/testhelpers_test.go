package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nerrad567/catalog-core/internal/infrastructure/database"
	_ "github.com/nerrad567/catalog-core/migrations"
)

// openTestDB creates a migrated SQLite database in a temp directory.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "catalog.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	return NewSQLiteStore(openTestDB(t).DB)
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func seed(t *testing.T, svc *Service, docs ...Product) {
	t.Helper()
	for _, d := range docs {
		if _, err := svc.AddProduct(context.Background(), d); err != nil {
			t.Fatalf("AddProduct(%v) error = %v", d, err)
		}
	}
}
