package testutil

import (
	"context"
	"testing"

	"github.com/VeriNexus/verinexus-speedtest/internal/series"
	"github.com/VeriNexus/verinexus-speedtest/internal/store"
)

// NewDB creates an in-memory store.DB for testing.
// The database is automatically closed when the test completes.
func NewDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("testutil.NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// NewSeriesStore creates a migrated in-memory series store for testing.
func NewSeriesStore(t *testing.T) *series.SQLiteStore {
	t.Helper()
	s, err := series.NewSQLiteStore(context.Background(), NewDB(t))
	if err != nil {
		t.Fatalf("testutil.NewSeriesStore: %v", err)
	}
	return s
}
