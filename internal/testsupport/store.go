package testsupport

import (
	"context"
	"testing"

	"reelsync/internal/catalog"
	"reelsync/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedItems inserts ids into store and fails the test on error.
func SeedItems(t testing.TB, store *catalog.Store, ids ...string) {
	t.Helper()

	if _, err := store.AddItems(context.Background(), ids...); err != nil {
		t.Fatalf("seed items: %v", err)
	}
}
