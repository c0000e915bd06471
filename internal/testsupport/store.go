package testsupport

import (
	"context"
	"testing"

	"reelsmith/internal/catalog"
	"reelsmith/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTitle registers a title in the catalog for tests.
func NewTitle(t testing.TB, store *catalog.Store, slug, titleText string) *catalog.Item {
	t.Helper()

	item, err := store.Add(context.Background(), slug, titleText, "/briefs/"+slug+".yaml")
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return item
}
