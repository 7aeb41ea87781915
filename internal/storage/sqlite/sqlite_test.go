package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "kv.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	t.Run("Get returns not found for missing key", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "cart")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok {
			t.Error("Expected missing key")
		}
	})

	t.Run("Set then Get", func(t *testing.T) {
		if err := store.Set(ctx, "cart", `[{"id":"1"}]`); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, ok, err := store.Get(ctx, "cart")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !ok || v != `[{"id":"1"}]` {
			t.Errorf("Get = %q, %v", v, ok)
		}
	})

	t.Run("Set overwrites value", func(t *testing.T) {
		if err := store.Set(ctx, "cart", `[]`); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, _, err := store.Get(ctx, "cart")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if v != `[]` {
			t.Errorf("Get = %q, want []", v)
		}
	})
}
