package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLastSyncDate_MissingTenant(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.LastSyncDate(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LastSyncDate() error = %v", err)
	}
	if ok {
		t.Error("ok = true for a tenant that never synced")
	}
}

func TestSetLastSyncDate_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	if err := store.SetLastSyncDate(ctx, "alice", want); err != nil {
		t.Fatalf("SetLastSyncDate() error = %v", err)
	}

	got, ok, err := store.LastSyncDate(ctx, "alice")
	if err != nil {
		t.Fatalf("LastSyncDate() error = %v", err)
	}
	if !ok {
		t.Fatal("ok = false after SetLastSyncDate")
	}
	if !got.Equal(want) {
		t.Errorf("cursor = %v, want %v", got, want)
	}
}

func TestSetLastSyncDate_Upsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := store.SetLastSyncDate(ctx, "alice", first); err != nil {
		t.Fatalf("SetLastSyncDate() error = %v", err)
	}
	if err := store.SetLastSyncDate(ctx, "alice", second); err != nil {
		t.Fatalf("SetLastSyncDate() error = %v", err)
	}

	got, _, err := store.LastSyncDate(ctx, "alice")
	if err != nil {
		t.Fatalf("LastSyncDate() error = %v", err)
	}
	if !got.Equal(second) {
		t.Errorf("cursor = %v, want %v", got, second)
	}
}

func TestCursors_ArePerTenant(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SetLastSyncDate(ctx, "alice", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SetLastSyncDate() error = %v", err)
	}

	_, ok, err := store.LastSyncDate(ctx, "bob")
	if err != nil {
		t.Fatalf("LastSyncDate() error = %v", err)
	}
	if ok {
		t.Error("bob inherited alice's cursor")
	}
}
