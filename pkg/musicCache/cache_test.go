package musiccache

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "search.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if got, err := store.GetBytes(ctx, "missing"); err != nil || got != nil {
		t.Fatalf("GetBytes(missing) = %q, %v; want nil, nil", got, err)
	}

	if err := store.SetWithExpiration(ctx, "raw", []byte("[1,2]"), time.Hour); err != nil {
		t.Fatalf("SetWithExpiration returned error: %v", err)
	}
	if err := store.SetWithExpiration(ctx, "text", "hello", 0); err != nil {
		t.Fatalf("SetWithExpiration returned error: %v", err)
	}
	if err := store.SetWithExpiration(ctx, "struct", map[string]int{"a": 1}, 0); err != nil {
		t.Fatalf("SetWithExpiration returned error: %v", err)
	}

	tests := map[string]string{
		"raw":    "[1,2]",
		"text":   "hello",
		"struct": `{"a":1}`,
	}
	for key, want := range tests {
		got, err := store.GetBytes(ctx, key)
		if err != nil {
			t.Fatalf("GetBytes(%q) returned error: %v", key, err)
		}
		if !bytes.Equal(got, []byte(want)) {
			t.Errorf("GetBytes(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestStoreExpiry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.SetWithExpiration(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("SetWithExpiration returned error: %v", err)
	}

	now = now.Add(30 * time.Second)
	if got, _ := store.GetBytes(ctx, "k"); string(got) != "v" {
		t.Fatalf("GetBytes before expiry = %q, want %q", got, "v")
	}

	now = now.Add(time.Minute)
	if got, err := store.GetBytes(ctx, "k"); err != nil || got != nil {
		t.Fatalf("GetBytes after expiry = %q, %v; want nil, nil", got, err)
	}

	// The expired entry is gone even once the clock is rewound.
	now = now.Add(-time.Hour)
	if got, _ := store.GetBytes(ctx, "k"); got != nil {
		t.Errorf("expired entry was not deleted, got %q", got)
	}
}

func TestStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := store.SetWithExpiration(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("SetWithExpiration returned error: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()
	if got, _ := reopened.GetBytes(ctx, "k"); string(got) != "v" {
		t.Errorf("GetBytes after reopen = %q, want %q", got, "v")
	}
}
