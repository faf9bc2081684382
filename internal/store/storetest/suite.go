package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ryos-web/ryos-memory/internal/model"
	"github.com/ryos-web/ryos-memory/internal/store"
)

// Run exercises a minimal compliance suite against a store.Store
// implementation. makeStore should return a clean, isolated store.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	username := "u-" + uuid.New().String()

	// Absent index
	if _, err := s.Indexes().Get(ctx, username); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Indexes.Get on fresh user: want ErrNotFound, got %v", err)
	}

	// Index round trip
	idx := &model.MemoryIndex{
		Version: 2,
		Memories: []model.MemoryEntry{
			{Key: "name", Summary: "Called Sam", UpdatedAt: now, Type: model.TypeLongterm},
		},
	}
	if err := s.Indexes().Put(ctx, username, idx); err != nil {
		t.Fatalf("Indexes.Put: %v", err)
	}
	got, err := s.Indexes().Get(ctx, username)
	if err != nil {
		t.Fatalf("Indexes.Get: %v", err)
	}
	if got.Version != 2 || len(got.Memories) != 1 || got.Memories[0].Key != "name" {
		t.Fatalf("Indexes.Get: round trip mismatch: %+v", got)
	}

	// Username namespace is case-insensitive
	if _, err := s.Indexes().Get(ctx, "U-"+username[2:]); err != nil {
		t.Fatalf("Indexes.Get with different case: %v", err)
	}

	// Detail round trip
	det := &model.MemoryDetail{
		Key:       "name",
		Content:   "Their full name is Sam Porter.",
		CreatedAt: now,
		UpdatedAt: now,
		Type:      model.TypeLongterm,
	}
	if err := s.Details().Put(ctx, username, det); err != nil {
		t.Fatalf("Details.Put: %v", err)
	}
	gd, err := s.Details().Get(ctx, username, "name")
	if err != nil {
		t.Fatalf("Details.Get: %v", err)
	}
	if gd.Content != det.Content || !gd.CreatedAt.Equal(det.CreatedAt) {
		t.Fatalf("Details.Get: round trip mismatch: %+v", gd)
	}

	// Absent detail
	if _, err := s.Details().Get(ctx, username, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Details.Get on missing key: want ErrNotFound, got %v", err)
	}

	// Detail delete is idempotent
	if err := s.Details().Delete(ctx, username, "name"); err != nil {
		t.Fatalf("Details.Delete: %v", err)
	}
	if err := s.Details().Delete(ctx, username, "name"); err != nil {
		t.Fatalf("Details.Delete (repeat): %v", err)
	}

	// DeleteAll sweeps every detail for the user, orphans included
	for _, k := range []string{"work", "skills", "current_focus"} {
		d := &model.MemoryDetail{Key: k, Content: k, CreatedAt: now, UpdatedAt: now, Type: model.TypeLongterm}
		if err := s.Details().Put(ctx, username, d); err != nil {
			t.Fatalf("Details.Put %s: %v", k, err)
		}
	}
	n, err := s.Details().DeleteAll(ctx, username)
	if err != nil {
		t.Fatalf("Details.DeleteAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("Details.DeleteAll: removed %d, want 3", n)
	}

	// Index delete is idempotent
	if err := s.Indexes().Delete(ctx, username); err != nil {
		t.Fatalf("Indexes.Delete: %v", err)
	}
	if err := s.Indexes().Delete(ctx, username); err != nil {
		t.Fatalf("Indexes.Delete (repeat): %v", err)
	}
	if _, err := s.Indexes().Get(ctx, username); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Indexes.Get after delete: want ErrNotFound, got %v", err)
	}
}
