package redisstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ryos-web/ryos-memory/internal/kv"
	"github.com/ryos-web/ryos-memory/internal/model"
	"github.com/ryos-web/ryos-memory/internal/store"
	"github.com/ryos-web/ryos-memory/internal/store/storetest"
)

func newTestStore(t *testing.T) (store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return New(kv.NewRedisWithClient(c)), mr
}

func TestRedisStore_Compliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, _ := newTestStore(t)
		return s
	})
}

func TestRedisStore_KeyScheme(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.Indexes().Put(ctx, "Alice ", &model.MemoryIndex{Version: 2}); err != nil {
		t.Fatalf("Indexes.Put: %v", err)
	}
	if !mr.Exists("memory:user:alice:index") {
		t.Fatalf("index stored under unexpected key; have %v", mr.Keys())
	}

	d := &model.MemoryDetail{Key: "music_pref", Content: "jazz"}
	if err := s.Details().Put(ctx, "Alice", d); err != nil {
		t.Fatalf("Details.Put: %v", err)
	}
	if !mr.Exists("memory:user:alice:detail:music_pref") {
		t.Fatalf("detail stored under unexpected key; have %v", mr.Keys())
	}
}

func TestRedisStore_CorruptDocumentsReadAsAbsent(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := mr.Set("memory:user:alice:index", "][ definitely not json"); err != nil {
		t.Fatalf("seed corrupt index: %v", err)
	}
	if _, err := s.Indexes().Get(ctx, "alice"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("corrupt index: want ErrNotFound, got %v", err)
	}

	if err := mr.Set("memory:user:alice:detail:name", "42?"); err != nil {
		t.Fatalf("seed corrupt detail: %v", err)
	}
	if _, err := s.Details().Get(ctx, "alice", "name"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("corrupt detail: want ErrNotFound, got %v", err)
	}
}
