// Package redisstore implements store.Store on Redis. It owns the key
// scheme the web client and serverless functions already use:
//
//	memory:user:<username>:index
//	memory:user:<username>:detail:<key>
//
// Usernames are lowercased before key construction so the namespace stays
// case-insensitive regardless of caller.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ryos-web/ryos-memory/internal/kv"
	"github.com/ryos-web/ryos-memory/internal/model"
	"github.com/ryos-web/ryos-memory/internal/store"
)

func indexKey(username string) string {
	return fmt.Sprintf("memory:user:%s:index", strings.ToLower(strings.TrimSpace(username)))
}

func detailKey(username, key string) string {
	return fmt.Sprintf("memory:user:%s:detail:%s", strings.ToLower(strings.TrimSpace(username)), key)
}

func detailPattern(username string) string {
	return fmt.Sprintf("memory:user:%s:detail:*", strings.ToLower(strings.TrimSpace(username)))
}

// Store implements store.Store on a KV adapter. It also exposes HealthPing
// so the health checker can probe the backing connection.
type Store struct{ kv kv.KV }

// New constructs a Redis-backed store over the given KV adapter.
func New(k kv.KV) *Store { return &Store{kv: k} }

func (s *Store) Indexes() store.Indexes { return &indexes{kv: s.kv} }
func (s *Store) Details() store.Details { return &details{kv: s.kv} }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

type indexes struct{ kv kv.KV }

func (i *indexes) Get(ctx context.Context, username string) (*model.MemoryIndex, error) {
	var idx model.MemoryIndex
	found, err := i.kv.GetJSON(ctx, indexKey(username), &idx)
	if errors.Is(err, kv.ErrCorruptValue) {
		// An unreadable index reads as absent rather than failing the
		// request path.
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, model.ErrNotFound
	}
	return &idx, nil
}

func (i *indexes) Put(ctx context.Context, username string, idx *model.MemoryIndex) error {
	return i.kv.SetJSON(ctx, indexKey(username), idx)
}

func (i *indexes) Delete(ctx context.Context, username string) error {
	_, err := i.kv.Delete(ctx, indexKey(username))
	return err
}

type details struct{ kv kv.KV }

func (d *details) Get(ctx context.Context, username, key string) (*model.MemoryDetail, error) {
	var det model.MemoryDetail
	found, err := d.kv.GetJSON(ctx, detailKey(username, key), &det)
	if errors.Is(err, kv.ErrCorruptValue) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, model.ErrNotFound
	}
	return &det, nil
}

func (d *details) Put(ctx context.Context, username string, det *model.MemoryDetail) error {
	return d.kv.SetJSON(ctx, detailKey(username, det.Key), det)
}

func (d *details) Delete(ctx context.Context, username, key string) error {
	_, err := d.kv.Delete(ctx, detailKey(username, key))
	return err
}

func (d *details) DeleteAll(ctx context.Context, username string) (int, error) {
	keys, err := d.kv.Scan(ctx, detailPattern(username))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, k := range keys {
		existed, err := d.kv.Delete(ctx, k)
		if err != nil {
			return removed, err
		}
		if existed {
			removed++
		}
	}
	return removed, nil
}
