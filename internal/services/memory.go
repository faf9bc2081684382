// Package services orchestrates memory use cases on top of the store layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryos-web/ryos-memory/internal/memory"
	"github.com/ryos-web/ryos-memory/internal/model"
	"github.com/ryos-web/ryos-memory/internal/store"
)

// MutationRequest carries the caller-supplied fields of a memory mutation.
// Type and ExpiresAt are optional; unset values resolve to canonical
// defaults.
type MutationRequest struct {
	Key       string
	Summary   string
	Content   string
	Type      model.MemoryType
	ExpiresAt *time.Time
}

// MemoryService owns the per-user two-layer memory records.
//
// Every mutation is a read-modify-write against the user's single index
// document. There is no per-key locking: concurrent writers to one user
// race at the document level and the last writer wins. Mutations write the
// detail document first and the index second; a crash between the two
// leaves an orphaned detail, which is never surfaced because listing always
// goes through the index.
type MemoryService struct {
	store   store.Store
	log     zerolog.Logger
	ttlDays int
	now     func() time.Time
}

// NewMemoryService builds the service. ttlDays is the default shortterm
// expiration window; non-positive values fall back to the domain default.
func NewMemoryService(s store.Store, log zerolog.Logger, ttlDays int) *MemoryService {
	if ttlDays <= 0 {
		ttlDays = memory.DefaultShorttermTTLDays
	}
	return &MemoryService{store: s, log: log, ttlDays: ttlDays, now: time.Now}
}

func failure(format string, args ...any) *model.OpResult {
	return &model.OpResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// loadIndex reads a user's index, migrating stale schemas and persisting
// the migrated document before returning it. Users with no stored index
// yield (nil, nil); the caller decides whether that means an empty fresh
// index or "no memories".
func (s *MemoryService) loadIndex(ctx context.Context, username string) (*model.MemoryIndex, error) {
	idx, err := s.store.Indexes().Get(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if memory.MigrateIndex(idx) {
		if err := s.store.Indexes().Put(ctx, username, idx); err != nil {
			return nil, fmt.Errorf("persist migrated index: %w", err)
		}
		s.log.Info().Str("user", username).Int("version", idx.Version).Msg("memory index migrated")
	}
	return idx, nil
}

// loadOrCreateIndex is loadIndex with lazy creation: absent users get a
// fresh empty index at the current version, not persisted until the first
// mutation writes it.
func (s *MemoryService) loadOrCreateIndex(ctx context.Context, username string) (*model.MemoryIndex, error) {
	idx, err := s.loadIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		idx = &model.MemoryIndex{Version: memory.CurrentIndexVersion}
	}
	return idx, nil
}

func findEntry(idx *model.MemoryIndex, key string) int {
	for i := range idx.Memories {
		if idx.Memories[i].Key == key {
			return i
		}
	}
	return -1
}

// validateUsername guards the storage namespace. The HTTP layer supplies
// path-derived usernames, so violations here are programming errors.
func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", model.ErrValidation)
	}
	return nil
}

// checkRequest validates the key grammar and length limits shared by all
// mutations. It returns a failure result (nil when valid) plus the
// normalized key.
func checkRequest(req MutationRequest) (string, *model.OpResult) {
	key := memory.NormalizeKey(req.Key)
	if err := memory.ValidateKey(key); err != nil {
		return key, failure("%s", trimValidation(err))
	}
	if len(req.Summary) > memory.MaxSummaryLength {
		return key, failure("summary exceeds %d characters", memory.MaxSummaryLength)
	}
	if len(req.Content) > memory.MaxContentLength {
		return key, failure("content exceeds %d characters", memory.MaxContentLength)
	}
	if req.Type != "" && req.Type != model.TypeLongterm && req.Type != model.TypeShortterm {
		return key, failure("invalid memory type %q; expected longterm or shortterm", req.Type)
	}
	return key, nil
}

// trimValidation strips the sentinel prefix for user-facing messages.
func trimValidation(err error) string {
	return strings.TrimPrefix(err.Error(), model.ErrValidation.Error()+": ")
}

// resolveExpiry applies the expiresAt-iff-shortterm invariant: shortterm
// entries get the explicit timestamp, the prior one, or the default window;
// longterm entries never carry one.
func (s *MemoryService) resolveExpiry(typ model.MemoryType, explicit, prior *time.Time, now time.Time) *time.Time {
	if typ != model.TypeShortterm {
		return nil
	}
	if explicit != nil {
		return explicit
	}
	if prior != nil {
		return prior
	}
	exp := memory.ExpiresAfter(now, s.ttlDays)
	return &exp
}

// Add creates a new entry+detail pair. It fails on duplicate keys (expired
// ones included), length violations, and the per-user quota.
func (s *MemoryService) Add(ctx context.Context, username string, req MutationRequest) (*model.OpResult, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	key, fail := checkRequest(req)
	if fail != nil {
		return fail, nil
	}

	idx, err := s.loadOrCreateIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	if findEntry(idx, key) >= 0 {
		return failure("memory %q already exists; use update or merge", key), nil
	}
	if len(idx.Memories) >= memory.MaxMemoriesPerUser {
		return failure("memory limit reached (%d); delete one before adding", memory.MaxMemoriesPerUser), nil
	}

	typ := req.Type
	if typ == "" {
		typ = memory.DefaultType(key)
	}
	now := s.now()
	expiresAt := s.resolveExpiry(typ, req.ExpiresAt, nil, now)

	detail := &model.MemoryDetail{
		Key:       key,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
		Type:      typ,
		ExpiresAt: expiresAt,
	}
	if err := s.store.Details().Put(ctx, username, detail); err != nil {
		return nil, err
	}

	entry := model.MemoryEntry{Key: key, Summary: req.Summary, UpdatedAt: now, Type: typ, ExpiresAt: expiresAt}
	idx.Memories = append(idx.Memories, entry)
	if err := s.store.Indexes().Put(ctx, username, idx); err != nil {
		return nil, err
	}

	return &model.OpResult{Success: true, Message: "memory added", Entry: &entry}, nil
}

// Update replaces the summary, content, and permanence of an existing
// memory. The detail's CreatedAt survives; a shortterm update keeps the
// prior expiration unless the caller overrides it.
func (s *MemoryService) Update(ctx context.Context, username string, req MutationRequest) (*model.OpResult, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	key, fail := checkRequest(req)
	if fail != nil {
		return fail, nil
	}

	idx, err := s.loadOrCreateIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	pos := findEntry(idx, key)
	if pos < 0 {
		return failure("memory %q not found; use add to create it", key), nil
	}
	prior := idx.Memories[pos]

	typ := req.Type
	if typ == "" {
		typ = prior.Type
	}
	if typ == "" {
		typ = memory.DefaultType(key)
	}
	now := s.now()
	expiresAt := s.resolveExpiry(typ, req.ExpiresAt, prior.ExpiresAt, now)

	createdAt := now
	if existing, err := s.store.Details().Get(ctx, username, key); err == nil {
		createdAt = existing.CreatedAt
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	detail := &model.MemoryDetail{
		Key:       key,
		Content:   req.Content,
		CreatedAt: createdAt,
		UpdatedAt: now,
		Type:      typ,
		ExpiresAt: expiresAt,
	}
	if err := s.store.Details().Put(ctx, username, detail); err != nil {
		return nil, err
	}

	entry := model.MemoryEntry{Key: key, Summary: req.Summary, UpdatedAt: now, Type: typ, ExpiresAt: expiresAt}
	idx.Memories[pos] = entry
	if err := s.store.Indexes().Put(ctx, username, idx); err != nil {
		return nil, err
	}

	return &model.OpResult{Success: true, Message: "memory updated", Entry: &entry}, nil
}

// Merge appends content to an existing memory, separated by the merge
// separator, and replaces the summary. Absent keys fall through to Add.
func (s *MemoryService) Merge(ctx context.Context, username string, req MutationRequest) (*model.OpResult, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	key, fail := checkRequest(req)
	if fail != nil {
		return fail, nil
	}

	idx, err := s.loadOrCreateIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	pos := findEntry(idx, key)
	if pos < 0 {
		return s.Add(ctx, username, req)
	}
	prior := idx.Memories[pos]

	content := req.Content
	createdAt := s.now()
	existing, err := s.store.Details().Get(ctx, username, key)
	switch {
	case err == nil:
		content = existing.Content + memory.MergeSeparator + req.Content
		createdAt = existing.CreatedAt
	case errors.Is(err, model.ErrNotFound):
		// Entry without detail: the inconsistency window of a previous
		// crashed write. Start the content fresh.
	default:
		return nil, err
	}
	if len(content) > memory.MaxContentLength {
		return failure("merged content exceeds %d characters; use update to replace it", memory.MaxContentLength), nil
	}

	typ := req.Type
	if typ == "" {
		typ = prior.Type
	}
	if typ == "" {
		typ = memory.DefaultType(key)
	}
	now := s.now()
	expiresAt := s.resolveExpiry(typ, req.ExpiresAt, prior.ExpiresAt, now)

	detail := &model.MemoryDetail{
		Key:       key,
		Content:   content,
		CreatedAt: createdAt,
		UpdatedAt: now,
		Type:      typ,
		ExpiresAt: expiresAt,
	}
	if err := s.store.Details().Put(ctx, username, detail); err != nil {
		return nil, err
	}

	entry := model.MemoryEntry{Key: key, Summary: req.Summary, UpdatedAt: now, Type: typ, ExpiresAt: expiresAt}
	idx.Memories[pos] = entry
	if err := s.store.Indexes().Put(ctx, username, idx); err != nil {
		return nil, err
	}

	return &model.OpResult{Success: true, Message: "memory merged", Entry: &entry}, nil
}

// Upsert dispatches to Add, Update, or Merge by mode.
func (s *MemoryService) Upsert(ctx context.Context, username string, mode model.UpsertMode, req MutationRequest) (*model.OpResult, error) {
	switch mode {
	case model.ModeAdd:
		return s.Add(ctx, username, req)
	case model.ModeUpdate:
		return s.Update(ctx, username, req)
	case model.ModeMerge:
		return s.Merge(ctx, username, req)
	default:
		return failure("invalid upsert mode %q; expected add, update or merge", mode), nil
	}
}

// Delete removes the entry from the index and then the detail document.
// Index first, so a crash in between leaves an orphaned detail (invisible)
// rather than an entry without content.
func (s *MemoryService) Delete(ctx context.Context, username, rawKey string) (*model.OpResult, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	key := memory.NormalizeKey(rawKey)
	if err := memory.ValidateKey(key); err != nil {
		return failure("%s", trimValidation(err)), nil
	}

	idx, err := s.loadOrCreateIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	pos := findEntry(idx, key)
	if pos < 0 {
		return failure("memory %q not found", key), nil
	}

	idx.Memories = append(idx.Memories[:pos], idx.Memories[pos+1:]...)
	if err := s.store.Indexes().Put(ctx, username, idx); err != nil {
		return nil, err
	}
	if err := s.store.Details().Delete(ctx, username, key); err != nil {
		return nil, err
	}

	return &model.OpResult{Success: true, Message: "memory deleted"}, nil
}

// PromoteToLongterm converts a shortterm memory to longterm, clearing its
// expiration. Promoting an already-longterm memory is a no-op success that
// touches nothing in storage.
func (s *MemoryService) PromoteToLongterm(ctx context.Context, username, rawKey string) (*model.OpResult, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	key := memory.NormalizeKey(rawKey)
	if err := memory.ValidateKey(key); err != nil {
		return failure("%s", trimValidation(err)), nil
	}

	idx, err := s.loadOrCreateIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	pos := findEntry(idx, key)
	if pos < 0 {
		return failure("memory %q not found", key), nil
	}
	if idx.Memories[pos].Type == model.TypeLongterm {
		entry := idx.Memories[pos]
		return &model.OpResult{Success: true, Message: "memory already longterm", Entry: &entry}, nil
	}

	now := s.now()
	if detail, err := s.store.Details().Get(ctx, username, key); err == nil {
		detail.Type = model.TypeLongterm
		detail.ExpiresAt = nil
		detail.UpdatedAt = now
		if err := s.store.Details().Put(ctx, username, detail); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	idx.Memories[pos].Type = model.TypeLongterm
	idx.Memories[pos].ExpiresAt = nil
	idx.Memories[pos].UpdatedAt = now
	if err := s.store.Indexes().Put(ctx, username, idx); err != nil {
		return nil, err
	}

	entry := idx.Memories[pos]
	return &model.OpResult{Success: true, Message: "memory promoted to longterm", Entry: &entry}, nil
}

// ListKeys returns every key in index order, expired entries included.
// Users with no index get an empty slice.
func (s *MemoryService) ListKeys(ctx context.Context, username string) ([]string, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	idx, err := s.loadIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return []string{}, nil
	}
	keys := make([]string, 0, len(idx.Memories))
	for _, e := range idx.Memories {
		keys = append(keys, e.Key)
	}
	return keys, nil
}

// RawIndex returns the stored index document after migration, expired
// entries included, or model.ErrNotFound for users with no index.
func (s *MemoryService) RawIndex(ctx context.Context, username string) (*model.MemoryIndex, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	idx, err := s.loadIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, model.ErrNotFound
	}
	return idx, nil
}

// ActiveIndex returns the index filtered to non-expired entries, or
// model.ErrNotFound for users with no index. Expired entries stay stored.
func (s *MemoryService) ActiveIndex(ctx context.Context, username string) (*model.MemoryIndex, error) {
	idx, err := s.RawIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	active, _ := memory.FilterActive(idx.Memories, s.now())
	return &model.MemoryIndex{Memories: active, Version: idx.Version}, nil
}

// GetDetail loads the layer-2 record for a key. The index is consulted
// first: a detail whose entry is gone is invisible.
func (s *MemoryService) GetDetail(ctx context.Context, username, rawKey string) (*model.MemoryDetail, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	key := memory.NormalizeKey(rawKey)
	if err := memory.ValidateKey(key); err != nil {
		return nil, err
	}
	idx, err := s.loadIndex(ctx, username)
	if err != nil {
		return nil, err
	}
	if idx == nil || findEntry(idx, key) < 0 {
		return nil, model.ErrNotFound
	}
	return s.store.Details().Get(ctx, username, key)
}

// SummariesForPrompt renders active entries as "- <key>: <summary>" lines
// for model-prompt assembly, tagging shortterm entries with [temp]. It
// returns an empty string when the user has no active memories.
func (s *MemoryService) SummariesForPrompt(ctx context.Context, username string) (string, error) {
	idx, err := s.ActiveIndex(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(idx.Memories) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(idx.Memories))
	for _, e := range idx.Memories {
		if e.Type == model.TypeShortterm {
			lines = append(lines, fmt.Sprintf("- %s [temp]: %s", e.Key, e.Summary))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: %s", e.Key, e.Summary))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Clear removes a user's index and every detail document, orphans
// included, and reports how many memories were dropped. Admin surface.
func (s *MemoryService) Clear(ctx context.Context, username string) (int, error) {
	if err := validateUsername(username); err != nil {
		return 0, err
	}
	if err := s.store.Indexes().Delete(ctx, username); err != nil {
		return 0, err
	}
	n, err := s.store.Details().DeleteAll(ctx, username)
	if err != nil {
		return n, err
	}
	s.log.Info().Str("user", username).Int("removed", n).Msg("memories cleared")
	return n, nil
}
