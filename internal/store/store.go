package store

import (
	"context"

	"github.com/ryos-web/ryos-memory/internal/model"
)

// Store exposes persistence operations required by the memory service.
// Implementations live under internal/store/<driver>/ (e.g., redisstore).
type Store interface {
	Indexes() Indexes
	Details() Details
}

// Indexes persists the per-user index document (layer 1). The whole index
// is one stored value; concurrent writers race at the document level and
// the last writer wins.
type Indexes interface {
	// Get returns the stored index or model.ErrNotFound when the user has
	// never written one. Unreadable stored documents read as absent.
	Get(ctx context.Context, username string) (*model.MemoryIndex, error)
	Put(ctx context.Context, username string, idx *model.MemoryIndex) error
	// Delete removes the index document. Deleting an absent index is a no-op.
	Delete(ctx context.Context, username string) error
}

// Details persists full-content records (layer 2), one document per key.
type Details interface {
	// Get returns the stored detail or model.ErrNotFound.
	Get(ctx context.Context, username, key string) (*model.MemoryDetail, error)
	Put(ctx context.Context, username string, d *model.MemoryDetail) error
	// Delete removes one detail document. Deleting an absent detail is a no-op.
	Delete(ctx context.Context, username, key string) error
	// DeleteAll removes every detail document for the user, including
	// orphans with no index entry, and reports how many were removed.
	DeleteAll(ctx context.Context, username string) (int, error)
}
