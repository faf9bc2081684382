package model

import "time"

// MemoryType classifies how long a memory is kept.
type MemoryType string

const (
	// TypeLongterm memories never expire.
	TypeLongterm MemoryType = "longterm"
	// TypeShortterm memories carry an expiration timestamp.
	TypeShortterm MemoryType = "shortterm"
)

// MemoryEntry is the lightweight layer-1 record kept in a user's index.
// Type is empty on indexes written before the type field existed; migration
// fills it in.
type MemoryEntry struct {
	Key       string     `json:"key"`
	Summary   string     `json:"summary"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Type      MemoryType `json:"type,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// MemoryIndex is the per-user index document: the ordered entry list plus a
// schema version bumped by migrations.
type MemoryIndex struct {
	Memories []MemoryEntry `json:"memories"`
	Version  int           `json:"version"`
}

// MemoryDetail is the layer-2 record holding the full content for one key.
// CreatedAt is set once at first creation and never changed by updates.
type MemoryDetail struct {
	Key       string     `json:"key"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Type      MemoryType `json:"type,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// UpsertMode selects which mutation an upsert dispatches to.
type UpsertMode string

const (
	ModeAdd    UpsertMode = "add"
	ModeUpdate UpsertMode = "update"
	ModeMerge  UpsertMode = "merge"
)

// OpResult is the structured outcome of a memory mutation. Business-rule
// violations (duplicate key, quota, length limits) are reported here with
// Success=false; only storage failures travel the error channel.
type OpResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Entry   *MemoryEntry `json:"entry,omitempty"`
}
