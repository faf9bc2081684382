// Package kv is the deserialization boundary over the backing key-value
// store. Adapters hand the layers above a parsed document or a typed
// absence; nothing outside this package inspects raw stored bytes.
package kv

import (
	"context"
	"errors"
)

// ErrCorruptValue marks a stored value that exists but does not decode into
// the requested document. Callers choose whether to surface it or treat the
// key as absent.
var ErrCorruptValue = errors.New("kv: corrupt stored value")

// KV is a minimal JSON-document view of the backing store.
type KV interface {
	// GetJSON decodes the value at key into dst. It reports (false, nil)
	// when the key does not exist and wraps ErrCorruptValue when the stored
	// bytes are not valid JSON for dst.
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	// SetJSON stores v at key as a JSON document, replacing any prior value.
	SetJSON(ctx context.Context, key string, v any) error
	// Delete removes key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Scan returns all keys matching the store's glob pattern syntax.
	Scan(ctx context.Context, pattern string) ([]string, error)
	// Ping verifies connectivity to the store.
	Ping(ctx context.Context) error
}
