// Package memory holds the pure domain rules of the per-user memory store:
// key grammar, canonical type defaults, expiration math, and index schema
// migration. Everything here is side-effect free; persistence lives in
// internal/store and orchestration in internal/services.
package memory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ryos-web/ryos-memory/internal/model"
)

const (
	// MaxKeyLength bounds a normalized memory key.
	MaxKeyLength = 30
	// MaxSummaryLength bounds the layer-1 summary.
	MaxSummaryLength = 180
	// MaxContentLength bounds the layer-2 content.
	MaxContentLength = 2000
	// MaxMemoriesPerUser bounds a user's index. Expired entries still count.
	MaxMemoriesPerUser = 50
	// DefaultShorttermTTLDays is used when a shortterm memory is written
	// without an explicit expiration.
	DefaultShorttermTTLDays = 7
	// MergeSeparator joins existing and incoming content on merge.
	MergeSeparator = "\n\n---\n\n"
)

var keyRx = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Canonical keys with a predefined permanence default. Keys outside both
// lists default to longterm.
var (
	longtermKeys = map[string]struct{}{
		"name":        {},
		"birthday":    {},
		"location":    {},
		"work":        {},
		"skills":      {},
		"preferences": {},
		"contacts":    {},
		"goals":       {},
		"health":      {},
		"family":      {},
	}
	shorttermKeys = map[string]struct{}{
		"current_focus": {},
		"context":       {},
		"projects":      {},
	}
)

// NormalizeKey lowercases and trims a raw key. All validation and storage
// operates on the normalized form.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// ValidateKey checks a normalized key against the key grammar. The returned
// error names the violated constraint.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: memory key is required", model.ErrValidation)
	case len(key) > MaxKeyLength:
		return fmt.Errorf("%w: memory key exceeds %d characters", model.ErrValidation, MaxKeyLength)
	case !keyRx.MatchString(key):
		return fmt.Errorf("%w: memory key must start with a letter and contain only lowercase letters, digits and underscores", model.ErrValidation)
	}
	return nil
}

// IsValidKey reports whether a normalized key satisfies the key grammar.
func IsValidKey(key string) bool { return ValidateKey(key) == nil }

// DefaultType returns the canonical permanence class for a key.
func DefaultType(key string) model.MemoryType {
	if _, ok := shorttermKeys[key]; ok {
		return model.TypeShortterm
	}
	return model.TypeLongterm
}
