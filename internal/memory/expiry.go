package memory

import (
	"time"

	"github.com/ryos-web/ryos-memory/internal/model"
)

// ExpiresAfter computes an expiration timestamp days from now. Non-positive
// days fall back to the default shortterm TTL.
func ExpiresAfter(now time.Time, days int) time.Time {
	if days <= 0 {
		days = DefaultShorttermTTLDays
	}
	return now.Add(time.Duration(days) * 24 * time.Hour)
}

// IsExpired reports whether the entry is past its expiration. Longterm
// entries never expire; neither does a shortterm entry without an
// expiration timestamp (e.g. one produced by schema migration).
func IsExpired(e model.MemoryEntry, now time.Time) bool {
	return e.Type == model.TypeShortterm && e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}

// FilterActive partitions entries into active and expired without mutating
// the input. Reading never deletes; expired entries stay stored until an
// explicit delete or promote.
func FilterActive(entries []model.MemoryEntry, now time.Time) (active, expired []model.MemoryEntry) {
	for _, e := range entries {
		if IsExpired(e, now) {
			expired = append(expired, e)
		} else {
			active = append(active, e)
		}
	}
	return active, expired
}
