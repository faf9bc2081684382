package memory

import "github.com/ryos-web/ryos-memory/internal/model"

// CurrentIndexVersion is the schema version stamped on new and migrated
// index documents. Version 1 predates the type field.
const CurrentIndexVersion = 2

// MigrateIndex upgrades an index document to the current schema in place
// and reports whether anything changed. Entries lacking a type get their
// canonical default; their expiration stays unset, so pre-migration
// memories never expire whichever type they receive. Indexes already at or
// above the current version are left untouched.
func MigrateIndex(idx *model.MemoryIndex) bool {
	if idx.Version >= CurrentIndexVersion {
		return false
	}
	for i := range idx.Memories {
		if idx.Memories[i].Type == "" {
			idx.Memories[i].Type = DefaultType(idx.Memories[i].Key)
		}
	}
	idx.Version = CurrentIndexVersion
	return true
}
