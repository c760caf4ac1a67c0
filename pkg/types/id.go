package types

import "github.com/google/uuid"

// NewID returns a random 128-bit identifier (UUIDv4).
//
// Open Question resolution (spec §9): series_id/point_id/blob_id/item_id
// must never be time-ordered (no UUIDv7/ULID-style scheme) since the
// creation time embedded in such identifiers is treated as information
// leakage by the source's test suite. uuid.NewRandom always produces a
// version-4, fully-random UUID.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// crypto/rand is exhausted only in catastrophic environments;
		// callers cannot meaningfully recover, so retry once through
		// uuid.New, which draws from the same source and panics if it
		// fails again, rather than propagating an error through every
		// constructor in the engine.
		return uuid.New().String()
	}
	return id.String()
}
