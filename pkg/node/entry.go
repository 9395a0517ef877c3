package node

import "time"

// entryOverhead approximates the fixed per-entry bookkeeping cost in bytes
// (struct fields, map bucket share). Memory accounting is an estimate used
// for eviction triggering, not exact capacity planning.
const entryOverhead = 96

// Entry is a single stored value with its bookkeeping metadata.
//
// An entry with a set expiry is logically absent once the current time
// exceeds ExpiresAt, regardless of whether it has been physically removed
// yet (lazy expiry). Access metadata is updated on every read that finds
// the entry live.
type Entry struct {
	Key         string    // The cache key
	Value       string    // The stored payload
	CreatedAt   time.Time // When the entry was first stored
	AccessedAt  time.Time // Last successful read
	ExpiresAt   time.Time // Absolute expiry time (zero means no expiry)
	AccessCount uint64    // Number of successful reads
	Version     uint64    // Incremented on every overwrite of the key
}

// Expired reports whether the entry is logically absent at the given time.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// size estimates the entry's memory footprint in bytes.
func (e *Entry) size() int64 {
	return int64(len(e.Key)+len(e.Value)) + entryOverhead
}
