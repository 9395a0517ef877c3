// Package eviction provides pluggable eviction policies for RepliKV cache nodes.
//
// A policy decides which entry to remove when a node exceeds its memory budget,
// and maintains whatever internal bookkeeping it needs through the OnAccess,
// OnPut and OnRemove hooks that the owning node invokes on every operation.
//
// Five policies are supported:
//   - LRU: evicts the least recently used key
//   - LFU: evicts the least frequently used key
//   - TTL: evicts the earliest-expiring key whose expiry has passed
//   - FIFO: evicts the oldest inserted key
//   - RANDOM: evicts an arbitrary key
//
// Example usage:
//
//	policy, err := eviction.New(eviction.LRU)
//	if err != nil {
//		log.Fatal(err)
//	}
//	policy.OnPut("user:123", time.Time{})
//	if policy.ShouldEvict(currentMemory, maxMemory) {
//		if victim, ok := policy.SelectVictim(); ok {
//			// remove victim from storage
//		}
//	}
//
// Policies are not safe for concurrent use on their own; the owning cache
// node serializes all hook and selection calls under its lock.
package eviction

import (
	"fmt"
	"time"
)

// Supported eviction policy names. These match the values accepted by the
// cluster configuration surface.
const (
	LRU    = "LRU"
	LFU    = "LFU"
	TTL    = "TTL"
	FIFO   = "FIFO"
	Random = "RANDOM"
)

// Policy is the contract every eviction strategy must satisfy.
//
// The owning cache node calls the hooks on every read and write so the policy
// can maintain its own index, and consults ShouldEvict/SelectVictim in a loop
// when enforcing the memory budget. SelectVictim returning ok=false is not an
// error: it means the policy has no candidate and the caller must stop
// evicting and accept the memory overage rather than loop forever.
type Policy interface {
	// ShouldEvict reports whether the node should evict an entry given its
	// current and maximum memory usage.
	ShouldEvict(currentMemory, maxMemory int64) bool

	// SelectVictim returns the key that should be evicted next.
	// Returns ok=false when the policy has no eviction candidate.
	SelectVictim() (key string, ok bool)

	// OnAccess is invoked after a successful read of key.
	// expiresAt is the entry's absolute expiry time (zero means no expiry).
	OnAccess(key string, expiresAt time.Time)

	// OnPut is invoked after key is stored or overwritten.
	OnPut(key string, expiresAt time.Time)

	// OnRemove is invoked after key is removed from storage for any reason
	// (eviction, explicit delete, or expiry) so the policy can drop its
	// bookkeeping for the key.
	OnRemove(key string)
}

// New creates the eviction policy registered under the given name.
// Returns an error for unknown policy names.
//
// Example:
//
//	policy, err := eviction.New(eviction.LFU)
func New(name string) (Policy, error) {
	switch name {
	case LRU:
		return newLRU(), nil
	case LFU:
		return newLFU(), nil
	case TTL:
		return newTTL(), nil
	case FIFO:
		return newFIFO(), nil
	case Random:
		return newRandom(), nil
	default:
		return nil, fmt.Errorf("unknown eviction policy: %s", name)
	}
}
