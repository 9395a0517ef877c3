// Package node provides the per-shard storage unit of the RepliKV cluster.
//
// A Node owns a key to entry mapping guarded by a single read-write lock, an
// eviction policy instance consulted on every read and write, approximate
// memory accounting, and hit/miss/eviction counters. Expired entries are
// removed lazily on access and swept periodically by a background reaper.
//
// Example usage:
//
//	n, err := node.New("node-1", config.DefaultCacheConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer n.Close()
//
//	n.Put("user:123", "john_doe", time.Hour)
//	if value, ok := n.Get("user:123"); ok {
//		fmt.Printf("user: %s\n", value)
//	}
//
// All operations are safe for concurrent use. Operations against the same
// key on the same node are serialized by the node lock, which preserves the
// put/evict/get invariants on the entry map.
package node

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/replikv/replikv/pkg/config"
	"github.com/replikv/replikv/pkg/eviction"
)

// Stats is a snapshot of a node's monotonic counters and memory usage.
// Counters only reset with the process.
type Stats struct {
	Hits        uint64 `json:"hitCount"`
	Misses      uint64 `json:"missCount"`
	Puts        uint64 `json:"putCount"`
	Deletes     uint64 `json:"deleteCount"`
	Evictions   uint64 `json:"evictionCount"`
	MemoryUsage int64  `json:"memoryUsage"`
	Entries     int    `json:"entries"`
}

// Node is a single shard's in-memory storage engine.
type Node struct {
	id         string
	maxMemory  int64
	defaultTTL time.Duration

	mu      sync.RWMutex
	entries map[string]*Entry
	policy  eviction.Policy

	memory    atomic.Int64
	hits      atomic.Uint64
	misses    atomic.Uint64
	puts      atomic.Uint64
	deletes   atomic.Uint64
	evictions atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
	log       *logrus.Entry
}

// New creates a Node with the eviction policy and limits from cfg and starts
// its background reaper. The caller must Close the node when done with it.
//
// Parameters:
//   - id: The node identifier, matching the node's ring membership
//   - cfg: Cluster configuration (memory budget, policy, TTL, reaper interval)
//
// Returns:
//   - A running Node, or an error if the configured eviction policy is unknown
func New(id string, cfg *config.CacheConfig) (*Node, error) {
	policy, err := eviction.New(cfg.EvictionPolicy)
	if err != nil {
		return nil, err
	}

	n := &Node{
		id:         id,
		maxMemory:  cfg.MaxMemory,
		defaultTTL: cfg.DefaultTTL,
		entries:    make(map[string]*Entry),
		policy:     policy,
		done:       make(chan struct{}),
		log:        logrus.WithField("node", id),
	}

	go n.reap(cfg.ReaperInterval)
	return n, nil
}

// ID returns the node identifier.
func (n *Node) ID() string {
	return n.id
}

// Close stops the background reaper. The node remains usable afterwards but
// expired entries are then reclaimed only lazily on access.
func (n *Node) Close() {
	n.closeOnce.Do(func() { close(n.done) })
}

// reap periodically removes entries whose expiry has passed, independent of
// client-triggered lazy expiry. This bounds growth from keys that are never
// read again.
func (n *Node) reap(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.done:
			return
		case <-ticker.C:
			n.mu.Lock()
			now := time.Now()
			removed := 0
			for key, entry := range n.entries {
				if entry.Expired(now) {
					n.removeLocked(key)
					removed++
				}
			}
			n.mu.Unlock()
			if removed > 0 {
				n.log.WithField("removed", removed).Debug("reaped expired entries")
			}
		}
	}
}

// Put stores a value under key with the given TTL. A TTL of zero falls back
// to the node's configured default; a default of zero means no expiry.
// Before storing, the memory budget is enforced: while the policy requests
// eviction, victims are removed, stopping as soon as the policy has no
// candidate (the overage is then accepted).
func (n *Node) Put(key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = n.defaultTTL
	}

	now := time.Now()
	entry := &Entry{
		Key:        key,
		Value:      value,
		CreatedAt:  now,
		AccessedAt: now,
		Version:    1,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if old, ok := n.entries[key]; ok {
		entry.CreatedAt = old.CreatedAt
		entry.Version = old.Version + 1
	}

	// Projected usage once the new entry lands, net of any entry it replaces.
	projected := func() int64 {
		p := n.memory.Load() + entry.size()
		if cur, ok := n.entries[key]; ok {
			p -= cur.size()
		}
		return p
	}

	for n.policy.ShouldEvict(projected(), n.maxMemory) {
		victim, ok := n.policy.SelectVictim()
		if !ok {
			break
		}
		if n.removeLocked(victim) {
			n.evictions.Inc()
		} else {
			// The policy tracked a key the map no longer holds; drop it
			// so the loop cannot spin on the same victim.
			n.policy.OnRemove(victim)
		}
	}

	if cur, ok := n.entries[key]; ok {
		n.memory.Sub(cur.size())
	}
	n.entries[key] = entry
	n.memory.Add(entry.size())
	n.policy.OnPut(key, entry.ExpiresAt)
	n.puts.Inc()
}

// Get retrieves the value stored under key. A hit updates the entry's access
// metadata and notifies the eviction policy. An entry whose expiry has passed
// is removed on the spot and counts as a miss (lazy expiry).
func (n *Node) Get(key string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	entry, ok := n.entries[key]
	if !ok {
		n.misses.Inc()
		return "", false
	}

	if entry.Expired(time.Now()) {
		n.removeLocked(key)
		n.misses.Inc()
		return "", false
	}

	entry.AccessedAt = time.Now()
	entry.AccessCount++
	n.policy.OnAccess(key, entry.ExpiresAt)
	n.hits.Inc()
	return entry.Value, true
}

// Delete removes key from the node. Returns true if the key was present and
// live.
func (n *Node) Delete(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	entry, ok := n.entries[key]
	if !ok {
		return false
	}

	expired := entry.Expired(time.Now())
	n.removeLocked(key)
	if expired {
		return false
	}
	n.deletes.Inc()
	return true
}

// Exists reports whether key is present and live. Like Get it removes an
// expired entry on the spot, but it does not touch access statistics.
func (n *Node) Exists(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	entry, ok := n.entries[key]
	if !ok {
		return false
	}

	if entry.Expired(time.Now()) {
		n.removeLocked(key)
		return false
	}
	return true
}

// Clear removes all entries from the node.
func (n *Node) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for key := range n.entries {
		n.policy.OnRemove(key)
	}
	n.entries = make(map[string]*Entry)
	n.memory.Store(0)
}

// Len returns the number of physically stored entries, including any that
// have expired but not yet been reclaimed.
func (n *Node) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.entries)
}

// MemoryUsage returns the node's current approximate memory usage in bytes.
func (n *Node) MemoryUsage() int64 {
	return n.memory.Load()
}

// Stats returns a snapshot of the node's counters and memory usage.
func (n *Node) Stats() Stats {
	n.mu.RLock()
	entries := len(n.entries)
	n.mu.RUnlock()

	return Stats{
		Hits:        n.hits.Load(),
		Misses:      n.misses.Load(),
		Puts:        n.puts.Load(),
		Deletes:     n.deletes.Load(),
		Evictions:   n.evictions.Load(),
		MemoryUsage: n.memory.Load(),
		Entries:     entries,
	}
}

// removeLocked deletes key from the entry map, updates memory accounting and
// notifies the policy. The caller must hold the write lock.
func (n *Node) removeLocked(key string) bool {
	entry, ok := n.entries[key]
	if !ok {
		return false
	}
	delete(n.entries, key)
	n.memory.Sub(entry.size())
	n.policy.OnRemove(key)
	return true
}
