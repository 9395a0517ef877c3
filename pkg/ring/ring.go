// Package ring provides the consistent hash ring that maps keys to replica
// nodes in a RepliKV cluster.
//
// Consistent hashing distributes keys across a dynamic set of nodes so that
// adding or removing a node only affects the hash ranges adjacent to that
// node's positions. Each physical node owns a configurable number of virtual
// positions on the ring, which smooths the key distribution.
//
// Example usage:
//
//	r := ring.New(150) // 150 virtual nodes per physical node
//	r.AddNode(&ring.NodeInfo{ID: "node-1", Addr: "10.0.0.1:7070"})
//	r.AddNode(&ring.NodeInfo{ID: "node-2", Addr: "10.0.0.2:7070"})
//	r.AddNode(&ring.NodeInfo{ID: "node-3", Addr: "10.0.0.3:7070"})
//
//	// The first three distinct healthy nodes clockwise from the key's hash.
//	replicas := r.ReplicaNodes("user:123", 3)
//
// The ring ensures that:
//   - Keys are distributed roughly evenly across nodes
//   - Adding/removing nodes only remaps a bounded fraction of keys
//   - Replica selection is deterministic for a fixed ring state and key
//
// All operations are safe for concurrent use; lookups never observe a
// partially updated ring.
package ring

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultVirtualNodes is the default number of virtual positions per
// physical node. More positions give a smoother distribution at the cost
// of a larger sorted index.
const DefaultVirtualNodes = 150

// Status is a node's health state as seen by the cluster.
type Status uint8

const (
	StatusActive  Status = iota // Serving traffic
	StatusJoining               // Announced but not yet serving
	StatusLeaving               // Draining before removal
	StatusFailed                // Marked unresponsive by the health check
)

// String returns the status name used in logs and API responses.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusJoining:
		return "JOINING"
	case StatusLeaving:
		return "LEAVING"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// NodeInfo is a shard's identity and membership metadata. It is owned by
// the ring; callers receive copies.
type NodeInfo struct {
	ID            string    `json:"id"`            // Cluster-unique node identifier
	Addr          string    `json:"addr"`          // Network address ("host:port")
	Status        Status    `json:"-"`             // Current health state
	StatusName    string    `json:"status"`        // Status as a string, for JSON consumers
	VirtualNodes  int       `json:"virtualNodes"`  // Number of ring positions owned
	LastHeartbeat time.Time `json:"lastHeartbeat"` // Last time the node was seen healthy
	MemoryUsage   int64     `json:"memoryUsage"`   // Reported memory usage in bytes
}

// Ring is a consistent hash ring with virtual nodes and health-aware
// replica selection.
//
// Ring positions are kept sorted by hash value so lookups are a binary
// search followed by a clockwise walk. Mutations (add/remove/status) take
// the write lock; lookups take the read lock.
type Ring struct {
	mu           sync.RWMutex
	positions    map[uint64]string    // hash -> node id
	sortedHashes []uint64             // sorted position hashes for binary search
	nodes        map[string]*NodeInfo // node id -> membership record
	virtualNodes int                  // default positions per node
}

// New creates a Ring with the specified default number of virtual positions
// per node. If virtualNodes is <= 0, DefaultVirtualNodes is used.
func New(virtualNodes int) *Ring {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}
	return &Ring{
		positions:    make(map[uint64]string),
		nodes:        make(map[string]*NodeInfo),
		virtualNodes: virtualNodes,
	}
}

// AddNode adds a physical node to the ring, inserting one position per
// virtual node at hash("<id>:<i>"). The node starts ACTIVE with a fresh
// heartbeat unless the caller supplied a status.
//
// Returns an error if a node with the same id is already present.
func (r *Ring) AddNode(info *NodeInfo) error {
	if info == nil || info.ID == "" {
		return fmt.Errorf("node info must carry an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[info.ID]; exists {
		return fmt.Errorf("node already exists: %s", info.ID)
	}

	stored := *info
	if stored.VirtualNodes <= 0 {
		stored.VirtualNodes = r.virtualNodes
	}
	if stored.LastHeartbeat.IsZero() {
		stored.LastHeartbeat = time.Now()
	}
	stored.StatusName = stored.Status.String()
	r.nodes[stored.ID] = &stored

	for i := 0; i < stored.VirtualNodes; i++ {
		hash := hashKey(virtualKey(stored.ID, i))
		// A hash collision between two virtual keys is a rare accepted
		// anomaly; the later insert wins.
		r.positions[hash] = stored.ID
		r.sortedHashes = append(r.sortedHashes, hash)
	}
	sort.Slice(r.sortedHashes, func(i, j int) bool {
		return r.sortedHashes[i] < r.sortedHashes[j]
	})

	return nil
}

// RemoveNode removes a node and all of its virtual positions from the ring.
// Returns true if the node was present.
func (r *Ring) RemoveNode(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.nodes[id]
	if !exists {
		return false
	}
	delete(r.nodes, id)

	for i := 0; i < info.VirtualNodes; i++ {
		hash := hashKey(virtualKey(id, i))
		if owner, ok := r.positions[hash]; ok && owner == id {
			delete(r.positions, hash)
		}
	}

	newSorted := r.sortedHashes[:0]
	for _, hash := range r.sortedHashes {
		if _, ok := r.positions[hash]; ok {
			newSorted = append(newSorted, hash)
		}
	}
	r.sortedHashes = newSorted

	return true
}

// ReplicaNodes returns up to count distinct ACTIVE nodes responsible for the
// key, in ring order: the walk starts at the first position with hash >=
// hash(key) (wrapping to the first position when none is) and collects
// distinct healthy node ids clockwise until count are found or the ring is
// exhausted.
//
// The result is deterministic for a fixed ring state and key.
func (r *Ring) ReplicaNodes(key string, count int) []NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if count <= 0 || len(r.sortedHashes) == 0 {
		return nil
	}

	start := r.search(hashKey(key))
	seen := make(map[string]bool, count)
	replicas := make([]NodeInfo, 0, count)

	for i := 0; i < len(r.sortedHashes) && len(replicas) < count; i++ {
		idx := (start + i) % len(r.sortedHashes)
		id := r.positions[r.sortedHashes[idx]]
		if seen[id] {
			continue
		}
		seen[id] = true

		info := r.nodes[id]
		if info == nil || info.Status != StatusActive {
			continue
		}
		replicas = append(replicas, r.snapshot(info))
	}

	return replicas
}

// GetNode returns the single nearest ACTIVE node for the key (replica
// count 1 semantics). Returns false if no healthy node is available.
func (r *Ring) GetNode(key string) (NodeInfo, bool) {
	replicas := r.ReplicaNodes(key, 1)
	if len(replicas) == 0 {
		return NodeInfo{}, false
	}
	return replicas[0], true
}

// Node returns the membership record for id.
func (r *Ring) Node(id string) (NodeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.nodes[id]
	if !ok {
		return NodeInfo{}, false
	}
	return r.snapshot(info), true
}

// Nodes returns a snapshot of all membership records. The order is not
// guaranteed.
func (r *Ring) Nodes() []NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]NodeInfo, 0, len(r.nodes))
	for _, info := range r.nodes {
		nodes = append(nodes, r.snapshot(info))
	}
	return nodes
}

// Len returns the number of physical nodes in the ring.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// SetStatus updates a node's health state. Returns false if the node is
// not in the ring.
func (r *Ring) SetStatus(id string, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.nodes[id]
	if !ok {
		return false
	}
	info.Status = status
	info.StatusName = status.String()
	return true
}

// Heartbeat refreshes a node's last-seen time and reported memory usage,
// reviving a FAILED node back to ACTIVE.
func (r *Ring) Heartbeat(id string, memoryUsage int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.nodes[id]
	if !ok {
		return false
	}
	info.LastHeartbeat = time.Now()
	info.MemoryUsage = memoryUsage
	if info.Status == StatusFailed {
		info.Status = StatusActive
		info.StatusName = StatusActive.String()
	}
	return true
}

// FailStale marks every ACTIVE node whose last heartbeat is older than
// maxAge as FAILED and returns their ids. Failed nodes are skipped by
// subsequent replica lookups; no data migration is triggered.
func (r *Ring) FailStale(maxAge time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var failed []string
	for id, info := range r.nodes {
		if info.Status == StatusActive && info.LastHeartbeat.Before(cutoff) {
			info.Status = StatusFailed
			info.StatusName = StatusFailed.String()
			failed = append(failed, id)
		}
	}
	return failed
}

// Stats returns statistics about the current state of the ring.
//
// Returns:
//   - "nodes": number of physical nodes
//   - "virtual_nodes": total number of ring positions
//   - "ring_size": size of the sorted hash index
func (r *Ring) Stats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]interface{}{
		"nodes":         len(r.nodes),
		"virtual_nodes": len(r.positions),
		"ring_size":     len(r.sortedHashes),
	}
}

// search performs binary search to find the first position with hash >= the
// given hash, wrapping to index 0 to implement the circular ring.
// The caller must hold at least the read lock.
func (r *Ring) search(hash uint64) int {
	idx := sort.Search(len(r.sortedHashes), func(i int) bool {
		return r.sortedHashes[i] >= hash
	})
	if idx == len(r.sortedHashes) {
		idx = 0
	}
	return idx
}

// snapshot returns a copy of info with the derived JSON fields filled in.
// The caller must hold at least the read lock.
func (r *Ring) snapshot(info *NodeInfo) NodeInfo {
	out := *info
	out.StatusName = info.Status.String()
	return out
}

func virtualKey(id string, i int) string {
	return fmt.Sprintf("%s:%d", id, i)
}

// hashKey computes the 64-bit ring position of a key using xxhash, a strong
// non-cryptographic hash with good distribution across the ring.
func hashKey(key string) uint64 {
	return xxhash.Sum64String(key)
}
