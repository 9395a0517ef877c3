// Package cluster provides the RepliKV coordinator: the public key-value API
// that maps every client operation onto operations against multiple replica
// nodes.
//
// For each operation the coordinator resolves the key's replica set through
// the consistent hash ring, fans out to every replica (directly for nodes
// hosted in this process, through the transport for remote ones), and applies
// the configured consistency level to decide success or failure:
//
//	ONE           1 replica must respond
//	QUORUM        floor(R/2)+1 replicas must respond
//	LOCAL_QUORUM  same arithmetic as QUORUM
//	ALL           every replica must respond
//
// Reads may return as soon as the threshold is met; writes attempt every
// replica before reporting so the replication-failure count stays accurate.
// A read returns the first live value any counted replica held — replicas
// are not reconciled, so stale or divergent values are possible. This is a
// documented consistency gap of the design, not a defect.
//
// Example usage:
//
//	coord, err := cluster.New(config.DefaultCacheConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer coord.Close()
//
//	coord.AddNode("10.0.0.1", 7070, "")
//	coord.AddNode("10.0.0.2", 7070, "")
//	coord.AddNode("10.0.0.3", 7070, "")
//
//	if err := coord.Put("user:123", "john_doe", time.Hour); err != nil {
//		log.Fatal(err)
//	}
//	value, found, err := coord.Get("user:123")
package cluster

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/replikv/replikv/pkg/config"
	"github.com/replikv/replikv/pkg/node"
	"github.com/replikv/replikv/pkg/ring"
	"github.com/replikv/replikv/pkg/transport"
)

// Statistics aggregates the counters of every node hosted in this process,
// plus the coordinator's replication-failure count. Counters are monotonic;
// they reset only with the process.
type Statistics struct {
	HitCount            uint64  `json:"hitCount"`
	MissCount           uint64  `json:"missCount"`
	HitRatio            float64 `json:"hitRatio"`
	PutCount            uint64  `json:"putCount"`
	DeleteCount         uint64  `json:"deleteCount"`
	EvictionCount       uint64  `json:"evictionCount"`
	MemoryUsage         int64   `json:"memoryUsage"`
	NodeCount           int     `json:"nodeCount"`
	ReplicationFailures uint64  `json:"replicationFailures"`
}

// Info describes the cluster topology and its placement parameters.
type Info struct {
	NodeCount           int             `json:"nodeCount"`
	ReplicationFactor   int             `json:"replicationFactor"`
	ConsistencyLevel    string          `json:"consistencyLevel"`
	VirtualNodesPerNode int             `json:"virtualNodesPerNode"`
	Nodes               []ring.NodeInfo `json:"nodes"`
}

// Coordinator is the cluster's read/write front door. It owns the hash ring,
// the nodes hosted in this process, and the transport used to reach the rest.
type Coordinator struct {
	cfg       *config.CacheConfig
	ring      *ring.Ring
	transport transport.Transport

	mu    sync.RWMutex
	nodes map[string]*node.Node // nodes hosted in this process, by id

	replicationFailures atomic.Uint64
	nodeSeq             atomic.Uint64
	flights             singleflight.Group

	done      chan struct{}
	closeOnce sync.Once
	log       *logrus.Entry
}

// New creates a Coordinator without a remote transport: every node added via
// AddNode is hosted in this process. Suitable for tests and single-process
// deployments.
func New(cfg *config.CacheConfig) (*Coordinator, error) {
	return NewWithTransport(cfg, nil)
}

// NewWithTransport creates a Coordinator that reaches replicas not hosted in
// this process through tr. The configuration is validated and the periodic
// health checker is started; the caller must Close the coordinator when done.
func NewWithTransport(cfg *config.CacheConfig, tr transport.Transport) (*Coordinator, error) {
	if cfg == nil {
		cfg = config.DefaultCacheConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cluster configuration: %w", err)
	}

	c := &Coordinator{
		cfg:       cfg,
		ring:      ring.New(cfg.VirtualNodes),
		transport: tr,
		nodes:     make(map[string]*node.Node),
		done:      make(chan struct{}),
		log:       logrus.WithField("component", "cluster"),
	}

	go c.healthLoop()
	return c, nil
}

// Close stops the health checker and shuts down every locally hosted node.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		for _, n := range c.nodes {
			n.Close()
		}
		c.mu.Unlock()
	})
}

// AddNode creates a cache node hosted in this process and joins it to the
// ring under the given address. An empty id is replaced by a generated one.
// Returns the node id.
func (c *Coordinator) AddNode(host string, port int, id string) (string, error) {
	if id == "" {
		id = fmt.Sprintf("node-%d", c.nodeSeq.Inc())
	}

	n, err := node.New(id, c.cfg)
	if err != nil {
		return "", err
	}

	info := &ring.NodeInfo{
		ID:           id,
		Addr:         fmt.Sprintf("%s:%d", host, port),
		VirtualNodes: c.cfg.VirtualNodes,
	}
	if err := c.ring.AddNode(info); err != nil {
		n.Close()
		return "", err
	}

	c.mu.Lock()
	c.nodes[id] = n
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"node": id, "addr": info.Addr}).Info("node joined cluster")
	return id, nil
}

// JoinRemote adds a node served by another process to the ring. Operations
// routed to it go through the coordinator's transport.
func (c *Coordinator) JoinRemote(id, addr string) error {
	if err := c.ring.AddNode(&ring.NodeInfo{ID: id, Addr: addr, VirtualNodes: c.cfg.VirtualNodes}); err != nil {
		return err
	}
	c.log.WithFields(logrus.Fields{"node": id, "addr": addr}).Info("remote node joined cluster")
	return nil
}

// RemoveNode removes a node from the ring and, if it is hosted in this
// process, shuts it down. Data held by the node is not redistributed: keys
// whose only live replicas were on it are lost to the cluster.
func (c *Coordinator) RemoveNode(id string) bool {
	if !c.ring.RemoveNode(id) {
		return false
	}

	c.mu.Lock()
	if n, ok := c.nodes[id]; ok {
		n.Close()
		delete(c.nodes, id)
	}
	c.mu.Unlock()

	c.log.WithField("node", id).Info("node left cluster")
	return true
}

// Put stores value under key on every replica responsible for it, honoring
// the configured consistency level. A TTL of zero falls back to the
// configured default. All replicas are attempted even after the threshold is
// met so the replication-failure count stays accurate.
func (c *Coordinator) Put(key, value string, ttl time.Duration) error {
	replicas, required, err := c.resolve(key)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()

	results := make(chan bool, len(replicas))
	for _, info := range replicas {
		go func(info ring.NodeInfo) {
			results <- c.applyWrite(info, "put", key, func(n *node.Node) error {
				n.Put(key, value, ttl)
				return nil
			}, func() error {
				return c.transport.Put(ctx, info.Addr, key, value, ttl)
			})
		}(info)
	}

	successes := 0
	for range replicas {
		if <-results {
			successes++
		}
	}

	if successes < required {
		return &ReplicationError{Key: key, Successes: successes, Required: required}
	}
	return nil
}

// Get retrieves the value stored under key. found is false when no counted
// replica held a live value. Concurrent gets for the same key are collapsed
// into a single fan-out.
//
// The read may return as soon as the consistency threshold is met; the value
// is the first live one any counted replica reported, without cross-replica
// reconciliation.
func (c *Coordinator) Get(key string) (string, bool, error) {
	type getResult struct {
		value string
		found bool
	}

	v, err, _ := c.flights.Do("get:"+key, func() (interface{}, error) {
		replicas, required, err := c.resolve(key)
		if err != nil {
			return getResult{}, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ReadTimeout)
		defer cancel()

		type reply struct {
			ok    bool
			found bool
			value string
		}
		results := make(chan reply, len(replicas))
		for _, info := range replicas {
			go func(info ring.NodeInfo) {
				var r reply
				if n := c.localNode(info.ID); n != nil {
					r.value, r.found = n.Get(key)
					r.ok = true
					c.touch(info)
				} else if c.transport != nil {
					value, found, err := c.transport.Get(ctx, info.Addr, key)
					if err != nil {
						c.log.WithFields(logrus.Fields{"node": info.ID, "key": key}).
							WithError(err).Warn("replica get failed")
					} else {
						r.value, r.found, r.ok = value, found, true
						c.touch(info)
					}
				} else {
					c.log.WithField("node", info.ID).Warn("no transport for remote replica")
				}
				results <- r
			}(info)
		}

		successes := 0
		found := false
		var value string
		for range replicas {
			r := <-results
			if r.ok {
				successes++
				if r.found && !found {
					found, value = true, r.value
				}
			}
			// Reads may short-circuit once the threshold is met and a
			// live value is in hand.
			if successes >= required && found {
				return getResult{value: value, found: true}, nil
			}
		}

		if successes >= required {
			return getResult{}, nil
		}
		return getResult{}, &ConsistencyError{Key: key, Successes: successes, Required: required}
	})

	if err != nil {
		return "", false, err
	}
	r := v.(getResult)
	return r.value, r.found, nil
}

// Delete removes key from every replica responsible for it. Returns true if
// any counted replica held the key live.
func (c *Coordinator) Delete(key string) (bool, error) {
	replicas, required, err := c.resolve(key)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()

	type reply struct {
		ok      bool
		deleted bool
	}
	results := make(chan reply, len(replicas))
	for _, info := range replicas {
		go func(info ring.NodeInfo) {
			var r reply
			r.ok = c.applyWrite(info, "delete", key, func(n *node.Node) error {
				r.deleted = n.Delete(key)
				return nil
			}, func() error {
				deleted, err := c.transport.Delete(ctx, info.Addr, key)
				r.deleted = deleted
				return err
			})
			results <- r
		}(info)
	}

	successes := 0
	deleted := false
	for range replicas {
		r := <-results
		if r.ok {
			successes++
			if r.deleted {
				deleted = true
			}
		}
	}

	if successes < required {
		return false, &ReplicationError{Key: key, Successes: successes, Required: required}
	}
	return deleted, nil
}

// Exists reports whether key is live on any counted replica. Access
// statistics are not touched. Like Get, the check may short-circuit once the
// threshold is met with a positive answer.
func (c *Coordinator) Exists(key string) (bool, error) {
	replicas, required, err := c.resolve(key)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ReadTimeout)
	defer cancel()

	type reply struct {
		ok     bool
		exists bool
	}
	results := make(chan reply, len(replicas))
	for _, info := range replicas {
		go func(info ring.NodeInfo) {
			var r reply
			if n := c.localNode(info.ID); n != nil {
				r.exists = n.Exists(key)
				r.ok = true
				c.touch(info)
			} else if c.transport != nil {
				exists, err := c.transport.Exists(ctx, info.Addr, key)
				if err != nil {
					c.log.WithFields(logrus.Fields{"node": info.ID, "key": key}).
						WithError(err).Warn("replica exists failed")
				} else {
					r.exists, r.ok = exists, true
					c.touch(info)
				}
			}
			results <- r
		}(info)
	}

	successes := 0
	exists := false
	for range replicas {
		r := <-results
		if r.ok {
			successes++
			if r.exists {
				exists = true
			}
		}
		if successes >= required && exists {
			return true, nil
		}
	}

	if successes >= required {
		return exists, nil
	}
	return false, &ConsistencyError{Key: key, Successes: successes, Required: required}
}

// Clear removes all entries from every node in the cluster. Returns true
// only if every node was cleared.
func (c *Coordinator) Clear() bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()

	ok := true
	for _, info := range c.ring.Nodes() {
		if n := c.localNode(info.ID); n != nil {
			n.Clear()
			continue
		}
		if c.transport == nil {
			ok = false
			continue
		}
		if err := c.transport.Clear(ctx, info.Addr); err != nil {
			c.log.WithField("node", info.ID).WithError(err).Warn("clear failed")
			ok = false
		}
	}
	return ok
}

// GetMultiple retrieves the given keys, each with an independent quorum
// read. Keys that miss or fail their threshold are simply absent from the
// result; one key's failure never aborts the others.
func (c *Coordinator) GetMultiple(keys []string) map[string]string {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, found, err := c.Get(key); err == nil && found {
			result[key] = value
		}
	}
	return result
}

// PutMultiple stores the given entries, each with an independent quorum
// write. Returns true only if every put met its threshold; a failed key does
// not abort the rest.
func (c *Coordinator) PutMultiple(entries map[string]string, ttl time.Duration) bool {
	ok := true
	for key, value := range entries {
		if err := c.Put(key, value, ttl); err != nil {
			c.log.WithField("key", key).WithError(err).Warn("batch put failed for key")
			ok = false
		}
	}
	return ok
}

// Increment adds 1 to the integer value stored under key and returns the new
// value. A missing key counts from 0, so the first increment yields 1.
func (c *Coordinator) Increment(key string) (int64, error) {
	return c.IncrementBy(key, 1)
}

// Decrement subtracts 1 from the integer value stored under key and returns
// the new value.
func (c *Coordinator) Decrement(key string) (int64, error) {
	return c.IncrementBy(key, -1)
}

// IncrementBy adds delta to the integer value stored under key and returns
// the new value.
//
// This is a read-modify-write, not an atomic operation: two concurrent
// callers can read the same current value and one update will be lost. This
// is a documented limitation of the design.
func (c *Coordinator) IncrementBy(key string, delta int64) (int64, error) {
	current := int64(0)

	value, found, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	if found {
		parsed, perr := strconv.ParseInt(value, 10, 64)
		if perr != nil {
			return 0, &OperationError{Op: "increment", Key: key, Err: fmt.Errorf("value is not an integer")}
		}
		current = parsed
	}

	next := current + delta
	if err := c.Put(key, strconv.FormatInt(next, 10), 0); err != nil {
		return 0, err
	}
	return next, nil
}

// Statistics sums the counters of every node hosted in this process. The hit
// ratio is 0 when no requests have been recorded.
func (c *Coordinator) Statistics() Statistics {
	stats := Statistics{
		NodeCount:           c.ring.Len(),
		ReplicationFailures: c.replicationFailures.Load(),
	}

	c.mu.RLock()
	for _, n := range c.nodes {
		s := n.Stats()
		stats.HitCount += s.Hits
		stats.MissCount += s.Misses
		stats.PutCount += s.Puts
		stats.DeleteCount += s.Deletes
		stats.EvictionCount += s.Evictions
		stats.MemoryUsage += s.MemoryUsage
	}
	c.mu.RUnlock()

	if total := stats.HitCount + stats.MissCount; total > 0 {
		stats.HitRatio = float64(stats.HitCount) / float64(total)
	}
	return stats
}

// ClusterInfo returns the cluster topology and placement parameters.
func (c *Coordinator) ClusterInfo() Info {
	return Info{
		NodeCount:           c.ring.Len(),
		ReplicationFactor:   c.cfg.ReplicationFactor,
		ConsistencyLevel:    c.cfg.ConsistencyLevel,
		VirtualNodesPerNode: c.cfg.VirtualNodes,
		Nodes:               c.ring.Nodes(),
	}
}

// Ring exposes the coordinator's hash ring, mainly for the node server's
// heartbeat endpoint.
func (c *Coordinator) Ring() *ring.Ring {
	return c.ring
}

// Node returns the node hosted in this process under id, or nil. The node
// server uses it to serve replica traffic against local storage directly,
// without another fan-out.
func (c *Coordinator) Node(id string) *node.Node {
	return c.localNode(id)
}

// resolve returns the key's replica set and the number of replica successes
// the configured consistency level requires.
//
// The threshold is computed from the intended replica count — the
// replication factor capped by cluster size — not from the number of
// currently healthy replicas. A key whose replicas are mostly failed must
// miss quorum, not see it quietly shrink.
func (c *Coordinator) resolve(key string) ([]ring.NodeInfo, int, error) {
	replicas := c.ring.ReplicaNodes(key, c.cfg.ReplicationFactor)
	if len(replicas) == 0 {
		return nil, 0, &NodeUnavailableError{Key: key}
	}

	intended := c.ring.Len()
	if intended > c.cfg.ReplicationFactor {
		intended = c.cfg.ReplicationFactor
	}
	return replicas, requiredSuccesses(c.cfg.ConsistencyLevel, intended), nil
}

// requiredSuccesses maps a consistency level to the number of replica
// successes needed out of replicas.
func requiredSuccesses(level string, replicas int) int {
	switch level {
	case config.ConsistencyOne:
		return 1
	case config.ConsistencyAll:
		return replicas
	default: // QUORUM and LOCAL_QUORUM share the same arithmetic
		return replicas/2 + 1
	}
}

// applyWrite runs a write against one replica, locally when the node lives
// in this process and through the transport otherwise. Failures are counted
// and logged, never propagated: the caller tallies the boolean outcomes
// against the consistency threshold.
func (c *Coordinator) applyWrite(info ring.NodeInfo, op, key string, local func(*node.Node) error, remote func() error) bool {
	var err error
	if n := c.localNode(info.ID); n != nil {
		err = local(n)
	} else if c.transport != nil {
		err = remote()
	} else {
		err = fmt.Errorf("no transport for remote node %s", info.ID)
	}

	if err != nil {
		c.replicationFailures.Inc()
		c.log.WithFields(logrus.Fields{"node": info.ID, "key": key, "op": op}).
			WithError(err).Warn("replica write failed")
		return false
	}
	c.touch(info)
	return true
}

// localNode returns the node hosted in this process under id, or nil.
func (c *Coordinator) localNode(id string) *node.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nodes[id]
}

// touch refreshes the ring heartbeat of a replica that just served an
// operation successfully.
func (c *Coordinator) touch(info ring.NodeInfo) {
	if n := c.localNode(info.ID); n != nil {
		c.ring.Heartbeat(info.ID, n.MemoryUsage())
		return
	}
	c.ring.Heartbeat(info.ID, info.MemoryUsage)
}

// healthLoop periodically refreshes heartbeats for locally hosted nodes and
// marks ACTIVE nodes unseen for two intervals as FAILED. Failed nodes drop
// out of replica selection immediately; no data migration is triggered.
func (c *Coordinator) healthLoop() {
	ticker := time.NewTicker(c.cfg.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			for id, n := range c.nodes {
				c.ring.Heartbeat(id, n.MemoryUsage())
			}
			c.mu.RUnlock()

			if failed := c.ring.FailStale(2 * c.cfg.HealthCheckInterval); len(failed) > 0 {
				c.log.WithField("nodes", failed).Warn("marked unresponsive nodes as failed")
			}
		}
	}
}
