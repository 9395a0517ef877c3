// Package replikv provides a replicated in-memory key-value cache with tunable consistency.
//
// RepliKV distributes keys across cluster members with a consistent hash ring and
// writes every key to several replicas, so the cache keeps serving reads and writes
// while individual members are down. Consistency is tunable per cluster, from a
// single acknowledging replica up to all of them, with quorum as the default.
//
// # Architecture Overview
//
// RepliKV consists of several key components:
//
//   - Coordinator: Maps client operations onto replica fan-outs with quorum accounting
//   - Hash Ring: Consistent hashing with virtual nodes for key placement
//   - Cache Node: Per-member storage with TTL expiry and pluggable eviction
//   - Eviction Policies: LRU, LFU, TTL, FIFO and RANDOM victim selection
//   - Transport: HTTP replica protocol with snappy-compressed values
//   - Node Server: HTTP API exposing replica operations, stats and metrics
//   - Configuration: Environment variables, .env files and command-line flags
//
// # Quick Start
//
// In-process cluster:
//
//	import "github.com/replikv/replikv/pkg/cluster"
//	import "github.com/replikv/replikv/pkg/config"
//
//	coord, err := cluster.New(config.DefaultCacheConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer coord.Close()
//
//	coord.AddNode("127.0.0.1", 7071, "")
//	coord.AddNode("127.0.0.1", 7072, "")
//	coord.AddNode("127.0.0.1", 7073, "")
//
//	coord.Put("user:123", "john_doe", time.Hour)
//	value, found, err := coord.Get("user:123")
//
// Standalone server:
//
//	REPLIKV_NODE_ID=node-a REPLIKV_PEERS="node-b=10.0.0.2:7070" ./replikv-server -port 7070
//
// # Supported Operations
//
// Key-value operations:
//   - Put, Get, Delete, Exists: Replicated key-value operations
//   - GetMultiple, PutMultiple: Batch operations with per-key quorums
//   - Increment, Decrement, IncrementBy: Integer counters
//   - Clear: Drop every entry on every member
//
// Cluster management:
//   - AddNode, JoinRemote, RemoveNode: Topology changes
//   - Statistics, ClusterInfo: Aggregated counters and topology
//
// # Replication and Consistency
//
// Every key is stored on a configurable number of replicas chosen by walking
// the hash ring clockwise from the key's position. Operations succeed when
// enough replicas acknowledge them:
//
//   - ONE: a single replica suffices
//   - QUORUM: a majority of the intended replicas (default)
//   - ALL: every intended replica
//
// Reads are not reconciled across replicas; the first live value wins. Failed
// members are skipped during placement but still count against the quorum
// denominator, so losing too many replicas surfaces as an error instead of a
// quietly weaker guarantee.
//
// # Configuration
//
// Server configuration via flags or environment variables:
//
//	./replikv-server -port 7070 -log-level debug
//	# or
//	REPLIKV_PORT=7070 REPLIKV_LOG_LEVEL=debug ./replikv-server
//
// Cluster configuration via environment variables or a .env file:
//
//	REPLIKV_MAX_MEMORY=67108864
//	REPLIKV_EVICTION_POLICY=LRU
//	REPLIKV_REPLICATION_FACTOR=3
//	REPLIKV_CONSISTENCY_LEVEL=QUORUM
//
// # Package Structure
//
//   - pkg/cluster: Coordinator with replica fan-out and quorum accounting
//   - pkg/ring: Consistent hash ring with virtual nodes and member health
//   - pkg/node: Per-member cache storage with TTL and eviction
//   - pkg/eviction: Pluggable eviction policies
//   - pkg/transport: Replica transport (HTTP and in-process loopback)
//   - pkg/config: Configuration management
//   - internal/server: HTTP node server
//   - cmd/replikv-server: Server executable
//   - cmd/cluster-example: Example in-process cluster usage
//
// For detailed documentation of individual packages, see their respective godoc pages.
package replikv
