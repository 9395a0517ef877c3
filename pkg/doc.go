// Package replikv provides the core components for the RepliKV replicated caching system.
//
// This package tree contains the public API of RepliKV. The pieces compose
// bottom-up: eviction policies plug into cache nodes, nodes join a consistent
// hash ring, and the cluster coordinator drives replicated operations across
// ring members through a transport.
//
// # Components
//
// Coordinator (pkg/cluster):
//   - Public key-value API: Put, Get, Delete, Exists, batches and counters
//   - Replica fan-out with ONE / QUORUM / ALL consistency accounting
//   - Cluster membership, aggregated statistics and health checking
//
// Hash Ring (pkg/ring):
//   - Consistent hashing with virtual nodes
//   - Minimal key redistribution on topology changes
//   - Member status and heartbeat tracking
//
// Cache Node (pkg/node):
//   - In-memory storage with per-entry TTL
//   - Memory budget enforcement through eviction
//   - Hit, miss, put, delete and eviction counters
//
// Eviction (pkg/eviction):
//   - LRU, LFU, TTL, FIFO and RANDOM policies behind one interface
//   - Victim selection decoupled from entry storage
//
// Transport (pkg/transport):
//   - HTTP replica protocol with snappy-compressed values
//   - In-process loopback for tests and single-process clusters
//
// Configuration (pkg/config):
//   - Environment variables, .env files and command-line flags
//   - Validation and defaults
//
// # Thread Safety
//
// All components are designed for concurrent use:
//   - The coordinator fans out to replicas from concurrent callers
//   - Nodes guard their entry maps with read-write locks
//   - The hash ring supports concurrent lookups and topology changes
//
// For detailed documentation of specific components, refer to their individual
// package documentation.
package replikv
