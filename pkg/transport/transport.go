// Package transport defines the boundary between the cluster coordinator and
// non-local cache nodes.
//
// The coordinator resolves every key to a replica set via the hash ring; any
// replica that is not hosted in the local process is reached through a
// Transport. Two implementations are provided:
//
//   - Loopback executes operations against in-process nodes. It backs tests
//     and single-process deployments.
//   - HTTP carries operations to a remote RepliKV node server over HTTP,
//     with snappy-compressed values on the wire.
//
// Every call takes a context; the coordinator derives per-replica deadlines
// from the configured read/write timeouts and a call that misses its deadline
// is counted as that replica's failure.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownNode is returned when a transport has no route to the requested
// node address.
var ErrUnknownNode = errors.New("transport: unknown node address")

// Transport carries single-key cache operations to a node identified by its
// network address.
type Transport interface {
	// Put stores value under key on the node at addr.
	Put(ctx context.Context, addr, key, value string, ttl time.Duration) error

	// Get retrieves the value stored under key on the node at addr.
	// found is false when the key is absent or expired; err reports
	// transport-level failures only.
	Get(ctx context.Context, addr, key string) (value string, found bool, err error)

	// Delete removes key on the node at addr. Returns whether the key was
	// present and live.
	Delete(ctx context.Context, addr, key string) (bool, error)

	// Exists reports whether key is present and live on the node at addr.
	Exists(ctx context.Context, addr, key string) (bool, error)

	// Clear removes all entries on the node at addr.
	Clear(ctx context.Context, addr string) error
}
