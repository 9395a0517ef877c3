package transport

import (
	"context"
	"sync"
	"time"

	"github.com/replikv/replikv/pkg/node"
)

// Loopback is a Transport that executes operations against nodes hosted in
// the same process. It is the stand-in used by tests and by single-process
// clusters; the address space is whatever the caller registers.
type Loopback struct {
	mu    sync.RWMutex
	nodes map[string]*node.Node
}

// NewLoopback creates an empty in-process transport.
func NewLoopback() *Loopback {
	return &Loopback{nodes: make(map[string]*node.Node)}
}

// Register binds a node to an address. Registering an address twice
// replaces the previous binding.
func (l *Loopback) Register(addr string, n *node.Node) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes[addr] = n
}

// Unregister removes the binding for addr.
func (l *Loopback) Unregister(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.nodes, addr)
}

func (l *Loopback) lookup(ctx context.Context, addr string) (*node.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.nodes[addr]
	if !ok {
		return nil, ErrUnknownNode
	}
	return n, nil
}

// Put implements Transport.
func (l *Loopback) Put(ctx context.Context, addr, key, value string, ttl time.Duration) error {
	n, err := l.lookup(ctx, addr)
	if err != nil {
		return err
	}
	n.Put(key, value, ttl)
	return nil
}

// Get implements Transport.
func (l *Loopback) Get(ctx context.Context, addr, key string) (string, bool, error) {
	n, err := l.lookup(ctx, addr)
	if err != nil {
		return "", false, err
	}
	value, found := n.Get(key)
	return value, found, nil
}

// Delete implements Transport.
func (l *Loopback) Delete(ctx context.Context, addr, key string) (bool, error) {
	n, err := l.lookup(ctx, addr)
	if err != nil {
		return false, err
	}
	return n.Delete(key), nil
}

// Exists implements Transport.
func (l *Loopback) Exists(ctx context.Context, addr, key string) (bool, error) {
	n, err := l.lookup(ctx, addr)
	if err != nil {
		return false, err
	}
	return n.Exists(key), nil
}

// Clear implements Transport.
func (l *Loopback) Clear(ctx context.Context, addr string) error {
	n, err := l.lookup(ctx, addr)
	if err != nil {
		return err
	}
	n.Clear()
	return nil
}
