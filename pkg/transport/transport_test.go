package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/replikv/replikv/pkg/config"
	"github.com/replikv/replikv/pkg/node"
)

func newTestNode(t *testing.T) *node.Node {
	t.Helper()

	cfg := config.DefaultCacheConfig()
	cfg.ReaperInterval = time.Hour

	n, err := node.New("n1", cfg)
	if err != nil {
		t.Fatalf("node.New failed: %v", err)
	}
	t.Cleanup(n.Close)
	return n
}

func TestLoopbackRoundTrip(t *testing.T) {
	lb := NewLoopback()
	lb.Register("10.0.0.1:7070", newTestNode(t))
	ctx := context.Background()

	if err := lb.Put(ctx, "10.0.0.1:7070", "k", "v", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, found, err := lb.Get(ctx, "10.0.0.1:7070", "k")
	if err != nil || !found || value != "v" {
		t.Errorf("Expected v, got %s (found: %t, err: %v)", value, found, err)
	}

	if exists, _ := lb.Exists(ctx, "10.0.0.1:7070", "k"); !exists {
		t.Error("Expected key to exist")
	}

	if deleted, _ := lb.Delete(ctx, "10.0.0.1:7070", "k"); !deleted {
		t.Error("Expected delete to return true")
	}
}

func TestLoopbackUnknownAddress(t *testing.T) {
	lb := NewLoopback()

	if err := lb.Put(context.Background(), "10.0.0.9:7070", "k", "v", 0); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Expected ErrUnknownNode, got %v", err)
	}
}

func TestLoopbackUnregister(t *testing.T) {
	lb := NewLoopback()
	lb.Register("10.0.0.1:7070", newTestNode(t))
	lb.Unregister("10.0.0.1:7070")

	_, _, err := lb.Get(context.Background(), "10.0.0.1:7070", "k")
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Expected ErrUnknownNode after unregister, got %v", err)
	}
}

func TestLoopbackHonorsContext(t *testing.T) {
	lb := NewLoopback()
	lb.Register("10.0.0.1:7070", newTestNode(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := lb.Put(ctx, "10.0.0.1:7070", "k", "v", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
