package cluster

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/replikv/replikv/pkg/config"
	"github.com/replikv/replikv/pkg/ring"
)

func testConfig() *config.CacheConfig {
	cfg := config.DefaultCacheConfig()
	cfg.HealthCheckInterval = time.Hour // keep the checker out of timing-sensitive tests
	cfg.ReaperInterval = time.Hour
	return cfg
}

func newTestCluster(t *testing.T, cfg *config.CacheConfig, nodes int) *Coordinator {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(c.Close)

	for i := 0; i < nodes; i++ {
		if _, err := c.AddNode("127.0.0.1", 7070+i, fmt.Sprintf("node-%d", i+1)); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
	}
	return c
}

func TestRequiredSuccesses(t *testing.T) {
	cases := []struct {
		level    string
		replicas int
		want     int
	}{
		{config.ConsistencyOne, 3, 1},
		{config.ConsistencyAll, 3, 3},
		{config.ConsistencyQuorum, 3, 2},
		{config.ConsistencyQuorum, 4, 3},
		{config.ConsistencyQuorum, 5, 3},
		{config.ConsistencyQuorum, 1, 1},
		{config.ConsistencyLocalQuorum, 3, 2},
	}
	for _, tc := range cases {
		if got := requiredSuccesses(tc.level, tc.replicas); got != tc.want {
			t.Errorf("requiredSuccesses(%s, %d) = %d, want %d", tc.level, tc.replicas, got, tc.want)
		}
	}
}

func TestQuorumPutGet(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	if err := c.Put("k", "v1", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, found, err := c.Get("k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || value != "v1" {
		t.Errorf("Expected v1, got %s (found: %t)", value, found)
	}
}

func TestGetMissesBelowQuorum(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	if err := c.Put("k", "v1", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Two of three replicas down: a QUORUM read can reach only 1 of the
	// required 2 and must fail with a consistency error.
	c.Ring().SetStatus("node-1", ring.StatusFailed)
	c.Ring().SetStatus("node-2", ring.StatusFailed)

	_, _, err := c.Get("k")
	var consErr *ConsistencyError
	if !errors.As(err, &consErr) {
		t.Fatalf("Expected ConsistencyError, got %v", err)
	}
	if consErr.Required != 2 {
		t.Errorf("Expected required 2, got %d", consErr.Required)
	}
}

func TestPutFailsBelowQuorum(t *testing.T) {
	c := newTestCluster(t, testConfig(), 1)

	// Two ring members have no backing process and no transport: every
	// write to them fails, leaving 1 of the required 2 successes.
	if err := c.JoinRemote("ghost-1", "127.0.0.1:9991"); err != nil {
		t.Fatalf("JoinRemote failed: %v", err)
	}
	if err := c.JoinRemote("ghost-2", "127.0.0.1:9992"); err != nil {
		t.Fatalf("JoinRemote failed: %v", err)
	}

	err := c.Put("k", "v", 0)
	var replErr *ReplicationError
	if !errors.As(err, &replErr) {
		t.Fatalf("Expected ReplicationError, got %v", err)
	}
	if replErr.Required != 2 || replErr.Successes != 1 {
		t.Errorf("Expected 1 of 2 successes, got %d of %d", replErr.Successes, replErr.Required)
	}

	if got := c.Statistics().ReplicationFailures; got != 2 {
		t.Errorf("Expected 2 replication failures, got %d", got)
	}
}

func TestConsistencyLevelOne(t *testing.T) {
	cfg := testConfig()
	cfg.ConsistencyLevel = config.ConsistencyOne

	c := newTestCluster(t, cfg, 3)

	c.Ring().SetStatus("node-1", ring.StatusFailed)
	c.Ring().SetStatus("node-2", ring.StatusFailed)

	// A single reachable replica satisfies ONE.
	if err := c.Put("k", "v", 0); err != nil {
		t.Fatalf("Put with ONE failed: %v", err)
	}
	if _, _, err := c.Get("k"); err != nil {
		t.Fatalf("Get with ONE failed: %v", err)
	}
}

func TestConsistencyLevelAll(t *testing.T) {
	cfg := testConfig()
	cfg.ConsistencyLevel = config.ConsistencyAll

	c := newTestCluster(t, cfg, 3)

	if err := c.Put("k", "v", 0); err != nil {
		t.Fatalf("Put with ALL on a healthy cluster failed: %v", err)
	}

	c.Ring().SetStatus("node-3", ring.StatusFailed)

	err := c.Put("k", "v2", 0)
	var replErr *ReplicationError
	if !errors.As(err, &replErr) {
		t.Fatalf("Expected ReplicationError with one node down under ALL, got %v", err)
	}
}

func TestNodeUnavailableOnEmptyCluster(t *testing.T) {
	c, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	var unavailable *NodeUnavailableError

	if err := c.Put("k", "v", 0); !errors.As(err, &unavailable) {
		t.Errorf("Expected NodeUnavailableError from Put, got %v", err)
	}
	if _, _, err := c.Get("k"); !errors.As(err, &unavailable) {
		t.Errorf("Expected NodeUnavailableError from Get, got %v", err)
	}
	if _, err := c.Delete("k"); !errors.As(err, &unavailable) {
		t.Errorf("Expected NodeUnavailableError from Delete, got %v", err)
	}
}

func TestDeleteAndExists(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	if err := c.Put("k", "v", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if exists, err := c.Exists("k"); err != nil || !exists {
		t.Errorf("Expected key to exist, got %t (err: %v)", exists, err)
	}

	if deleted, err := c.Delete("k"); err != nil || !deleted {
		t.Errorf("Expected delete to return true, got %t (err: %v)", deleted, err)
	}

	if exists, err := c.Exists("k"); err != nil || exists {
		t.Errorf("Expected key to be gone, got %t (err: %v)", exists, err)
	}

	if deleted, err := c.Delete("k"); err != nil || deleted {
		t.Errorf("Deleting an absent key should return false, got %t (err: %v)", deleted, err)
	}
}

func TestTTLVisibleThroughCluster(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	if err := c.Put("temp", "v", 50*time.Millisecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if exists, _ := c.Exists("temp"); !exists {
		t.Error("Key should exist before the TTL elapses")
	}

	time.Sleep(80 * time.Millisecond)

	if exists, err := c.Exists("temp"); err != nil || exists {
		t.Errorf("Key should be absent after the TTL, got %t (err: %v)", exists, err)
	}
	if _, found, err := c.Get("temp"); err != nil || found {
		t.Errorf("Get should miss after the TTL, got found=%t (err: %v)", found, err)
	}
}

func TestIncrementSequence(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	for want := int64(1); want <= 3; want++ {
		got, err := c.Increment("counter")
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected %d, got %d", want, got)
		}
	}

	got, err := c.Decrement("counter")
	if err != nil || got != 2 {
		t.Errorf("Expected 2 after decrement, got %d (err: %v)", got, err)
	}

	got, err = c.IncrementBy("counter", 10)
	if err != nil || got != 12 {
		t.Errorf("Expected 12, got %d (err: %v)", got, err)
	}
}

func TestIncrementNonNumeric(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	if err := c.Put("text", "not a number", 0); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	_, err := c.Increment("text")
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("Expected OperationError, got %v", err)
	}
}

func TestBatchOperations(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	entries := map[string]string{
		"batch:a": "1",
		"batch:b": "2",
		"batch:c": "3",
	}
	if !c.PutMultiple(entries, 0) {
		t.Fatal("PutMultiple should succeed on a healthy cluster")
	}

	got := c.GetMultiple([]string{"batch:a", "batch:b", "batch:c", "batch:missing"})
	if len(got) != 3 {
		t.Errorf("Expected 3 hits, got %d", len(got))
	}
	for key, want := range entries {
		if got[key] != want {
			t.Errorf("Expected %s=%s, got %s", key, want, got[key])
		}
	}
}

func TestClear(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	c.Put("a", "1", 0)
	c.Put("b", "2", 0)

	if !c.Clear() {
		t.Fatal("Clear should succeed on a healthy cluster")
	}

	if _, found, _ := c.Get("a"); found {
		t.Error("Keys should be gone after Clear")
	}
}

func TestStatisticsAggregation(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	stats := c.Statistics()
	if stats.HitRatio != 0 {
		t.Errorf("Hit ratio should be 0 with no requests, got %f", stats.HitRatio)
	}

	c.Put("k", "v", 0)
	c.Get("k")       // hits on every queried replica
	c.Get("missing") // misses

	stats = c.Statistics()
	if stats.NodeCount != 3 {
		t.Errorf("Expected 3 nodes, got %d", stats.NodeCount)
	}
	if stats.PutCount == 0 || stats.HitCount == 0 || stats.MissCount == 0 {
		t.Errorf("Expected non-zero counters, got %+v", stats)
	}
	if stats.HitRatio <= 0 || stats.HitRatio > 1 {
		t.Errorf("Hit ratio out of range: %f", stats.HitRatio)
	}
}

func TestClusterInfo(t *testing.T) {
	cfg := testConfig()
	c := newTestCluster(t, cfg, 3)

	info := c.ClusterInfo()
	if info.NodeCount != 3 || len(info.Nodes) != 3 {
		t.Errorf("Expected 3 nodes, got count=%d len=%d", info.NodeCount, len(info.Nodes))
	}
	if info.ReplicationFactor != cfg.ReplicationFactor {
		t.Errorf("Expected replication factor %d, got %d", cfg.ReplicationFactor, info.ReplicationFactor)
	}
	if info.ConsistencyLevel != cfg.ConsistencyLevel {
		t.Errorf("Expected consistency level %s, got %s", cfg.ConsistencyLevel, info.ConsistencyLevel)
	}
}

func TestAddNodeGeneratesIDsAndRejectsDuplicates(t *testing.T) {
	c, err := New(testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	id, err := c.AddNode("127.0.0.1", 7070, "")
	if err != nil || id == "" {
		t.Fatalf("Expected generated id, got %q (err: %v)", id, err)
	}

	if _, err := c.AddNode("127.0.0.1", 7071, id); err == nil {
		t.Error("Expected error when adding a duplicate node id")
	}
}

func TestRemoveNode(t *testing.T) {
	c := newTestCluster(t, testConfig(), 3)

	if !c.RemoveNode("node-2") {
		t.Fatal("RemoveNode should return true for a member")
	}
	if c.RemoveNode("node-2") {
		t.Error("RemoveNode should return false for a non-member")
	}

	if got := c.ClusterInfo().NodeCount; got != 2 {
		t.Errorf("Expected 2 nodes after removal, got %d", got)
	}

	// The remaining replicas still satisfy QUORUM of min(factor, nodes)=2.
	if err := c.Put("k", "v", 0); err != nil {
		t.Errorf("Put after removal failed: %v", err)
	}
}

func TestHealthCheckFailsSilentNodes(t *testing.T) {
	cfg := testConfig()
	cfg.HealthCheckInterval = 25 * time.Millisecond

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, err := c.AddNode("127.0.0.1", 7070, "local-1"); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	// A remote member that never heartbeats.
	if err := c.JoinRemote("silent-1", "127.0.0.1:9999"); err != nil {
		t.Fatalf("JoinRemote failed: %v", err)
	}

	// Age the silent node past the 2x-interval cutoff and let the
	// checker run.
	time.Sleep(120 * time.Millisecond)

	var silent ring.NodeInfo
	for _, info := range c.Ring().Nodes() {
		if info.ID == "silent-1" {
			silent = info
		}
	}
	if silent.Status != ring.StatusFailed {
		t.Errorf("Silent node should be FAILED, got %s", silent.Status)
	}

	// The locally hosted node heartbeats through the checker and stays up.
	local, _ := c.Ring().Node("local-1")
	if local.Status != ring.StatusActive {
		t.Errorf("Local node should stay ACTIVE, got %s", local.Status)
	}
}
