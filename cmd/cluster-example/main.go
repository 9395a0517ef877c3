package main

import (
	"fmt"
	"log"
	"time"

	"github.com/replikv/replikv/pkg/cluster"
	"github.com/replikv/replikv/pkg/config"
	"github.com/replikv/replikv/pkg/ring"
)

func main() {
	cfg := config.DefaultCacheConfig()

	coord, err := cluster.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create cluster: %v", err)
	}
	defer coord.Close()

	fmt.Println("=== RepliKV Cluster Example ===")

	for i := 1; i <= 3; i++ {
		id, err := coord.AddNode("127.0.0.1", 7070+i, "")
		if err != nil {
			log.Fatalf("Failed to add node: %v", err)
		}
		fmt.Printf("✓ Added node %s\n", id)
	}

	fmt.Println("\n--- Replicated Writes and Reads ---")

	if err := coord.Put("user:1", "john_doe", 0); err != nil {
		log.Printf("PUT failed: %v", err)
	} else {
		fmt.Println("✓ PUT user:1 = john_doe (QUORUM)")
	}

	if value, found, err := coord.Get("user:1"); err != nil {
		log.Printf("GET failed: %v", err)
	} else {
		fmt.Printf("✓ GET user:1 = %s (found: %t)\n", value, found)
	}

	if exists, err := coord.Exists("user:1"); err != nil {
		log.Printf("EXISTS failed: %v", err)
	} else {
		fmt.Printf("✓ EXISTS user:1 = %t\n", exists)
	}

	fmt.Println("\n--- Counter Operations ---")

	for i := 0; i < 3; i++ {
		if value, err := coord.Increment("page:views"); err != nil {
			log.Printf("INCREMENT failed: %v", err)
		} else {
			fmt.Printf("✓ INCREMENT page:views = %d\n", value)
		}
	}

	if value, err := coord.Decrement("page:views"); err != nil {
		log.Printf("DECREMENT failed: %v", err)
	} else {
		fmt.Printf("✓ DECREMENT page:views = %d\n", value)
	}

	fmt.Println("\n--- Expiration ---")

	if err := coord.Put("session:abc", "active", 2*time.Second); err != nil {
		log.Printf("PUT with TTL failed: %v", err)
	} else {
		fmt.Println("✓ PUT session:abc with 2s TTL")
	}

	fmt.Println("\n--- Batch Operations ---")

	entries := map[string]string{
		"color:1": "red",
		"color:2": "green",
		"color:3": "blue",
	}
	if coord.PutMultiple(entries, 0) {
		fmt.Printf("✓ PUT_MULTIPLE stored %d entries\n", len(entries))
	}

	values := coord.GetMultiple([]string{"color:1", "color:2", "color:3"})
	fmt.Printf("✓ GET_MULTIPLE = %v\n", values)

	fmt.Println("\n--- Node Failure ---")

	info := coord.ClusterInfo()
	victim := info.Nodes[0].ID
	coord.Ring().SetStatus(victim, ring.StatusFailed)
	fmt.Printf("✓ Marked %s as FAILED\n", victim)

	// Two of three replicas still satisfy QUORUM.
	if value, found, err := coord.Get("user:1"); err != nil {
		log.Printf("GET after failure failed: %v", err)
	} else {
		fmt.Printf("✓ GET user:1 survives one failure = %s (found: %t)\n", value, found)
	}

	coord.Ring().SetStatus(victim, ring.StatusActive)

	fmt.Println("\n--- Cluster State ---")

	stats := coord.Statistics()
	fmt.Printf("✓ Hits: %d, Misses: %d, Hit ratio: %.2f\n", stats.HitCount, stats.MissCount, stats.HitRatio)
	fmt.Printf("✓ Memory: %d bytes across %d nodes\n", stats.MemoryUsage, stats.NodeCount)

	info = coord.ClusterInfo()
	fmt.Printf("✓ Replication factor %d, consistency %s, %d virtual nodes per member\n",
		info.ReplicationFactor, info.ConsistencyLevel, info.VirtualNodesPerNode)

	fmt.Println("\n=== Example Complete ===")
}
