// Package config provides configuration management for RepliKV server and cluster components.
//
// The package supports configuration through multiple sources with the following precedence:
//  1. Command-line flags (highest priority, server settings only)
//  2. Environment variables
//  3. A .env file in the working directory (loaded via godotenv)
//  4. Default values (lowest priority)
//
// Cluster configuration covers the placement-and-consistency engine:
//   - Per-node memory budget and eviction policy
//   - Replication factor and consistency level
//   - Virtual node count for the consistent hash ring
//   - Default TTL and background reclamation interval
//   - Health checking and per-replica operation timeouts
//
// Example usage:
//
//	cfg := config.LoadCacheConfig()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//	coord := cluster.New(cfg)
//
// Environment variables are prefixed with "REPLIKV_" and use uppercase names.
// For example, the consistency level can be set with REPLIKV_CONSISTENCY_LEVEL=QUORUM.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default cluster configuration constants.
const (
	DefaultMaxMemory           = 64 * 1024 * 1024 // 64 MiB per node
	DefaultReplicationFactor   = 3
	DefaultVirtualNodes        = 150
	DefaultHealthCheckInterval = 5 * time.Second
	DefaultReaperInterval      = time.Minute
	DefaultReadTimeout         = 2 * time.Second
	DefaultWriteTimeout        = 2 * time.Second
	DefaultServerPort          = 7070
)

// Eviction policy names accepted by CacheConfig.EvictionPolicy.
const (
	EvictLRU    = "LRU"
	EvictLFU    = "LFU"
	EvictTTL    = "TTL"
	EvictFIFO   = "FIFO"
	EvictRandom = "RANDOM"
)

// Consistency level names accepted by CacheConfig.ConsistencyLevel.
const (
	ConsistencyOne         = "ONE"
	ConsistencyQuorum      = "QUORUM"
	ConsistencyAll         = "ALL"
	ConsistencyLocalQuorum = "LOCAL_QUORUM"
)

// Replication strategy names accepted by CacheConfig.ReplicationStrategy.
// Only SYNC has normative behavior; ASYNC and HYBRID are accepted for
// forward compatibility and currently behave identically to SYNC.
const (
	ReplicationSync   = "SYNC"
	ReplicationAsync  = "ASYNC"
	ReplicationHybrid = "HYBRID"
)

// CacheConfig holds all configuration options for a RepliKV cluster coordinator.
// It is immutable after cluster start: every component reads it, none mutates it.
//
// Configuration sources (in order of precedence):
//  1. Environment variables: REPLIKV_MAX_MEMORY, REPLIKV_CONSISTENCY_LEVEL, etc.
//  2. A .env file in the working directory
//  3. Default values
//
// Example:
//
//	cfg := &config.CacheConfig{
//		MaxMemory:         32 * 1024 * 1024,
//		EvictionPolicy:    config.EvictLRU,
//		ReplicationFactor: 3,
//		ConsistencyLevel:  config.ConsistencyQuorum,
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
type CacheConfig struct {
	EvictionPolicy      string        // Eviction policy: LRU, LFU, TTL, FIFO, RANDOM (default: LRU)
	ConsistencyLevel    string        // Consistency level: ONE, QUORUM, ALL, LOCAL_QUORUM (default: QUORUM)
	ReplicationStrategy string        // Replication strategy: SYNC, ASYNC, HYBRID (default: SYNC)
	MaxMemory           int64         // Memory budget per node in bytes (default: 64 MiB)
	ReplicationFactor   int           // Number of replicas per key (default: 3)
	VirtualNodes        int           // Virtual ring positions per node (default: 150)
	DefaultTTL          time.Duration // TTL applied when a put specifies none (default: 0, no expiry)
	HealthCheckInterval time.Duration // Interval between health scans (default: 5s)
	ReaperInterval      time.Duration // Interval between expired-entry sweeps (default: 1m)
	ReadTimeout         time.Duration // Per-replica read timeout (default: 2s)
	WriteTimeout        time.Duration // Per-replica write timeout (default: 2s)
}

// ServerConfig holds configuration for a RepliKV node server instance.
// It covers network binding and logging; cache behavior comes from CacheConfig.
type ServerConfig struct {
	Host     string // Host address to bind to (default: "0.0.0.0")
	LogLevel string // Log level: debug, info, warn, error (default: "info")
	Port     int    // HTTP port to listen on (default: 7070)
}

// DefaultCacheConfig returns a CacheConfig populated with the package defaults.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		MaxMemory:           DefaultMaxMemory,
		EvictionPolicy:      EvictLRU,
		ReplicationFactor:   DefaultReplicationFactor,
		ConsistencyLevel:    ConsistencyQuorum,
		ReplicationStrategy: ReplicationSync,
		VirtualNodes:        DefaultVirtualNodes,
		DefaultTTL:          0,
		HealthCheckInterval: DefaultHealthCheckInterval,
		ReaperInterval:      DefaultReaperInterval,
		ReadTimeout:         DefaultReadTimeout,
		WriteTimeout:        DefaultWriteTimeout,
	}
}

// LoadCacheConfig creates a CacheConfig by loading values from a .env file
// (if present) and environment variables, with sensible defaults.
//
// Environment variables:
//
//	REPLIKV_MAX_MEMORY: Memory budget per node in bytes
//	REPLIKV_EVICTION_POLICY: LRU, LFU, TTL, FIFO or RANDOM
//	REPLIKV_REPLICATION_FACTOR: Number of replicas per key
//	REPLIKV_CONSISTENCY_LEVEL: ONE, QUORUM, ALL or LOCAL_QUORUM
//	REPLIKV_REPLICATION_STRATEGY: SYNC, ASYNC or HYBRID
//	REPLIKV_VIRTUAL_NODES: Virtual ring positions per node
//	REPLIKV_DEFAULT_TTL: Default TTL as a Go duration, e.g. "5m"
//	REPLIKV_HEALTH_CHECK_INTERVAL: Health scan interval as a Go duration
//	REPLIKV_REAPER_INTERVAL: Expired-entry sweep interval as a Go duration
//	REPLIKV_READ_TIMEOUT: Per-replica read timeout as a Go duration
//	REPLIKV_WRITE_TIMEOUT: Per-replica write timeout as a Go duration
//
// Returns:
//   - CacheConfig with values loaded from the environment and defaults
func LoadCacheConfig() *CacheConfig {
	// Missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	cfg := DefaultCacheConfig()

	if v := os.Getenv("REPLIKV_MAX_MEMORY"); v != "" {
		if m, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxMemory = m
		}
	}

	if v := os.Getenv("REPLIKV_EVICTION_POLICY"); v != "" {
		cfg.EvictionPolicy = v
	}

	if v := os.Getenv("REPLIKV_REPLICATION_FACTOR"); v != "" {
		if r, err := strconv.Atoi(v); err == nil {
			cfg.ReplicationFactor = r
		}
	}

	if v := os.Getenv("REPLIKV_CONSISTENCY_LEVEL"); v != "" {
		cfg.ConsistencyLevel = v
	}

	if v := os.Getenv("REPLIKV_REPLICATION_STRATEGY"); v != "" {
		cfg.ReplicationStrategy = v
	}

	if v := os.Getenv("REPLIKV_VIRTUAL_NODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VirtualNodes = n
		}
	}

	if v := os.Getenv("REPLIKV_DEFAULT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DefaultTTL = d
		}
	}

	if v := os.Getenv("REPLIKV_HEALTH_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HealthCheckInterval = d
		}
	}

	if v := os.Getenv("REPLIKV_REAPER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReaperInterval = d
		}
	}

	if v := os.Getenv("REPLIKV_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReadTimeout = d
		}
	}

	if v := os.Getenv("REPLIKV_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WriteTimeout = d
		}
	}

	return cfg
}

// LoadServerConfig creates a ServerConfig by loading values from command-line
// flags and environment variables, with sensible defaults.
//
// Command-line flags:
//
//	-port: Server port (default: 7070)
//	-host: Server host (default: "0.0.0.0")
//	-log-level: Log level (default: "info")
//
// Environment variables:
//
//	REPLIKV_PORT: Server port
//	REPLIKV_HOST: Server host
//	REPLIKV_LOG_LEVEL: Log level
func LoadServerConfig() *ServerConfig {
	cfg := &ServerConfig{
		Host:     "0.0.0.0",
		Port:     DefaultServerPort,
		LogLevel: "info",
	}

	flag.IntVar(&cfg.Port, "port", cfg.Port, "Server port")
	flag.StringVar(&cfg.Host, "host", cfg.Host, "Server host")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.Parse()

	if port := os.Getenv("REPLIKV_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}

	if host := os.Getenv("REPLIKV_HOST"); host != "" {
		cfg.Host = host
	}

	if level := os.Getenv("REPLIKV_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}

// Address returns the full address string for the server to bind to.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the ServerConfig contains valid values.
//
// Validation rules:
//   - Port must be between 1 and 65535
//   - LogLevel must be one of: debug, info, warn, error
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// Validate checks if the CacheConfig contains valid values.
// It verifies that all numeric values are within acceptable ranges
// and that string values are from valid sets.
//
// Validation rules:
//   - MaxMemory must be positive
//   - EvictionPolicy must be one of: LRU, LFU, TTL, FIFO, RANDOM
//   - ReplicationFactor must be positive
//   - ConsistencyLevel must be one of: ONE, QUORUM, ALL, LOCAL_QUORUM
//   - ReplicationStrategy must be one of: SYNC, ASYNC, HYBRID
//   - VirtualNodes must be positive
//   - DefaultTTL must be non-negative
//   - HealthCheckInterval, ReaperInterval, ReadTimeout and WriteTimeout must be positive
func (c *CacheConfig) Validate() error {
	if c.MaxMemory < 1 {
		return fmt.Errorf("max memory must be positive: %d", c.MaxMemory)
	}

	validPolicies := map[string]bool{
		EvictLRU:    true,
		EvictLFU:    true,
		EvictTTL:    true,
		EvictFIFO:   true,
		EvictRandom: true,
	}
	if !validPolicies[c.EvictionPolicy] {
		return fmt.Errorf("invalid eviction policy: %s", c.EvictionPolicy)
	}

	if c.ReplicationFactor < 1 {
		return fmt.Errorf("replication factor must be positive: %d", c.ReplicationFactor)
	}

	validLevels := map[string]bool{
		ConsistencyOne:         true,
		ConsistencyQuorum:      true,
		ConsistencyAll:         true,
		ConsistencyLocalQuorum: true,
	}
	if !validLevels[c.ConsistencyLevel] {
		return fmt.Errorf("invalid consistency level: %s", c.ConsistencyLevel)
	}

	validStrategies := map[string]bool{
		ReplicationSync:   true,
		ReplicationAsync:  true,
		ReplicationHybrid: true,
	}
	if !validStrategies[c.ReplicationStrategy] {
		return fmt.Errorf("invalid replication strategy: %s", c.ReplicationStrategy)
	}

	if c.VirtualNodes < 1 {
		return fmt.Errorf("virtual nodes must be positive: %d", c.VirtualNodes)
	}

	if c.DefaultTTL < 0 {
		return fmt.Errorf("default TTL must be non-negative: %v", c.DefaultTTL)
	}

	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive: %v", c.HealthCheckInterval)
	}

	if c.ReaperInterval <= 0 {
		return fmt.Errorf("reaper interval must be positive: %v", c.ReaperInterval)
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive: %v", c.ReadTimeout)
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive: %v", c.WriteTimeout)
	}

	return nil
}
