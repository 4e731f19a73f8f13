// Package cache implements the tiered price cache: a sharded in-memory L1
// with request coalescing, optionally backed by a Redis L2 shared between
// instances.
package cache

import (
	"time"
)

// Config holds price cache configuration
type Config struct {
	// L1TTL bounds how long an in-process entry is served. It also bounds
	// how stale a time-windowed rule can appear, since the lookup
	// fingerprint carries no timestamp.
	L1TTL time.Duration
	// L2TTL bounds the shared Redis entries
	L2TTL time.Duration
	// Shards is the number of L1 shards
	Shards int
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		L1TTL:  60 * time.Second,
		L2TTL:  5 * time.Minute,
		Shards: 64,
	}
}

func (c Config) withDefaults() Config {
	out := c
	if out.L1TTL <= 0 {
		out.L1TTL = 60 * time.Second
	}
	if out.L2TTL <= 0 {
		out.L2TTL = 5 * time.Minute
	}
	if out.Shards <= 0 {
		out.Shards = 64
	}
	return out
}
