// Package cache provides a sharded in-memory cache for find results,
// backed by sturdyc and satisfying the core.Cache contract.
package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/tabula-io/tabula/core"
)

// Config holds the cache sizing knobs.
type Config struct {
	Capacity           int           // maximum number of entries
	NumShards          int           // shards for the underlying cache
	TTL                time.Duration // lifetime of every entry
	EvictionPercentage int           // share of a full shard evicted at once
}

// DefaultConfig returns sizing suitable for a single-process deployment.
func DefaultConfig() Config {
	return Config{
		Capacity:           10_000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("cache: capacity must be greater than 0, got %d", c.Capacity)
	}
	if c.NumShards <= 0 {
		return fmt.Errorf("cache: number of shards must be greater than 0, got %d", c.NumShards)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("cache: ttl must be greater than 0, got %s", c.TTL)
	}
	if c.EvictionPercentage < 0 || c.EvictionPercentage > 100 {
		return fmt.Errorf("cache: eviction percentage must be between 0 and 100, got %d", c.EvictionPercentage)
	}
	return nil
}

// Cache adapts a sturdyc client to the core.Cache contract. Entry TTL is
// fixed at construction; the per-call ttl argument is ignored.
type Cache struct {
	client *sturdyc.Client[any]
}

var _ core.Cache = (*Cache)(nil)

// New builds a cache from the given configuration.
func New(cfg Config) (*Cache, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[any](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage)
	return &Cache{client: client}, nil
}

// Get returns the cached value for key, if present and fresh.
func (c *Cache) Get(key string) (any, bool) {
	return c.client.Get(key)
}

// Set stores a value under key with the configured TTL.
func (c *Cache) Set(key string, value any, _ time.Duration) {
	c.client.Set(key, value)
}

// Delete removes one entry.
func (c *Cache) Delete(key string) {
	c.client.Delete(key)
}

// DeletePrefix removes every entry whose key starts with prefix. The
// repository uses it to drop a table's entries after a write.
func (c *Cache) DeletePrefix(prefix string) {
	for _, key := range c.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			c.client.Delete(key)
		}
	}
}

// Size reports the number of live entries.
func (c *Cache) Size() int {
	return c.client.Size()
}
