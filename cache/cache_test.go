package cache_test

import (
	"testing"
	"time"

	"github.com/tabula-io/tabula/cache"
)

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestNew(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*cache.Config)
	}{
		{"zero capacity", func(c *cache.Config) { c.Capacity = 0 }},
		{"zero shards", func(c *cache.Config) { c.NumShards = 0 }},
		{"zero ttl", func(c *cache.Config) { c.TTL = 0 }},
		{"negative eviction", func(c *cache.Config) { c.EvictionPercentage = -1 }},
		{"eviction above 100", func(c *cache.Config) { c.EvictionPercentage = 101 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := cache.DefaultConfig()
			tc.mutate(&cfg)
			if _, err := cache.New(cfg); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}

	t.Run("default config is valid", func(t *testing.T) {
		if _, err := cache.New(cache.DefaultConfig()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestCache(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		c := newCache(t)
		c.Set("posts::all::-", []string{"a"}, time.Minute)
		value, ok := c.Get("posts::all::-")
		if !ok {
			t.Fatal("expected a hit")
		}
		if docs, _ := value.([]string); len(docs) != 1 || docs[0] != "a" {
			t.Fatalf("expected the stored value, got %v", value)
		}
	})

	t.Run("miss", func(t *testing.T) {
		c := newCache(t)
		if _, ok := c.Get("absent"); ok {
			t.Fatal("expected a miss")
		}
	})

	t.Run("delete", func(t *testing.T) {
		c := newCache(t)
		c.Set("k", 1, time.Minute)
		c.Delete("k")
		if _, ok := c.Get("k"); ok {
			t.Fatal("expected the entry to be gone")
		}
	})

	t.Run("delete prefix drops only the table's entries", func(t *testing.T) {
		c := newCache(t)
		c.Set("posts::all::-", 1, time.Minute)
		c.Set("posts::first::-", 2, time.Minute)
		c.Set("tags::all::-", 3, time.Minute)

		c.DeletePrefix("posts::")

		if _, ok := c.Get("posts::all::-"); ok {
			t.Fatal("expected posts entries to be gone")
		}
		if _, ok := c.Get("posts::first::-"); ok {
			t.Fatal("expected posts entries to be gone")
		}
		if _, ok := c.Get("tags::all::-"); !ok {
			t.Fatal("expected tags entries to survive")
		}
	})
}
