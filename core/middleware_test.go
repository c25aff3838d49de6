package core_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/tabula-io/tabula/core"
)

func TestMiddlewareChain(t *testing.T) {
	t.Run("middlewares wrap every store operation in order", func(t *testing.T) {
		var order []string
		tag := func(name string) core.Middleware {
			return func(next core.Handler) core.Handler {
				return func(ctx context.Context, info core.OperationInfo) error {
					order = append(order, name)
					return next(ctx, info)
				}
			}
		}

		repo := core.New(postsTable(), newMockStore(), core.WithMiddleware(tag("outer"), tag("inner")))
		if _, err := repo.Count(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
			t.Fatalf("expected [outer inner], got %v", order)
		}
	})

	t.Run("middlewares see the operation info", func(t *testing.T) {
		var seen []core.OperationInfo
		spy := func(next core.Handler) core.Handler {
			return func(ctx context.Context, info core.OperationInfo) error {
				seen = append(seen, info)
				return next(ctx, info)
			}
		}

		store := newMockStore()
		table := postsTable()
		repo := core.New(table, store, core.WithMiddleware(spy))

		ctx := context.Background()
		if _, err := repo.Save(ctx, core.NewEntity().Set("title", "Hello")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entity := existingEntity(table, core.Document{"_id": "abc"})
		repo.Delete(ctx, entity)

		if len(seen) != 2 {
			t.Fatalf("expected 2 operations, got %d", len(seen))
		}
		if seen[0].Op != core.OperationInsert || seen[1].Op != core.OperationDelete {
			t.Fatalf("expected insert then delete, got %v", seen)
		}
		if seen[0].Table != "posts" {
			t.Fatalf("expected table posts, got %q", seen[0].Table)
		}
	})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	repo := core.New(postsTable(), newMockStore(),
		core.WithMiddleware(core.LoggingMiddleware(logger)))

	if _, err := repo.Count(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("store operation")) {
		t.Fatalf("expected a store operation log line, got %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("op=count")) {
		t.Fatalf("expected the operation kind in the log, got %q", out)
	}
}

func TestMemoryCache(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		cache := core.NewMemoryCache()
		cache.Set("k", "v", 0)
		if value, ok := cache.Get("k"); !ok || value != "v" {
			t.Fatalf("expected v, got %v (%v)", value, ok)
		}
	})

	t.Run("missing keys", func(t *testing.T) {
		cache := core.NewMemoryCache()
		if _, ok := cache.Get("absent"); ok {
			t.Fatal("expected a miss")
		}
	})

	t.Run("entries expire", func(t *testing.T) {
		cache := core.NewMemoryCache()
		cache.Set("k", "v", time.Nanosecond)
		time.Sleep(5 * time.Millisecond)
		if _, ok := cache.Get("k"); ok {
			t.Fatal("expected the entry to expire")
		}
	})

	t.Run("delete removes one entry", func(t *testing.T) {
		cache := core.NewMemoryCache()
		cache.Set("k", "v", 0)
		cache.Delete("k")
		if _, ok := cache.Get("k"); ok {
			t.Fatal("expected the entry to be gone")
		}
	})

	t.Run("delete prefix removes matching entries only", func(t *testing.T) {
		cache := core.NewMemoryCache()
		cache.Set("posts::all", 1, 0)
		cache.Set("posts::first", 2, 0)
		cache.Set("tags::all", 3, 0)

		cache.DeletePrefix("posts::")

		if _, ok := cache.Get("posts::all"); ok {
			t.Fatal("expected posts entries to be gone")
		}
		if _, ok := cache.Get("tags::all"); !ok {
			t.Fatal("expected tags entries to survive")
		}
	})
}
