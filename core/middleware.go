// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the middleware system, which allows cross-cutting concerns
// (logging, caching, metrics, etc.) to be applied around store operations.
package core

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Operation represents the type of store operation being executed.
//
// It is used within middlewares to distinguish between inserts, updates,
// deletes, and queries.
type Operation string

const (
	// OperationInsert corresponds to an insert (create) operation.
	OperationInsert Operation = "insert"
	// OperationUpdate corresponds to an update operation.
	OperationUpdate Operation = "update"
	// OperationDelete corresponds to a delete operation.
	OperationDelete Operation = "delete"
	// OperationFind corresponds to a query (find) operation.
	OperationFind Operation = "find"
	// OperationCount corresponds to a count operation.
	OperationCount Operation = "count"
)

// OperationInfo describes the store operation flowing through a middleware
// chain.
type OperationInfo struct {
	Op    Operation // operation kind
	Table string    // table the operation targets
}

// Handler is the function signature executed by the repository pipeline.
//
// Handlers are composed by middlewares to add cross-cutting logic around
// the actual store call.
type Handler func(ctx context.Context, info OperationInfo) error

// Middleware is a function that wraps a Handler with additional logic.
//
// Middlewares follow the decorator pattern and are chained per repository.
type Middleware func(next Handler) Handler

// chainMiddlewares applies the middleware list to the final handler.
// Middlewares run in registration order: the first registered sees the
// operation first.
func chainMiddlewares(middlewares []Middleware, final Handler) Handler {
	h := final
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// LoggingMiddleware logs every store operation with its elapsed time.
// Successful operations log at debug level, failures at error level.
// A nil logger falls back to slog.Default.
//
// Example:
//
//	repo := core.New(table, store,
//	    core.WithMiddleware(core.LoggingMiddleware(logger)))
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, info OperationInfo) error {
			start := time.Now()
			err := next(ctx, info)
			elapsed := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "store operation failed",
					"op", info.Op, "table", info.Table, "elapsed", elapsed, "error", err)
			} else {
				logger.DebugContext(ctx, "store operation",
					"op", info.Op, "table", info.Table, "elapsed", elapsed)
			}
			return err
		}
	}
}

// Cache defines the interface for pluggable caching of find results.
//
// The repository caches materialized documents keyed by table, finder
// kind, and query shape, and invalidates by table prefix after writes.
// The cache package provides a production implementation; NewMemoryCache
// is a dependency-free fallback.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	DeletePrefix(prefix string)
}

// memoryCache is a simple in-memory Cache implementation.
//
// It uses a map protected by a RWMutex and supports expiration.
type memoryCache struct {
	data  map[string]memoryEntry
	mutex sync.RWMutex
}

type memoryEntry struct {
	value      any
	expiration time.Time
}

// NewMemoryCache creates a new in-memory Cache instance.
func NewMemoryCache() Cache {
	return &memoryCache{
		data: make(map[string]memoryEntry),
	}
}

// Get retrieves a value from the cache by key.
// It returns false if the key does not exist or is expired.
func (c *memoryCache) Get(key string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if !entry.expiration.IsZero() && time.Now().After(entry.expiration) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value in the cache with the given TTL (time-to-live).
// If TTL is 0, the entry does not expire.
func (c *memoryCache) Set(key string, value any, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.data[key] = memoryEntry{value: value, expiration: exp}
}

// Delete removes one entry.
func (c *memoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.data, key)
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *memoryCache) DeletePrefix(prefix string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
}
