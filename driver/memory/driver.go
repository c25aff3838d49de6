// Package driver implements the in-memory store, the reference backend
// used for tests and as the matching engine shared with other drivers.
package driver

import (
	"context"
	"sync"

	"github.com/tabula-io/tabula/core"
)

// MemoryStore keeps every table as a document slice guarded by one lock.
// It is safe for concurrent use and needs no external process.
//
// Example:
//
//	store := driver.NewMemoryStore()
//	repo := core.New(core.NewTable("posts", "_id"), store)
type MemoryStore struct {
	mutex  sync.RWMutex
	tables map[string][]core.Document
}

var (
	_ core.Store     = (*MemoryStore)(nil)
	_ core.Connector = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]core.Document)}
}

// Connect is a no-op: the store lives in process memory.
func (s *MemoryStore) Connect(_ context.Context) error { return nil }

// Ping is a no-op.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close(_ context.Context) error { return nil }

// Insert appends a copy of the document to the table.
func (s *MemoryStore) Insert(_ context.Context, table string, doc core.Document) (core.WriteResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tables[table] = append(s.tables[table], doc.Clone())
	return core.WriteResult{Ok: true, N: 1}, nil
}

// Update merges the document's fields into every matching document.
func (s *MemoryStore) Update(_ context.Context, table string, condition *core.Condition, doc core.Document) (core.WriteResult, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var n int64
	for i, existing := range s.tables[table] {
		if !Match(existing, condition) {
			continue
		}
		merged := existing.Clone()
		for field, value := range doc {
			merged[field] = value
		}
		s.tables[table][i] = merged
		n++
	}
	return core.WriteResult{Ok: true, N: n}, nil
}

// Remove drops every matching document. The write is always acknowledged,
// even when nothing matched.
func (s *MemoryStore) Remove(_ context.Context, table string, condition *core.Condition) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	kept := s.tables[table][:0]
	for _, doc := range s.tables[table] {
		if !Match(doc, condition) {
			kept = append(kept, doc)
		}
	}
	s.tables[table] = kept
	return true, nil
}

// Find filters, sorts, paginates, and projects in process, returning
// detached copies of the matching documents.
func (s *MemoryStore) Find(_ context.Context, table string, where *core.Where) (core.Cursor, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	matched := ApplyWhere(s.tables[table], where)
	out := make([]core.Document, len(matched))
	for i, doc := range matched {
		out[i] = doc.Clone()
	}
	return core.NewSliceCursor(out), nil
}

// Count returns the number of matching documents.
func (s *MemoryStore) Count(_ context.Context, table string, condition *core.Condition) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var n int64
	for _, doc := range s.tables[table] {
		if Match(doc, condition) {
			n++
		}
	}
	return n, nil
}
