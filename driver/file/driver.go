// Package driver implements the JSON-file store: a single document file
// guarded by a cross-process file lock, suitable for CLI and single-host
// workloads.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/tabula-io/tabula/core"
	memdriver "github.com/tabula-io/tabula/driver/memory"
)

const (
	storeVersion  = "1.0"
	lockTimeout   = 3 * time.Second
	lockRetryWait = 100 * time.Millisecond
)

// storeMetadata travels with the data file and identifies its format.
type storeMetadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// storeData is the full on-disk document: every table plus metadata.
type storeData struct {
	Tables   map[string][]core.Document `json:"tables"`
	Metadata storeMetadata              `json:"metadata"`
}

// FileStore persists all tables in one JSON file. Every operation takes a
// cross-process file lock, reloads the file, and, for writes, persists it
// back atomically via a temp-file rename. Concurrent processes therefore
// always see each other's writes.
//
// Example:
//
//	store, err := driver.NewFileStore("tabula.json")
//	if err != nil {
//	    return err
//	}
//	repo := core.New(core.NewTable("posts", "_id"), store)
type FileStore struct {
	path     string
	fileLock *flock.Flock
	mutex    sync.Mutex
	data     *storeData
}

var (
	_ core.Store     = (*FileStore)(nil)
	_ core.Connector = (*FileStore)(nil)
)

// NewFileStore opens or initializes the store at path. The lock file lives
// next to the data file with a .lock suffix.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store: path is empty")
	}
	s := &FileStore{
		path:     path,
		fileLock: flock.New(path + ".lock"),
	}
	if err := s.withLock(context.Background(), func() error { return s.load() }); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect is a no-op: the file was validated at construction.
func (s *FileStore) Connect(_ context.Context) error { return nil }

// Ping reloads the file, verifying it is still readable and well-formed.
func (s *FileStore) Ping(ctx context.Context) error {
	return s.withLock(ctx, func() error { return s.load() })
}

// Close is a no-op: no handle outlives an operation.
func (s *FileStore) Close(_ context.Context) error { return nil }

// Insert appends the document to the table and persists the file.
func (s *FileStore) Insert(ctx context.Context, table string, doc core.Document) (core.WriteResult, error) {
	err := s.withLock(ctx, func() error {
		if err := s.load(); err != nil {
			return err
		}
		s.data.Tables[table] = append(s.data.Tables[table], doc.Clone())
		return s.persist()
	})
	if err != nil {
		return core.WriteResult{}, err
	}
	return core.WriteResult{Ok: true, N: 1}, nil
}

// Update merges the document's fields into every matching document.
func (s *FileStore) Update(ctx context.Context, table string, condition *core.Condition, doc core.Document) (core.WriteResult, error) {
	var n int64
	err := s.withLock(ctx, func() error {
		if err := s.load(); err != nil {
			return err
		}
		for i, existing := range s.data.Tables[table] {
			if !memdriver.Match(existing, condition) {
				continue
			}
			merged := existing.Clone()
			for field, value := range doc {
				merged[field] = value
			}
			s.data.Tables[table][i] = merged
			n++
		}
		if n == 0 {
			return nil
		}
		return s.persist()
	})
	if err != nil {
		return core.WriteResult{}, err
	}
	return core.WriteResult{Ok: true, N: n}, nil
}

// Remove drops every matching document. The write is acknowledged even
// when nothing matched.
func (s *FileStore) Remove(ctx context.Context, table string, condition *core.Condition) (bool, error) {
	err := s.withLock(ctx, func() error {
		if err := s.load(); err != nil {
			return err
		}
		var removed int
		kept := s.data.Tables[table][:0]
		for _, doc := range s.data.Tables[table] {
			if memdriver.Match(doc, condition) {
				removed++
				continue
			}
			kept = append(kept, doc)
		}
		s.data.Tables[table] = kept
		if removed == 0 {
			return nil
		}
		return s.persist()
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Find reloads the file and shapes the result in process.
func (s *FileStore) Find(ctx context.Context, table string, where *core.Where) (core.Cursor, error) {
	var out []core.Document
	err := s.withLock(ctx, func() error {
		if err := s.load(); err != nil {
			return err
		}
		matched := memdriver.ApplyWhere(s.data.Tables[table], where)
		out = make([]core.Document, len(matched))
		for i, doc := range matched {
			out[i] = doc.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return core.NewSliceCursor(out), nil
}

// Count returns the number of matching documents.
func (s *FileStore) Count(ctx context.Context, table string, condition *core.Condition) (int64, error) {
	var n int64
	err := s.withLock(ctx, func() error {
		if err := s.load(); err != nil {
			return err
		}
		for _, doc := range s.data.Tables[table] {
			if memdriver.Match(doc, condition) {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// withLock serializes an operation behind the in-process mutex and the
// cross-process file lock.
func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer s.fileLock.Unlock()
	return fn()
}

func (s *FileStore) acquireLock(ctx context.Context) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := s.fileLock.TryLockContext(lockCtx, lockRetryWait)
	if err != nil {
		return fmt.Errorf("file store: acquire lock for %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("file store: lock for %s not acquired within %s", s.path, lockTimeout)
	}
	return nil
}

// load reads the data file, initializing a fresh store when it is absent.
func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		now := time.Now().UTC()
		s.data = &storeData{
			Tables:   make(map[string][]core.Document),
			Metadata: storeMetadata{Version: storeVersion, CreatedAt: now, UpdatedAt: now},
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("file store: read %s: %w", s.path, err)
	}
	var data storeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("file store: decode %s: %w", s.path, err)
	}
	if data.Tables == nil {
		data.Tables = make(map[string][]core.Document)
	}
	s.data = &data
	return nil
}

// persist writes the data file atomically: full marshal to a temp file in
// the same directory, then rename over the target.
func (s *FileStore) persist() error {
	s.data.Metadata.UpdatedAt = time.Now().UTC()
	if s.data.Metadata.Version == "" {
		s.data.Metadata.Version = storeVersion
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode %s: %w", s.path, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("file store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("file store: replace %s: %w", s.path, err)
	}
	return nil
}
