// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the Store contract that every backend driver satisfies.
package core

import "context"

// WriteResult reports the outcome of an insert or update.
type WriteResult struct {
	Ok bool  // store acknowledgment, false turns the save into a soft failure
	N  int64 // documents touched, when the store reports it
}

// Cursor walks documents returned by a find. Callers must Close it and
// check Err after iteration.
//
// Example:
//
//	cursor, err := store.Find(ctx, "posts", where)
//	if err != nil {
//	    return err
//	}
//	defer cursor.Close(ctx)
//	for cursor.Next(ctx) {
//	    doc := cursor.Document()
//	    // ...
//	}
//	return cursor.Err()
type Cursor interface {
	// Next advances to the next document, reporting false when exhausted
	// or on error.
	Next(ctx context.Context) bool
	// Document returns the current document. Only valid after a true Next.
	Document() Document
	// Err returns the first error hit while iterating.
	Err() error
	// Close releases resources held by the cursor.
	Close(ctx context.Context) error
}

// Store is the persistence contract a backend driver satisfies. Drivers
// translate conditions and queries into their native syntax; they never
// see entities, only documents.
type Store interface {
	// Insert persists a new document.
	Insert(ctx context.Context, table string, doc Document) (WriteResult, error)
	// Update applies the document's fields to every document matching the
	// condition.
	Update(ctx context.Context, table string, condition *Condition, doc Document) (WriteResult, error)
	// Remove deletes every document matching the condition and reports
	// whether the store acknowledged the operation.
	Remove(ctx context.Context, table string, condition *Condition) (bool, error)
	// Find returns a cursor over the documents matching the query.
	Find(ctx context.Context, table string, where *Where) (Cursor, error)
	// Count returns the number of documents matching the condition.
	Count(ctx context.Context, table string, condition *Condition) (int64, error)
}

// Connector is the optional lifecycle contract for drivers holding real
// connections.
type Connector interface {
	// Connect establishes the connection to the backing store.
	Connect(ctx context.Context) error
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close(ctx context.Context) error
}

// SliceCursor adapts an in-memory document slice to the Cursor contract.
// Drivers that materialize results eagerly return one of these.
type SliceCursor struct {
	docs []Document
	pos  int
}

var _ Cursor = (*SliceCursor)(nil)

// NewSliceCursor wraps the given documents in a cursor.
func NewSliceCursor(docs []Document) *SliceCursor {
	return &SliceCursor{docs: docs, pos: -1}
}

// Next advances the cursor, reporting false once the slice is exhausted.
func (c *SliceCursor) Next(_ context.Context) bool {
	if c.pos+1 >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

// Document returns the current document, or nil before the first Next.
func (c *SliceCursor) Document() Document {
	if c.pos < 0 || c.pos >= len(c.docs) {
		return nil
	}
	return c.docs[c.pos]
}

// Err always returns nil: slice iteration cannot fail.
func (c *SliceCursor) Err() error { return nil }

// Close is a no-op for slice-backed cursors.
func (c *SliceCursor) Close(_ context.Context) error { return nil }
