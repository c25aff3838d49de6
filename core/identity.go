// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines primary key generation for new documents.
package core

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrimaryKey maps key field names to their values. A single-field key has
// exactly one entry; a nil PrimaryKey means no key was generated.
type PrimaryKey map[string]any

// IdentityGenerator produces primary keys for documents about to be
// inserted. Keys are 24-character lowercase hex ObjectID values, unique
// across the generator's lifetime. Generation is suppressed for composite
// keys: those must be assigned by the caller.
//
// Example:
//
//	gen := core.NewIdentityGenerator()
//	key := gen.Generate([]string{"_id"})
//	// key == PrimaryKey{"_id": "64f1c0e2a9b3d4e5f6a7b8c9"}
type IdentityGenerator struct {
	mutex  sync.Mutex
	issued map[string]struct{}
}

// NewIdentityGenerator creates a generator with an empty issued set.
func NewIdentityGenerator() *IdentityGenerator {
	return &IdentityGenerator{issued: make(map[string]struct{})}
}

// Generate returns a fresh key for the given key fields, or nil when the
// table declares zero or more than one key field. The same value is never
// issued twice by one generator.
func (g *IdentityGenerator) Generate(primaryKeyFields []string) PrimaryKey {
	if len(primaryKeyFields) != 1 {
		return nil
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()
	for {
		id := primitive.NewObjectID().Hex()
		if _, dup := g.issued[id]; dup {
			continue
		}
		g.issued[id] = struct{}{}
		return PrimaryKey{primaryKeyFields[0]: id}
	}
}
