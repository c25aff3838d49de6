// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the application rule checking contract.
package core

import "context"

// Mode tells a rule checker whether the entity is being created or updated.
type Mode int

const (
	// ModeCreate marks the first persist of a new entity.
	ModeCreate Mode = iota + 1
	// ModeUpdate marks a persist of an existing entity.
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// RuleChecker validates an entity against application rules before it is
// persisted. A false return aborts the save softly; the checker should
// file the reasons on the entity with AddError. The rules package provides
// a ready-made implementation.
type RuleChecker interface {
	Check(ctx context.Context, entity *Entity, mode Mode, options SaveOptions) bool
}
