// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the lifecycle event names dispatched around a save.
package core

// Lifecycle event names. Listeners are registered on the repository's
// dispatcher under these tokens.
const (
	// EventPreSave fires before any store contact. A listener that stops
	// the event vetoes the save and its result is returned verbatim.
	EventPreSave = "pre:save"

	// EventPostSave fires once the store acknowledged the write, before
	// the entity is marked clean.
	EventPostSave = "post:save"

	// EventPostCommit fires only for primary saves, after EventPostSave,
	// closing the save cycle.
	EventPostCommit = "post:commit"
)

// SavePayload is the payload carried by all save lifecycle events.
type SavePayload struct {
	Table  string  // name of the table being written
	Entity *Entity // entity being saved, mutable by listeners
	Create bool    // true for the insert path, false for update
}
