// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the Entity, the mutable in-memory form of one record.
package core

// Entity holds one record's attributes together with its lifecycle state:
// whether it has been persisted yet, which fields changed since the last
// sync with the store, any validation errors filed against it, and the
// alias of the table it was loaded from.
//
// Example:
//
//	entity := core.NewEntity().
//	    Set("title", "First post").
//	    Set("body", "hello world")
//
//	entity.IsNew()   // true
//	entity.IsDirty() // true
type Entity struct {
	attributes map[string]any      // current field values
	dirty      map[string]struct{} // fields changed since the last persist
	errors     map[string][]string // validation messages keyed by field
	isNew      bool                // not yet persisted
	source     string              // alias of the table that produced it
}

// NewEntity returns an empty entity in the new state. Entities loaded from
// a store come from Mapper.FromDocument instead and start clean.
func NewEntity() *Entity {
	return &Entity{
		attributes: make(map[string]any),
		dirty:      make(map[string]struct{}),
		errors:     make(map[string][]string),
		isNew:      true,
	}
}

// Set assigns a field value and marks the field dirty. It returns the
// entity so calls can be chained.
func (e *Entity) Set(field string, value any) *Entity {
	e.attributes[field] = value
	e.dirty[field] = struct{}{}
	return e
}

// Get returns a field value and whether the field is present.
func (e *Entity) Get(field string) (any, bool) {
	value, ok := e.attributes[field]
	return value, ok
}

// GetString returns a field as a string, or "" when the field is absent or
// not a string.
func (e *Entity) GetString(field string) string {
	if value, ok := e.attributes[field].(string); ok {
		return value
	}
	return ""
}

// Has reports whether the field is present, even when its value is nil.
func (e *Entity) Has(field string) bool {
	_, ok := e.attributes[field]
	return ok
}

// Unset removes a field and its dirty mark.
func (e *Entity) Unset(field string) *Entity {
	delete(e.attributes, field)
	delete(e.dirty, field)
	return e
}

// Attributes returns a copy of the attribute map. Mutating the copy does
// not touch the entity.
func (e *Entity) Attributes() map[string]any {
	out := make(map[string]any, len(e.attributes))
	for field, value := range e.attributes {
		out[field] = value
	}
	return out
}

// IsNew reports whether the entity has never been persisted.
func (e *Entity) IsNew() bool { return e.isNew }

// IsDirty reports whether any field changed since the last persist.
func (e *Entity) IsDirty() bool { return len(e.dirty) > 0 }

// IsFieldDirty reports whether one specific field changed.
func (e *Entity) IsFieldDirty(field string) bool {
	_, ok := e.dirty[field]
	return ok
}

// MarkClean clears all dirty marks. The repository calls it after a
// successful persist.
func (e *Entity) MarkClean() {
	e.dirty = make(map[string]struct{})
}

// AddError files a validation message against a field. An entity with
// errors is rejected by Save before any store contact.
func (e *Entity) AddError(field, message string) *Entity {
	e.errors[field] = append(e.errors[field], message)
	return e
}

// HasErrors reports whether any validation messages are filed.
func (e *Entity) HasErrors() bool { return len(e.errors) > 0 }

// Errors returns a copy of the validation messages keyed by field.
func (e *Entity) Errors() map[string][]string {
	out := make(map[string][]string, len(e.errors))
	for field, messages := range e.errors {
		out[field] = append([]string(nil), messages...)
	}
	return out
}

// ClearErrors removes all validation messages.
func (e *Entity) ClearErrors() *Entity {
	e.errors = make(map[string][]string)
	return e
}

// Source returns the alias of the table this entity was loaded from or
// saved into, or "" for an entity that never touched a store.
func (e *Entity) Source() string { return e.source }

func (e *Entity) setNew(isNew bool)      { e.isNew = isNew }
func (e *Entity) setSource(alias string) { e.source = alias }
