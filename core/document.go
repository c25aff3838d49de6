// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the Document shape and the Entity<->Document mapper.
package core

import "time"

// Document is the store-native form of one record: a flat map of field
// names to values, ready for a driver to persist.
type Document map[string]any

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for field, value := range d {
		out[field] = value
	}
	return out
}

// datetime layouts accepted when coercing temporal fields from strings.
// Layouts without a zone are interpreted as UTC.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Mapper converts entities to documents and back for one table. Temporal
// fields are rebuilt from their calendar components at whole-second
// precision in UTC, so sub-second precision and zone formatting never
// reach the store.
type Mapper struct {
	table *Table
}

// NewMapper creates a mapper bound to the given table description.
func NewMapper(table *Table) *Mapper {
	if table == nil {
		panic("core: mapper requires a table")
	}
	table.applyDefaults()
	return &Mapper{table: table}
}

// ToDocument converts the entity's attributes into a store-ready document.
// The entity itself is not modified.
func (m *Mapper) ToDocument(entity *Entity) Document {
	doc := make(Document, len(entity.attributes))
	for field, value := range entity.attributes {
		doc[field] = m.coerceOut(field, value)
	}
	return doc
}

// FromDocument materializes a stored document as a clean, not-new entity
// tagged with the table's alias.
func (m *Mapper) FromDocument(doc Document) *Entity {
	entity := NewEntity()
	for field, value := range doc {
		entity.attributes[field] = m.coerceIn(field, value)
	}
	entity.isNew = false
	entity.source = m.table.Alias
	return entity
}

func (m *Mapper) isTemporalField(field string) bool {
	return field == m.table.CreatedField || field == m.table.ModifiedField
}

func (m *Mapper) coerceOut(field string, value any) any {
	switch v := value.(type) {
	case time.Time:
		return normalizeTime(v)
	case *time.Time:
		if v == nil {
			return nil
		}
		return normalizeTime(*v)
	case string:
		if m.isTemporalField(field) {
			if t, ok := parseDatetime(v); ok {
				return t
			}
		}
		return v
	default:
		return value
	}
}

func (m *Mapper) coerceIn(field string, value any) any {
	switch v := value.(type) {
	case time.Time:
		return normalizeTime(v)
	case string:
		if m.isTemporalField(field) {
			if t, ok := parseDatetime(v); ok {
				return t
			}
		}
		return v
	default:
		return value
	}
}

// normalizeTime rebuilds a time from its UTC calendar components, dropping
// sub-second precision.
func normalizeTime(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), 0, time.UTC)
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return normalizeTime(t), true
		}
	}
	return time.Time{}, false
}
