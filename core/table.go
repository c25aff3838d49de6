// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the Table description and the Registry that groups them.
package core

import (
	"fmt"
	"sort"
	"sync"
)

// Default temporal field names stamped by convention when a table does not
// override them.
const (
	DefaultCreatedField  = "created"
	DefaultModifiedField = "modified"
)

// Table describes one logical collection of documents: its store-level
// name, the alias entities loaded from it are tagged with, the primary-key
// fields, and the conventional field names.
//
// Example:
//
//	posts := core.NewTable("posts", "_id")
//	posts.Alias = "Post"
//	posts.DisplayField = "title"
type Table struct {
	Name          string   `yaml:"name"`          // store-level collection name
	Alias         string   `yaml:"alias"`         // source alias stamped on entities, defaults to Name
	PrimaryKey    []string `yaml:"primaryKey"`    // key fields, single-field keys are auto-generated
	DisplayField  string   `yaml:"displayField"`  // human-facing field, defaults to the first key field
	CreatedField  string   `yaml:"createdField"`  // temporal field coerced on map, defaults to "created"
	ModifiedField string   `yaml:"modifiedField"` // temporal field coerced on map, defaults to "modified"
}

// NewTable builds a table description with defaults applied.
func NewTable(name string, primaryKey ...string) *Table {
	t := &Table{Name: name, PrimaryKey: primaryKey}
	t.applyDefaults()
	return t
}

func (t *Table) applyDefaults() {
	if t.Alias == "" {
		t.Alias = t.Name
	}
	if t.DisplayField == "" && len(t.PrimaryKey) > 0 {
		t.DisplayField = t.PrimaryKey[0]
	}
	if t.CreatedField == "" {
		t.CreatedField = DefaultCreatedField
	}
	if t.ModifiedField == "" {
		t.ModifiedField = DefaultModifiedField
	}
}

func (t *Table) validate() error {
	if t.Name == "" {
		return fmt.Errorf("tabula: table name is required")
	}
	for _, field := range t.PrimaryKey {
		if field == "" {
			return fmt.Errorf("tabula: table %s declares an empty primary key field", t.Name)
		}
	}
	return nil
}

// HasPrimaryKey reports whether the table declares any key fields.
func (t *Table) HasPrimaryKey() bool { return len(t.PrimaryKey) > 0 }

// PrimaryKeyField returns the first declared key field, or "" when the
// table declares none.
func (t *Table) PrimaryKeyField() string {
	if len(t.PrimaryKey) == 0 {
		return ""
	}
	return t.PrimaryKey[0]
}

// Registry holds the known table descriptions keyed by name. It is safe
// for concurrent use.
type Registry struct {
	mutex  sync.RWMutex
	tables map[string]*Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Add validates the table, applies its defaults, and registers it. Adding
// a table whose name is already registered is an error.
func (r *Registry) Add(table *Table) error {
	if table == nil {
		return fmt.Errorf("tabula: cannot register a nil table")
	}
	if err := table.validate(); err != nil {
		return err
	}
	table.applyDefaults()

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.tables[table.Name]; exists {
		return fmt.Errorf("tabula: table %s is already registered", table.Name)
	}
	r.tables[table.Name] = table
	return nil
}

// Get returns the table registered under name, if any.
func (r *Registry) Get(name string) (*Table, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	table, ok := r.tables[name]
	return table, ok
}

// Tables returns all registered tables sorted by name.
func (r *Registry) Tables() []*Table {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make([]*Table, 0, len(r.tables))
	for _, table := range r.tables {
		out = append(out, table)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
