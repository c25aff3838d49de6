// Package core provides the fundamental building blocks of the tabula ODM.
// This file loads table registries from YAML configuration files.
package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk shape of a registry configuration.
//
//	tables:
//	  - name: posts
//	    alias: Post
//	    primaryKey: [_id]
//	    displayField: title
type registryFile struct {
	Tables []*Table `yaml:"tables"`
}

// LoadRegistry reads a YAML registry file and returns the registered
// tables with defaults applied. Duplicate or invalid table definitions
// make the whole load fail.
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tabula: read registry %s: %w", path, err)
	}
	return ParseRegistry(raw, path)
}

// ParseRegistry builds a registry from raw YAML. The name argument is only
// used in error messages.
func ParseRegistry(raw []byte, name string) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("tabula: parse registry %s: %w", name, err)
	}
	registry := NewRegistry()
	for _, table := range file.Tables {
		if err := registry.Add(table); err != nil {
			return nil, fmt.Errorf("tabula: registry %s: %w", name, err)
		}
	}
	return registry, nil
}
