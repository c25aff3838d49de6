// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the sentinel errors and the typed errors wrapping them.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned (directly or wrapped) by repository operations.
// Match them with errors.Is.
var (
	// ErrNotFound reports that a Get matched no document.
	ErrNotFound = errors.New("tabula: record not found")

	// ErrNoPrimaryKey reports a structural misuse: an operation that needs
	// a primary key was invoked on a table that declares none.
	ErrNoPrimaryKey = errors.New("tabula: table declares no primary key")

	// ErrUnsupportedFinder reports a find invoked with an unregistered kind.
	ErrUnsupportedFinder = errors.New("tabula: unsupported finder")
)

// NotFoundError carries the table and key of a failed Get.
//
// Example:
//
//	_, err := repo.Get(ctx, "nonexistent-id")
//	var nf *core.NotFoundError
//	if errors.As(err, &nf) {
//	    log.Printf("missing %s record %v", nf.Table, nf.Key)
//	}
type NotFoundError struct {
	Table string // table name the lookup ran against
	Key   any    // primary key value that matched nothing
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tabula: record not found in table %s with primary key %v", e.Table, e.Key)
}

// Is lets errors.Is(err, ErrNotFound) succeed for typed instances.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MissingPrimaryKeyError reports an insert or targeted operation against a
// table whose definition declares no primary key fields.
type MissingPrimaryKeyError struct {
	Table string
}

func (e *MissingPrimaryKeyError) Error() string {
	return fmt.Sprintf("tabula: table %s declares no primary key", e.Table)
}

func (e *MissingPrimaryKeyError) Is(target error) bool { return target == ErrNoPrimaryKey }

// UnsupportedFinderError reports a find kind with no registered strategy.
// The message names the conventional finder method derived from the kind,
// so find("bogus") reports findBogus.
type UnsupportedFinderError struct {
	Kind string
}

// Method returns the conventional finder method name for the kind.
func (e *UnsupportedFinderError) Method() string {
	if e.Kind == "" {
		return "find"
	}
	return "find" + strings.ToUpper(e.Kind[:1]) + e.Kind[1:]
}

func (e *UnsupportedFinderError) Error() string {
	return fmt.Sprintf("tabula: unknown finder method %s", e.Method())
}

func (e *UnsupportedFinderError) Is(target error) bool { return target == ErrUnsupportedFinder }
