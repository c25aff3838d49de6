// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the finder registry and the built-in find strategies.
package core

import "context"

// Built-in finder kinds accepted by Repository.Find.
const (
	// FinderAll returns every document matching the query.
	FinderAll = "all"
	// FinderFirst returns at most one document.
	FinderFirst = "first"
	// FinderList projects documents down to the key and display fields.
	FinderList = "list"
	// FinderCount returns a single synthetic document {"count": n}.
	FinderCount = "count"
)

// Finder is one find strategy. It receives the repository it runs against
// and the caller's query, and returns a cursor over the matching documents.
// Custom finders are registered with WithFinder and can reshape the query
// before delegating to the repository's store.
type Finder func(ctx context.Context, repo *Repository, query *Query) (Cursor, error)

func builtinFinders() map[string]Finder {
	return map[string]Finder{
		FinderAll:   findAll,
		FinderFirst: findFirst,
		FinderList:  findList,
		FinderCount: findCount,
	}
}

func findAll(ctx context.Context, repo *Repository, query *Query) (Cursor, error) {
	return repo.store.Find(ctx, repo.table.Name, query.Build())
}

func findFirst(ctx context.Context, repo *Repository, query *Query) (Cursor, error) {
	first := query.Clone().Limit(1)
	return repo.store.Find(ctx, repo.table.Name, first.Build())
}

// findList narrows the projection to the primary key and display field,
// the minimum needed to render a pick list.
func findList(ctx context.Context, repo *Repository, query *Query) (Cursor, error) {
	fields := append([]string(nil), repo.table.PrimaryKey...)
	display := repo.table.DisplayField
	if display != "" && !contains(fields, display) {
		fields = append(fields, display)
	}
	list := query.Clone()
	list.where.Fields = fields
	return repo.store.Find(ctx, repo.table.Name, list.Build())
}

// findCount ignores pagination and returns the match count as a synthetic
// single-document result.
func findCount(ctx context.Context, repo *Repository, query *Query) (Cursor, error) {
	n, err := repo.store.Count(ctx, repo.table.Name, query.Build().Condition)
	if err != nil {
		return nil, err
	}
	return NewSliceCursor([]Document{{"count": n}}), nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
