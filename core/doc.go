// Package core implements an object-document mapping shim: it lets a
// relational-style entity/repository abstraction persist records into a
// schemaless document store.
//
// The package is organized around a small set of collaborating pieces:
//
//   - [Entity] is the in-memory representation of one record: a mutable
//     attribute map plus lifecycle state (new, dirty fields, validation
//     errors, originating source alias).
//   - [Table] describes one logical collection: name, alias, primary-key
//     fields, display field, and the temporal field names. A [Registry]
//     groups tables and can be loaded from YAML.
//   - [Mapper] converts entities to store-native documents and back,
//     coercing temporal fields from their calendar components so that no
//     display-string or timezone formatting ever reaches the store.
//   - [IdentityGenerator] produces globally-unique primary keys for new
//     records (24-character hex ObjectID values); composite keys are never
//     auto-generated.
//   - [Store] is the contract a backend must satisfy (see the driver
//     packages for MongoDB, PostgreSQL, DynamoDB, JSON-file, and in-memory
//     implementations).
//   - [Repository] orchestrates everything: Get, Find, FindPage, Count,
//     Save, and Delete, including the save state machine, lifecycle events,
//     rule checking, middleware, and optional result caching.
//
// # Saving
//
// Save reconciles the entity's lifecycle with the store. Entities carrying
// validation errors are rejected before any store contact; clean existing
// entities are an idempotent no-op. New entities are inserted with a freshly
// generated key, existing entities are updated by a targeted filter that
// never rewrites the key field. Persistence failures (an unacknowledged
// write, a failed rule check, a vetoing pre-save listener) are soft: Save
// returns a [SaveResult] with OK=false and a nil error. Only structural
// misuse, such as inserting into a table with no declared primary key, is
// returned as an error.
//
//	repo := core.New(table, store)
//	entity := core.NewEntity().Set("title", "Hello")
//	result, err := repo.Save(ctx, entity)
//
// # Events
//
// A synchronous [Dispatcher] emits pre:save, post:save, and post:commit
// events around the save machine. A pre:save listener can veto the save and
// substitute its own result:
//
//	repo.Events().On(core.EventPreSave, func(ctx context.Context, e *core.Event) {
//	    e.StopWithResult(42)
//	})
//
// # Errors
//
// The package defines a two-tier policy. Recoverable persistence outcomes
// are reported through SaveResult and boolean returns; errors are reserved
// for structural conditions:
//
//   - [ErrNotFound] / [NotFoundError] - Get matched no document
//   - [ErrNoPrimaryKey] / [MissingPrimaryKeyError] - table declares no key
//   - [ErrUnsupportedFinder] / [UnsupportedFinderError] - unknown find kind
package core
