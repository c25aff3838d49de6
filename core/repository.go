// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the Repository, the orchestrator of all persistence.
package core

import (
	"context"
	"log/slog"
	"time"
)

// SaveOptions tune one Save call. The zero value is not useful; Save
// always starts from DefaultSaveOptions and applies SaveOption modifiers.
type SaveOptions struct {
	CheckRules    bool // run the rule checker before persisting
	CheckExisting bool // reserved for existence verification, currently unused
	Primary       bool // true for top-level saves, false for cascaded ones
}

// DefaultSaveOptions returns the options applied when Save is called with
// no modifiers.
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{CheckRules: true, CheckExisting: true, Primary: true}
}

// SaveOption modifies the options of one Save call.
type SaveOption func(*SaveOptions)

// WithRuleCheck toggles the rule checking step.
func WithRuleCheck(enabled bool) SaveOption {
	return func(o *SaveOptions) { o.CheckRules = enabled }
}

// WithExistingCheck toggles the reserved existence verification step.
func WithExistingCheck(enabled bool) SaveOption {
	return func(o *SaveOptions) { o.CheckExisting = enabled }
}

// WithPrimary marks the save as primary (the default) or cascaded. Only
// primary saves dispatch EventPostCommit.
func WithPrimary(primary bool) SaveOption {
	return func(o *SaveOptions) { o.Primary = primary }
}

// SaveResult reports the outcome of a Save.
type SaveResult struct {
	OK     bool    // the entity was persisted
	Vetoed bool    // a pre-save listener stopped the save
	Result any     // the vetoing listener's result, returned verbatim
	Entity *Entity // the entity passed to Save
}

// QueryResult pairs one page of entities with the total match count,
// ignoring pagination.
type QueryResult struct {
	Entities []*Entity
	Total    int64
}

// Repository orchestrates persistence for one table: lookups, finds,
// the save state machine, and deletes. All store access flows through its
// middleware chain.
//
// Example:
//
//	table := core.NewTable("posts", "_id")
//	repo := core.New(table, store,
//	    core.WithRules(checker),
//	    core.WithLogger(logger))
type Repository struct {
	table       *Table
	store       Store
	mapper      *Mapper
	identities  *IdentityGenerator
	rules       RuleChecker
	events      *Dispatcher
	finders     map[string]Finder
	middlewares []Middleware
	cache       Cache
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// Option configures a Repository at construction time.
type Option func(*Repository)

// WithRules installs an application rule checker consulted before saves.
func WithRules(rules RuleChecker) Option {
	return func(r *Repository) { r.rules = rules }
}

// WithEvents replaces the repository's event dispatcher.
func WithEvents(events *Dispatcher) Option {
	return func(r *Repository) {
		if events != nil {
			r.events = events
		}
	}
}

// WithLogger sets the logger for soft-failure reporting. A nil logger
// keeps slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCache caches find results under deterministic keys and invalidates
// them after every acknowledged write to the table.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(r *Repository) {
		r.cache = cache
		r.cacheTTL = ttl
	}
}

// WithIdentityGenerator replaces the key generator. Repositories sharing a
// generator never issue the same key twice between them.
func WithIdentityGenerator(gen *IdentityGenerator) Option {
	return func(r *Repository) {
		if gen != nil {
			r.identities = gen
		}
	}
}

// WithFinder registers a custom find strategy under the given kind,
// overriding a built-in of the same name.
func WithFinder(kind string, finder Finder) Option {
	if kind == "" {
		panic("core: finder kind is empty")
	}
	if finder == nil {
		panic("core: finder is nil")
	}
	return func(r *Repository) { r.finders[kind] = finder }
}

// WithMiddleware appends middlewares to the store pipeline. They run in
// registration order around every store operation.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(r *Repository) { r.middlewares = append(r.middlewares, middlewares...) }
}

// New builds a repository for the given table backed by the given store.
func New(table *Table, store Store, opts ...Option) *Repository {
	if table == nil {
		panic("core: repository requires a table")
	}
	if store == nil {
		panic("core: repository requires a store")
	}
	table.applyDefaults()
	r := &Repository{
		table:      table,
		store:      store,
		mapper:     NewMapper(table),
		identities: NewIdentityGenerator(),
		events:     NewDispatcher(),
		finders:    builtinFinders(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Table returns the table description the repository operates on.
func (r *Repository) Table() *Table { return r.table }

// Store returns the backing store, mainly for custom finders.
func (r *Repository) Store() Store { return r.store }

// Events returns the repository's dispatcher so callers can register
// lifecycle listeners.
func (r *Repository) Events() *Dispatcher { return r.events }

// Get fetches the entity with the given primary key value. A miss is
// reported as a NotFoundError naming the table and key.
func (r *Repository) Get(ctx context.Context, key any) (*Entity, error) {
	if !r.table.HasPrimaryKey() {
		return nil, &MissingPrimaryKeyError{Table: r.table.Name}
	}
	query := NewQuery().
		Where(Field(r.table.PrimaryKeyField()).Eq(key)).
		Limit(1)

	var found *Entity
	err := r.dispatchOperation(ctx, OperationFind, func(ctx context.Context) error {
		cursor, err := r.store.Find(ctx, r.table.Name, query.Build())
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		if cursor.Next(ctx) {
			found = r.mapper.FromDocument(cursor.Document())
		}
		return cursor.Err()
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, &NotFoundError{Table: r.table.Name, Key: key}
	}
	return found, nil
}

// Find runs the named find strategy and materializes every matching
// document as an entity. An unregistered kind is an UnsupportedFinderError.
func (r *Repository) Find(ctx context.Context, kind string, query *Query) ([]*Entity, error) {
	docs, err := r.findDocuments(ctx, kind, query)
	if err != nil {
		return nil, err
	}
	entities := make([]*Entity, 0, len(docs))
	for _, doc := range docs {
		entities = append(entities, r.mapper.FromDocument(doc))
	}
	return entities, nil
}

// FindPage runs Find and pairs the page with the total match count,
// ignoring limit and offset.
func (r *Repository) FindPage(ctx context.Context, kind string, query *Query) (*QueryResult, error) {
	entities, err := r.Find(ctx, kind, query)
	if err != nil {
		return nil, err
	}
	total, err := r.Count(ctx, query.Build().Condition)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Entities: entities, Total: total}, nil
}

// Count returns the number of documents matching the condition. A nil
// condition counts the whole table.
func (r *Repository) Count(ctx context.Context, condition *Condition) (int64, error) {
	var n int64
	err := r.dispatchOperation(ctx, OperationCount, func(ctx context.Context) error {
		var err error
		n, err = r.store.Count(ctx, r.table.Name, condition)
		return err
	})
	return n, err
}

func (r *Repository) findDocuments(ctx context.Context, kind string, query *Query) ([]Document, error) {
	finder, ok := r.finders[kind]
	if !ok {
		return nil, &UnsupportedFinderError{Kind: kind}
	}
	if query == nil {
		query = NewQuery()
	}

	var cacheKey string
	if r.cache != nil {
		cacheKey = findCacheKey(r.table.Name, kind, query)
		if cached, ok := r.cache.Get(cacheKey); ok {
			if docs, ok := cached.([]Document); ok {
				return docs, nil
			}
		}
	}

	var docs []Document
	err := r.dispatchOperation(ctx, OperationFind, func(ctx context.Context) error {
		cursor, err := finder(ctx, r, query)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		for cursor.Next(ctx) {
			docs = append(docs, cursor.Document())
		}
		return cursor.Err()
	})
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		r.cache.Set(cacheKey, docs, r.cacheTTL)
	}
	return docs, nil
}

// Save reconciles the entity with the store.
//
// Entities carrying validation errors are rejected before any store
// contact. A clean existing entity is an idempotent no-op reported as
// success. Otherwise the save runs rule checking, offers a veto to
// pre-save listeners, maps the entity to a document, and takes the insert
// or update path. Persistence failures are soft (OK=false, nil error);
// only structural misuse and transport errors are returned as errors.
func (r *Repository) Save(ctx context.Context, entity *Entity, opts ...SaveOption) (*SaveResult, error) {
	if entity == nil {
		panic("core: save requires an entity")
	}
	options := DefaultSaveOptions()
	for _, opt := range opts {
		opt(&options)
	}
	result := &SaveResult{Entity: entity}

	if entity.HasErrors() {
		return result, nil
	}
	if !entity.IsNew() && !entity.IsDirty() {
		result.OK = true
		return result, nil
	}

	create := entity.IsNew()

	if options.CheckRules && r.rules != nil {
		mode := ModeUpdate
		if create {
			mode = ModeCreate
		}
		if !r.rules.Check(ctx, entity, mode, options) {
			return result, nil
		}
	}

	payload := &SavePayload{Table: r.table.Name, Entity: entity, Create: create}
	if event := r.events.Dispatch(ctx, EventPreSave, payload); event.Stopped() {
		result.Vetoed = true
		result.Result = event.Result()
		return result, nil
	}

	doc := r.mapper.ToDocument(entity)

	var err error
	if create {
		err = r.insert(ctx, entity, doc, result)
	} else {
		err = r.update(ctx, entity, doc, result)
	}
	if err != nil || !result.OK {
		return result, err
	}

	r.events.Dispatch(ctx, EventPostSave, payload)
	entity.MarkClean()
	if options.Primary {
		r.events.Dispatch(ctx, EventPostCommit, payload)
	}
	entity.setNew(false)
	entity.setSource(r.table.Alias)
	r.invalidate()
	return result, nil
}

// insert persists a new entity. A generated key is merged into both the
// document and the entity before the store call; on failure the merge is
// rolled back so the entity is exactly as it was.
func (r *Repository) insert(ctx context.Context, entity *Entity, doc Document, result *SaveResult) error {
	if !r.table.HasPrimaryKey() {
		return &MissingPrimaryKeyError{Table: r.table.Name}
	}

	// Generate suppresses composite keys itself; a caller-assigned key is
	// honored and never overwritten.
	var key PrimaryKey
	if !hasKeyValue(entity, r.table.PrimaryKeyField()) {
		key = r.identities.Generate(r.table.PrimaryKey)
	}
	for field, value := range key {
		doc[field] = value
		entity.Set(field, value)
	}

	if len(doc) == 0 {
		r.logger.WarnContext(ctx, "insert skipped: empty document",
			"table", r.table.Name)
		return nil
	}

	var res WriteResult
	err := r.dispatchOperation(ctx, OperationInsert, func(ctx context.Context) error {
		var err error
		res, err = r.store.Insert(ctx, r.table.Name, doc)
		return err
	})
	if err != nil {
		r.rollbackKey(entity, key)
		return err
	}
	if !res.Ok {
		r.rollbackKey(entity, key)
		return nil
	}
	result.OK = true
	return nil
}

// update persists a dirty existing entity with a targeted write. The
// outgoing document never carries the key fields; they only appear in the
// filter.
func (r *Repository) update(ctx context.Context, entity *Entity, doc Document, result *SaveResult) error {
	if !r.table.HasPrimaryKey() {
		return &MissingPrimaryKeyError{Table: r.table.Name}
	}
	condition, ok := r.keyCondition(entity)
	if !ok {
		r.logger.WarnContext(ctx, "update skipped: entity carries no primary key value",
			"table", r.table.Name)
		return nil
	}

	out := doc.Clone()
	for _, field := range r.table.PrimaryKey {
		delete(out, field)
	}
	if len(out) == 0 {
		r.logger.DebugContext(ctx, "update skipped: no fields beyond the primary key",
			"table", r.table.Name)
		return nil
	}

	var res WriteResult
	err := r.dispatchOperation(ctx, OperationUpdate, func(ctx context.Context) error {
		var err error
		res, err = r.store.Update(ctx, r.table.Name, condition, out)
		return err
	})
	if err != nil {
		return err
	}
	if !res.Ok {
		return nil
	}
	result.OK = true
	return nil
}

// Delete removes the entity's document from the store. It never returns
// an error: every failure, including transport errors, is reported as
// false and logged as a warning.
func (r *Repository) Delete(ctx context.Context, entity *Entity) bool {
	if entity == nil {
		r.logger.WarnContext(ctx, "delete skipped: nil entity", "table", r.table.Name)
		return false
	}
	if !r.table.HasPrimaryKey() {
		r.logger.WarnContext(ctx, "delete skipped: table declares no primary key",
			"table", r.table.Name)
		return false
	}
	condition, ok := r.keyCondition(entity)
	if !ok {
		r.logger.WarnContext(ctx, "delete skipped: entity carries no primary key value",
			"table", r.table.Name)
		return false
	}

	var removed bool
	err := r.dispatchOperation(ctx, OperationDelete, func(ctx context.Context) error {
		var err error
		removed, err = r.store.Remove(ctx, r.table.Name, condition)
		return err
	})
	if err != nil {
		r.logger.WarnContext(ctx, "delete failed",
			"table", r.table.Name, "key", entity.GetString(r.table.PrimaryKeyField()), "error", err)
		return false
	}
	if removed {
		r.invalidate()
	}
	return removed
}

// keyCondition builds the targeted filter matching the entity's primary
// key. It reports false when any key field is absent or nil.
func (r *Repository) keyCondition(entity *Entity) (*Condition, bool) {
	conditions := make([]*Condition, 0, len(r.table.PrimaryKey))
	for _, field := range r.table.PrimaryKey {
		value, ok := entity.Get(field)
		if !ok || value == nil {
			return nil, false
		}
		conditions = append(conditions, Field(field).Eq(value))
	}
	if len(conditions) == 0 {
		return nil, false
	}
	return foldConditionsAnd(conditions...), true
}

func (r *Repository) rollbackKey(entity *Entity, key PrimaryKey) {
	for field := range key {
		entity.Unset(field)
	}
	entity.setNew(true)
}

func (r *Repository) invalidate() {
	if r.cache != nil {
		r.cache.DeletePrefix(cacheKeyPrefix(r.table.Name))
	}
}

// dispatchOperation runs a store call through the middleware chain.
func (r *Repository) dispatchOperation(ctx context.Context, op Operation, exec func(ctx context.Context) error) error {
	final := func(ctx context.Context, _ OperationInfo) error { return exec(ctx) }
	handler := chainMiddlewares(r.middlewares, final)
	return handler(ctx, OperationInfo{Op: op, Table: r.table.Name})
}

func hasKeyValue(entity *Entity, field string) bool {
	value, ok := entity.Get(field)
	if !ok || value == nil {
		return false
	}
	if s, isString := value.(string); isString && s == "" {
		return false
	}
	return true
}
