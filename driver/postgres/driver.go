// Package driver implements the PostgreSQL store. Each logical table is
// backed by a relation with a single jsonb column named doc, so documents
// keep their free shape while conditions still run server side.
package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabula-io/tabula/core"
)

// uniqueViolation is the SQLSTATE reported when an index rejects a row.
const uniqueViolation = "23505"

// PostgresStore keeps documents in jsonb tables reached through a
// connection pool.
//
// Example:
//
//	store := driver.NewPostgresStore("postgres://app@localhost:5432/app")
//	if err := store.Connect(ctx); err != nil {
//	    return err
//	}
//	defer store.Close(ctx)
type PostgresStore struct {
	dsn  string
	pool *pgxpool.Pool
}

var (
	_ core.Store     = (*PostgresStore)(nil)
	_ core.Connector = (*PostgresStore)(nil)
)

// NewPostgresStore builds an unconnected store. Call Connect before use.
func NewPostgresStore(dsn string) *PostgresStore {
	if dsn == "" {
		panic("postgres store: dsn is empty")
	}
	return &PostgresStore{dsn: dsn}
}

//region Lifecycle

// Connect opens the pool and verifies it with a ping.
func (s *PostgresStore) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("postgres store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	s.pool = pool
	return nil
}

// Ping verifies the pool is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres store: not connected")
	}
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}

// EnsureTable creates the backing relation when it does not exist yet.
func (s *PostgresStore) EnsureTable(ctx context.Context, table string) error {
	sqlQuery := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (doc jsonb NOT NULL)", formatTable(table))
	if _, err := s.db().Exec(ctx, sqlQuery); err != nil {
		return fmt.Errorf("postgres store: ensure table %s: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) db() *pgxpool.Pool {
	if s.pool == nil {
		panic("postgres store: not connected")
	}
	return s.pool
}

//endregion

//region Store

// Insert writes one document. A unique violation is reported as an
// unacknowledged write, not an error, so the repository fails softly.
func (s *PostgresStore) Insert(ctx context.Context, table string, doc core.Document) (core.WriteResult, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("postgres store: encode document: %w", err)
	}

	sqlQuery := fmt.Sprintf("INSERT INTO %s (doc) VALUES ($1)", formatTable(table))
	if _, err := s.db().Exec(ctx, sqlQuery, payload); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.WriteResult{Ok: false}, nil
		}
		return core.WriteResult{}, fmt.Errorf("postgres store: insert into %s: %w", table, err)
	}
	return core.WriteResult{Ok: true, N: 1}, nil
}

// Update merges the document into every match with the jsonb || operator.
func (s *PostgresStore) Update(ctx context.Context, table string, condition *core.Condition, doc core.Document) (core.WriteResult, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("postgres store: encode document: %w", err)
	}

	argList := []any{payload}
	whereClause := buildCondition(condition, &argList)
	sqlQuery := fmt.Sprintf("UPDATE %s SET doc = doc || $1::jsonb WHERE %s", formatTable(table), whereClause)

	tag, err := s.db().Exec(ctx, sqlQuery, argList...)
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("postgres store: update %s: %w", table, err)
	}
	return core.WriteResult{Ok: true, N: tag.RowsAffected()}, nil
}

// Remove deletes every match and acknowledges regardless of the count.
func (s *PostgresStore) Remove(ctx context.Context, table string, condition *core.Condition) (bool, error) {
	argList := []any{}
	whereClause := buildCondition(condition, &argList)
	sqlQuery := fmt.Sprintf("DELETE FROM %s WHERE %s", formatTable(table), whereClause)

	if _, err := s.db().Exec(ctx, sqlQuery, argList...); err != nil {
		return false, fmt.Errorf("postgres store: remove from %s: %w", table, err)
	}
	return true, nil
}

// Find renders the query as a SELECT over the doc column and streams the
// decoded rows.
func (s *PostgresStore) Find(ctx context.Context, table string, where *core.Where) (core.Cursor, error) {
	if where == nil {
		where = &core.Where{}
	}

	argList := []any{}
	sqlQuery := fmt.Sprintf("SELECT doc FROM %s WHERE %s", formatTable(table), buildCondition(where.Condition, &argList))
	if len(where.Sort) > 0 {
		sqlQuery += " ORDER BY " + buildOrderBy(where.Sort)
	}
	if where.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", where.Limit)
	}
	if where.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", where.Offset)
	}

	rows, err := s.db().Query(ctx, sqlQuery, argList...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: find in %s: %w", table, err)
	}
	return &postgresCursor{rows: rows, fields: where.Fields}, nil
}

// Count runs a server-side count over the matching rows.
func (s *PostgresStore) Count(ctx context.Context, table string, condition *core.Condition) (int64, error) {
	argList := []any{}
	sqlQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", formatTable(table), buildCondition(condition, &argList))

	var count int64
	if err := s.db().QueryRow(ctx, sqlQuery, argList...).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres store: count %s: %w", table, err)
	}
	return count, nil
}

//endregion

//region Cursor

// postgresCursor walks a result set, decoding each jsonb payload and
// applying the projection client side.
type postgresCursor struct {
	rows   pgx.Rows
	fields []string
	doc    core.Document
	err    error
}

func (c *postgresCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.rows.Next() {
		return false
	}
	var payload []byte
	if err := c.rows.Scan(&payload); err != nil {
		c.err = fmt.Errorf("postgres store: scan row: %w", err)
		return false
	}
	var doc core.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		c.err = fmt.Errorf("postgres store: decode document: %w", err)
		return false
	}
	c.doc = projectDocument(doc, c.fields)
	return true
}

func (c *postgresCursor) Document() core.Document { return c.doc }

func (c *postgresCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *postgresCursor) Close(ctx context.Context) error {
	c.rows.Close()
	return nil
}

//endregion
