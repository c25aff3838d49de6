// Package driver implements the MongoDB store on top of the official
// mongo-driver client.
package driver

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tabula-io/tabula/core"
)

const (
	connectTimeout         = 10 * time.Second
	serverSelectionTimeout = 10 * time.Second
)

// MongoStore maps each logical table to a collection of the configured
// database. Conditions translate to native filter documents, so matching
// and ordering run server side.
//
// Example:
//
//	store := driver.NewMongoStore("mongodb://localhost:27017", "app")
//	if err := store.Connect(ctx); err != nil {
//	    return err
//	}
//	defer store.Close(ctx)
type MongoStore struct {
	uri      string
	database string
	client   *mongo.Client
}

var (
	_ core.Store     = (*MongoStore)(nil)
	_ core.Connector = (*MongoStore)(nil)
)

// NewMongoStore builds an unconnected store. Call Connect before use.
func NewMongoStore(uri, database string) *MongoStore {
	if uri == "" {
		panic("mongo store: uri is empty")
	}
	if database == "" {
		panic("mongo store: database name is empty")
	}
	return &MongoStore{uri: uri, database: database}
}

//region Lifecycle

// Connect dials the deployment and verifies it with a ping.
func (s *MongoStore) Connect(ctx context.Context) error {
	opts := mopt.Client().
		ApplyURI(s.uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("mongo store: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo store: ping: %w", err)
	}
	s.client = client
	return nil
}

// Ping verifies the connection is alive.
func (s *MongoStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("mongo store: not connected")
	}
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}

//endregion

//region Store

func (s *MongoStore) coll(table string) *mongo.Collection {
	if s.client == nil {
		panic("mongo store: not connected")
	}
	if table == "" {
		panic("mongo store: table name is empty")
	}
	return s.client.Database(s.database).Collection(table)
}

// Insert writes one document. A duplicate key is reported as an
// unacknowledged write, not an error, so the repository fails softly.
func (s *MongoStore) Insert(ctx context.Context, table string, doc core.Document) (core.WriteResult, error) {
	_, err := s.coll(table).InsertOne(ctx, bson.M(doc))
	if mongo.IsDuplicateKeyError(err) {
		return core.WriteResult{Ok: false}, nil
	}
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("mongo store: insert into %s: %w", table, err)
	}
	return core.WriteResult{Ok: true, N: 1}, nil
}

// Update applies a $set of the document's fields to every match.
func (s *MongoStore) Update(ctx context.Context, table string, condition *core.Condition, doc core.Document) (core.WriteResult, error) {
	res, err := s.coll(table).UpdateMany(ctx, buildFilter(condition), bson.M{"$set": bson.M(doc)})
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("mongo store: update %s: %w", table, err)
	}
	return core.WriteResult{Ok: true, N: res.MatchedCount}, nil
}

// Remove deletes every match and acknowledges regardless of the count.
func (s *MongoStore) Remove(ctx context.Context, table string, condition *core.Condition) (bool, error) {
	if _, err := s.coll(table).DeleteMany(ctx, buildFilter(condition)); err != nil {
		return false, fmt.Errorf("mongo store: remove from %s: %w", table, err)
	}
	return true, nil
}

// Find translates the query into native find options and streams the
// results through a normalizing cursor.
func (s *MongoStore) Find(ctx context.Context, table string, where *core.Where) (core.Cursor, error) {
	if where == nil {
		where = &core.Where{}
	}

	opts := mopt.Find()
	if len(where.Sort) > 0 {
		sortDoc := bson.D{}
		for _, rule := range where.Sort {
			sortDoc = append(sortDoc, bson.E{Key: rule.FieldName, Value: rule.Order})
		}
		opts.SetSort(sortDoc)
	}
	if where.Limit > 0 {
		opts.SetLimit(int64(where.Limit))
	}
	if where.Offset > 0 {
		opts.SetSkip(int64(where.Offset))
	}
	if len(where.Fields) > 0 {
		projection := bson.M{}
		includeID := false
		for _, field := range where.Fields {
			projection[field] = 1
			if field == "_id" {
				includeID = true
			}
		}
		// _id is returned by default and must be excluded explicitly
		if !includeID {
			projection["_id"] = 0
		}
		opts.SetProjection(projection)
	}

	cur, err := s.coll(table).Find(ctx, buildFilter(where.Condition), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo store: find in %s: %w", table, err)
	}
	return &mongoCursor{cur: cur}, nil
}

// Count runs a server-side count over the matching documents.
func (s *MongoStore) Count(ctx context.Context, table string, condition *core.Condition) (int64, error) {
	n, err := s.coll(table).CountDocuments(ctx, buildFilter(condition))
	if err != nil {
		return 0, fmt.Errorf("mongo store: count %s: %w", table, err)
	}
	return n, nil
}

//endregion

//region Filter

// buildFilter translates a condition tree into a native filter document.
// A nil or incomplete condition matches everything.
func buildFilter(condition *core.Condition) bson.M {
	if condition == nil || condition.Operator == nil {
		return bson.M{}
	}

	if len(condition.Children) > 0 {
		parts := make([]bson.M, 0, len(condition.Children))
		for _, child := range condition.Children {
			parts = append(parts, buildFilter(child))
		}
		switch *condition.Operator {
		case core.OpAnd:
			return bson.M{"$and": parts}
		case core.OpOr:
			return bson.M{"$or": parts}
		case core.OpNot:
			return bson.M{"$nor": parts}
		default:
			return bson.M{}
		}
	}

	field := condition.FieldName
	switch *condition.Operator {
	case core.OpNil:
		// $eq nil matches both null values and absent fields
		return bson.M{field: bson.M{"$eq": nil}}
	case core.OpEq:
		return bson.M{field: condition.Value}
	case core.OpGt:
		return bson.M{field: bson.M{"$gt": condition.Value}}
	case core.OpGte:
		return bson.M{field: bson.M{"$gte": condition.Value}}
	case core.OpLt:
		return bson.M{field: bson.M{"$lt": condition.Value}}
	case core.OpLte:
		return bson.M{field: bson.M{"$lte": condition.Value}}
	case core.OpLike:
		pattern := toMongoLikePattern(fmt.Sprintf("%v", condition.Value))
		return bson.M{field: primitive.Regex{Pattern: pattern, Options: "i"}}
	case core.OpIn:
		return bson.M{field: bson.M{"$in": condition.Value}}
	default:
		return bson.M{}
	}
}

//endregion

//region Cursor

// mongoCursor adapts a native cursor, normalizing BSON values into plain
// documents as it walks.
type mongoCursor struct {
	cur *mongo.Cursor
	doc core.Document
	err error
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next(ctx) {
		return false
	}
	var raw bson.M
	if err := c.cur.Decode(&raw); err != nil {
		c.err = fmt.Errorf("mongo store: decode document: %w", err)
		return false
	}
	c.doc = normalizeDocument(raw)
	return true
}

func (c *mongoCursor) Document() core.Document { return c.doc }

func (c *mongoCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *mongoCursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }

//endregion
