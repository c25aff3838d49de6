// Package driver implements the DynamoDB store. Targeted operations run
// against the key attribute; everything else falls back to filtered
// scans shaped client side.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tabula-io/tabula/core"
	memdriver "github.com/tabula-io/tabula/driver/memory"
)

// defaultKeyField is the attribute used as the partition key.
const defaultKeyField = "_id"

// DynamoStore maps each logical table to a DynamoDB table keyed by a
// single hash attribute. The client is injected so callers control
// credentials, region and endpoint.
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := driver.NewDynamoStore(dynamodb.NewFromConfig(cfg),
//	    driver.WithTablePrefix("app_"))
type DynamoStore struct {
	client      *dynamodb.Client
	tablePrefix string
	keyField    string
}

// DynamoOption adjusts how the store addresses its tables.
type DynamoOption func(*DynamoStore)

// WithTablePrefix prepends a namespace to every table name.
func WithTablePrefix(prefix string) DynamoOption {
	return func(s *DynamoStore) { s.tablePrefix = prefix }
}

// WithKeyField overrides the attribute used as the partition key.
func WithKeyField(field string) DynamoOption {
	return func(s *DynamoStore) { s.keyField = field }
}

var (
	_ core.Store     = (*DynamoStore)(nil)
	_ core.Connector = (*DynamoStore)(nil)
)

// NewDynamoStore builds a store around an already configured client.
func NewDynamoStore(client *dynamodb.Client, opts ...DynamoOption) *DynamoStore {
	if client == nil {
		panic("dynamo store: client is nil")
	}
	store := &DynamoStore{client: client, keyField: defaultKeyField}
	for _, opt := range opts {
		opt(store)
	}
	if store.keyField == "" {
		panic("dynamo store: key field is empty")
	}
	return store
}

//region Lifecycle

// Connect is a no-op; the injected client is already configured.
func (s *DynamoStore) Connect(ctx context.Context) error { return nil }

// Ping verifies the service is reachable.
func (s *DynamoStore) Ping(ctx context.Context) error {
	if _, err := s.client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		return fmt.Errorf("dynamo store: ping: %w", err)
	}
	return nil
}

// Close is a no-op; the client owns no local resources.
func (s *DynamoStore) Close(ctx context.Context) error { return nil }

// EnsureTable creates the backing table with the key field as hash key
// when it does not exist yet, then waits until it is ready.
func (s *DynamoStore) EnsureTable(ctx context.Context, table string) error {
	name := s.tableName(table)

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("dynamo store: describe table %s: %w", table, err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(s.keyField), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(s.keyField), KeyType: types.KeyTypeHash},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamo store: create table %s: %w", table, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, 2*time.Minute); err != nil {
		return fmt.Errorf("dynamo store: wait for table %s: %w", table, err)
	}
	return nil
}

func (s *DynamoStore) tableName(table string) string {
	if table == "" {
		panic("dynamo store: table name is empty")
	}
	return s.tablePrefix + table
}

//endregion

//region Store

// Insert writes one item guarded by a conditional put, so a key clash
// is reported as an unacknowledged write instead of an error.
func (s *DynamoStore) Insert(ctx context.Context, table string, doc core.Document) (core.WriteResult, error) {
	if _, ok := doc[s.keyField]; !ok {
		return core.WriteResult{}, fmt.Errorf("dynamo store: document misses key field %s", s.keyField)
	}
	item, err := attributevalue.MarshalMap(map[string]any(doc))
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("dynamo store: encode document: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tableName(table)),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#key)"),
		ExpressionAttributeNames: map[string]string{"#key": s.keyField},
	})
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return core.WriteResult{Ok: false}, nil
	}
	if err != nil {
		return core.WriteResult{}, fmt.Errorf("dynamo store: insert into %s: %w", table, err)
	}
	return core.WriteResult{Ok: true, N: 1}, nil
}

// Update resolves the matching keys and applies a SET expression to each
// item. Items that vanish between resolution and update are skipped.
func (s *DynamoStore) Update(ctx context.Context, table string, condition *core.Condition, doc core.Document) (core.WriteResult, error) {
	keys, err := s.keysFor(ctx, table, condition)
	if err != nil {
		return core.WriteResult{}, err
	}

	updated := int64(0)
	for _, key := range keys {
		ok, err := s.updateItem(ctx, table, key, doc)
		if err != nil {
			return core.WriteResult{}, err
		}
		if ok {
			updated++
		}
	}
	return core.WriteResult{Ok: true, N: updated}, nil
}

// Remove resolves the matching keys, deletes each item and acknowledges
// regardless of the count.
func (s *DynamoStore) Remove(ctx context.Context, table string, condition *core.Condition) (bool, error) {
	keys, err := s.keysFor(ctx, table, condition)
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		keyAV, err := attributevalue.Marshal(key)
		if err != nil {
			return false, fmt.Errorf("dynamo store: encode key: %w", err)
		}
		if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName(table)),
			Key:       map[string]types.AttributeValue{s.keyField: keyAV},
		}); err != nil {
			return false, fmt.Errorf("dynamo store: remove from %s: %w", table, err)
		}
	}
	return true, nil
}

// Find takes the targeted get path when the condition pins the key to a
// single value, and a filtered scan otherwise. Ordering, pagination and
// projection are applied client side because scans return items in key
// order only.
func (s *DynamoStore) Find(ctx context.Context, table string, where *core.Where) (core.Cursor, error) {
	if where == nil {
		where = &core.Where{}
	}

	var docs []core.Document
	if key, ok := s.extractKeyValue(where.Condition); ok {
		doc, err := s.getItem(ctx, table, key)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	} else {
		scanned, err := s.scanDocuments(ctx, table, where.Condition)
		if err != nil {
			return nil, err
		}
		docs = scanned
	}

	shape := &core.Where{Sort: where.Sort, Limit: where.Limit, Offset: where.Offset, Fields: where.Fields}
	return core.NewSliceCursor(memdriver.ApplyWhere(docs, shape)), nil
}

// Count prefers a server-side COUNT scan and falls back to counting a
// locally filtered scan when the condition is not expressible.
func (s *DynamoStore) Count(ctx context.Context, table string, condition *core.Condition) (int64, error) {
	filter, err := buildFilterExpression(condition)
	if errors.Is(err, errUnsupportedExpression) {
		docs, err := s.scanDocuments(ctx, table, condition)
		if err != nil {
			return 0, err
		}
		return int64(len(docs)), nil
	}
	if err != nil {
		return 0, err
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(s.tableName(table)),
		Select:    types.SelectCount,
	}
	if filter != nil {
		input.FilterExpression = aws.String(filter.Expression)
		input.ExpressionAttributeNames = filter.Names
		input.ExpressionAttributeValues = filter.Values
	}

	total := int64(0)
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("dynamo store: count %s: %w", table, err)
		}
		total += int64(page.Count)
	}
	return total, nil
}

//endregion

//region Items

func (s *DynamoStore) getItem(ctx context.Context, table string, key any) (core.Document, error) {
	keyAV, err := attributevalue.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("dynamo store: encode key: %w", err)
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName(table)),
		Key:       map[string]types.AttributeValue{s.keyField: keyAV},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo store: get from %s: %w", table, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var raw map[string]any
	if err := attributevalue.UnmarshalMap(out.Item, &raw); err != nil {
		return nil, fmt.Errorf("dynamo store: decode item: %w", err)
	}
	return core.Document(raw), nil
}

func (s *DynamoStore) updateItem(ctx context.Context, table string, key any, doc core.Document) (bool, error) {
	names := map[string]string{"#key": s.keyField}
	values := map[string]types.AttributeValue{}
	setParts := []string{}
	index := 0
	for field, value := range doc {
		if field == s.keyField {
			continue
		}
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return false, fmt.Errorf("dynamo store: encode value: %w", err)
		}
		namePH := fmt.Sprintf("#f%d", index)
		valuePH := fmt.Sprintf(":v%d", index)
		names[namePH] = field
		values[valuePH] = av
		setParts = append(setParts, namePH+" = "+valuePH)
		index++
	}
	if len(setParts) == 0 {
		return false, nil
	}

	keyAV, err := attributevalue.Marshal(key)
	if err != nil {
		return false, fmt.Errorf("dynamo store: encode key: %w", err)
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName(table)),
		Key:                       map[string]types.AttributeValue{s.keyField: keyAV},
		UpdateExpression:          aws.String("SET " + strings.Join(setParts, ", ")),
		ConditionExpression:       aws.String("attribute_exists(#key)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dynamo store: update %s: %w", table, err)
	}
	return true, nil
}

// keysFor resolves the key values of every item the condition matches.
func (s *DynamoStore) keysFor(ctx context.Context, table string, condition *core.Condition) ([]any, error) {
	if key, ok := s.extractKeyValue(condition); ok {
		return []any{key}, nil
	}
	docs, err := s.scanDocuments(ctx, table, condition)
	if err != nil {
		return nil, err
	}
	keys := make([]any, 0, len(docs))
	for _, doc := range docs {
		if key, ok := doc[s.keyField]; ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// extractKeyValue recognizes a condition that pins the key field to one
// value, enabling targeted item operations instead of scans.
func (s *DynamoStore) extractKeyValue(condition *core.Condition) (any, bool) {
	if condition == nil || condition.Operator == nil || len(condition.Children) > 0 {
		return nil, false
	}
	if condition.FieldName != s.keyField || *condition.Operator != core.OpEq {
		return nil, false
	}
	return condition.Value, true
}

// scanDocuments pages through the table. The condition runs server side
// when it is expressible as a filter, and locally otherwise.
func (s *DynamoStore) scanDocuments(ctx context.Context, table string, condition *core.Condition) ([]core.Document, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(s.tableName(table))}

	clientFilter := condition
	filter, err := buildFilterExpression(condition)
	switch {
	case err == nil && filter != nil:
		input.FilterExpression = aws.String(filter.Expression)
		input.ExpressionAttributeNames = filter.Names
		input.ExpressionAttributeValues = filter.Values
		clientFilter = nil
	case errors.Is(err, errUnsupportedExpression):
		// full scan, matched locally below
	case err != nil:
		return nil, err
	}

	docs := []core.Document{}
	paginator := dynamodb.NewScanPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamo store: scan %s: %w", table, err)
		}
		for _, item := range page.Items {
			var raw map[string]any
			if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
				return nil, fmt.Errorf("dynamo store: decode item: %w", err)
			}
			doc := core.Document(raw)
			if clientFilter == nil || memdriver.Match(doc, clientFilter) {
				docs = append(docs, doc)
			}
		}
	}
	return docs, nil
}

//endregion
