// Package core provides the fundamental building blocks of the tabula ODM.
// This file defines the fluent query builder and the driver-facing Where.
package core

// Sort orders for Query.OrderBy and Sort.Order.
const (
	SortAsc  = 1
	SortDesc = -1
)

// Sort represents one ordering rule: a document field and a direction.
type Sort struct {
	FieldName string // field to order by
	Order     int    // SortAsc (1) or SortDesc (-1)
}

// Where captures the driver-facing shape of a query: filter, ordering,
// pagination, and projection. Store drivers translate it into their native
// query syntax and never see the fluent builder.
type Where struct {
	Condition *Condition // filter tree, nil matches everything
	Sort      []Sort     // ordering rules, applied in sequence
	Limit     int        // maximum results, 0 means unbounded
	Offset    int        // results to skip before returning
	Fields    []string   // projection, empty means all fields
}

// Query represents a fluent query builder for repository find operations.
//
// It allows chaining of filtering, ordering, pagination, and projection.
//
// Example:
//
//	posts, _ := repo.Find(ctx, core.FinderAll,
//		core.NewQuery().
//			Where(core.Field("status").Eq("published")).
//			OrderBy("created", core.SortDesc).
//			Limit(10))
type Query struct {
	where Where
}

// NewQuery creates an empty query that matches every document.
func NewQuery() *Query {
	return &Query{}
}

// Where narrows the query with the given conditions. Multiple conditions,
// whether passed together or across calls, are combined with AND.
func (q *Query) Where(conditions ...*Condition) *Query {
	merged := append([]*Condition{q.where.Condition}, conditions...)
	q.where.Condition = foldConditionsAnd(merged...)
	return q
}

// OrderBy adds an ordering rule to the query.
//
// Field is the document field name, and order is SortAsc (1) or SortDesc (-1).
func (q *Query) OrderBy(field string, order int) *Query {
	q.where.Sort = append(q.where.Sort, Sort{FieldName: field, Order: order})
	return q
}

// Limit sets the maximum number of results to return.
func (q *Query) Limit(limit int) *Query {
	q.where.Limit = limit
	return q
}

// Offset sets the number of documents to skip before returning results.
func (q *Query) Offset(offset int) *Query {
	q.where.Offset = offset
	return q
}

// Select restricts the returned documents to the named fields.
func (q *Query) Select(fields ...string) *Query {
	q.where.Fields = append(q.where.Fields, fields...)
	return q
}

// Build returns the driver-facing form of the query. It is nil-safe: a nil
// query builds into a Where that matches everything.
func (q *Query) Build() *Where {
	if q == nil {
		return &Where{}
	}
	built := q.where
	return &built
}

// Clone returns a copy of the query that can be modified without touching
// the original. The condition tree is shared, the slices are copied.
func (q *Query) Clone() *Query {
	if q == nil {
		return NewQuery()
	}
	return &Query{where: Where{
		Condition: q.where.Condition,
		Sort:      append([]Sort(nil), q.where.Sort...),
		Limit:     q.where.Limit,
		Offset:    q.where.Offset,
		Fields:    append([]string(nil), q.where.Fields...),
	}}
}
