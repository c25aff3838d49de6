// Package core provides the fundamental building blocks of the tabula ODM.
// This file builds the deterministic cache keys used for find results.
package core

import (
	"fmt"
	"strings"
)

// cacheKeySeparator joins the cache key segments: table, finder kind, and
// serialized query. Table-prefix invalidation relies on it.
const cacheKeySeparator = "::"

func cacheKeyPrefix(table string) string {
	return table + cacheKeySeparator
}

func findCacheKey(table, kind string, q *Query) string {
	return strings.Join([]string{table, kind, serializeWhere(q.Build())}, cacheKeySeparator)
}

func serializeWhere(w *Where) string {
	var b strings.Builder
	serializeCondition(&b, w.Condition)
	for _, s := range w.Sort {
		fmt.Fprintf(&b, "|sort:%s:%d", s.FieldName, s.Order)
	}
	if w.Limit != 0 {
		fmt.Fprintf(&b, "|limit:%d", w.Limit)
	}
	if w.Offset != 0 {
		fmt.Fprintf(&b, "|offset:%d", w.Offset)
	}
	if len(w.Fields) > 0 {
		fmt.Fprintf(&b, "|fields:%s", strings.Join(w.Fields, ","))
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

func serializeCondition(b *strings.Builder, c *Condition) {
	if c == nil {
		return
	}
	if c.Operator == nil {
		fmt.Fprintf(b, "(%s)", c.FieldName)
		return
	}
	if len(c.Children) > 0 {
		fmt.Fprintf(b, "%s(", *c.Operator)
		for i, child := range c.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			serializeCondition(b, child)
		}
		b.WriteByte(')')
		return
	}
	fmt.Fprintf(b, "(%s %s %v)", c.FieldName, *c.Operator, c.Value)
}
