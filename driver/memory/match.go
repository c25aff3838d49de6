// Package driver implements the in-memory store, the reference backend
// used for tests and as the matching engine shared with other drivers.
// This file evaluates condition trees against documents.
package driver

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tabula-io/tabula/core"
)

// Match reports whether the document satisfies the condition. A nil or
// incomplete condition matches everything.
func Match(doc core.Document, condition *core.Condition) bool {
	if condition == nil || condition.Operator == nil {
		return true
	}

	if len(condition.Children) > 0 {
		switch *condition.Operator {
		case core.OpAnd:
			for _, child := range condition.Children {
				if !Match(doc, child) {
					return false
				}
			}
			return true
		case core.OpOr:
			for _, child := range condition.Children {
				if Match(doc, child) {
					return true
				}
			}
			return false
		case core.OpNot:
			for _, child := range condition.Children {
				if Match(doc, child) {
					return false
				}
			}
			return true
		default:
			return false
		}
	}

	value, exists := doc[condition.FieldName]
	switch *condition.Operator {
	case core.OpNil:
		return !exists || value == nil
	case core.OpEq:
		return exists && equalValues(value, condition.Value)
	case core.OpGt:
		cmp, ok := compareValues(value, condition.Value)
		return exists && ok && cmp > 0
	case core.OpGte:
		cmp, ok := compareValues(value, condition.Value)
		return exists && ok && cmp >= 0
	case core.OpLt:
		cmp, ok := compareValues(value, condition.Value)
		return exists && ok && cmp < 0
	case core.OpLte:
		cmp, ok := compareValues(value, condition.Value)
		return exists && ok && cmp <= 0
	case core.OpLike:
		return exists && matchLike(value, condition.Value)
	case core.OpIn:
		if !exists {
			return false
		}
		for _, candidate := range valueList(condition.Value) {
			if equalValues(value, candidate) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// ApplyWhere runs the full query shape over a document slice: filter,
// sort, offset, limit, and projection. The input slice is not modified.
func ApplyWhere(docs []core.Document, where *core.Where) []core.Document {
	if where == nil {
		where = &core.Where{}
	}

	matched := make([]core.Document, 0, len(docs))
	for _, doc := range docs {
		if Match(doc, where.Condition) {
			matched = append(matched, doc)
		}
	}

	if len(where.Sort) > 0 {
		sortDocuments(matched, where.Sort)
	}

	if where.Offset > 0 {
		if where.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[where.Offset:]
		}
	}
	if where.Limit > 0 && where.Limit < len(matched) {
		matched = matched[:where.Limit]
	}

	if len(where.Fields) > 0 {
		projected := make([]core.Document, len(matched))
		for i, doc := range matched {
			out := make(core.Document, len(where.Fields))
			for _, field := range where.Fields {
				if value, ok := doc[field]; ok {
					out[field] = value
				}
			}
			projected[i] = out
		}
		matched = projected
	}
	return matched
}

func sortDocuments(docs []core.Document, sorts []core.Sort) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range sorts {
			cmp, ok := compareValues(docs[i][s.FieldName], docs[j][s.FieldName])
			if !ok || cmp == 0 {
				continue
			}
			if s.Order == core.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// equalValues compares loosely: numeric kinds compare by value, times by
// instant, everything else by deep equality.
func equalValues(a, b any) bool {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Equal(tb)
		}
	}
	if fa, ok := toFloat64(a); ok {
		if fb, ok := toFloat64(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values when they share a comparable kind:
// times by instant, numbers by value, strings lexicographically.
func compareValues(a, b any) (int, bool) {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			switch {
			case ta.Before(tb):
				return -1, true
			case ta.After(tb):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if fa, ok := toFloat64(a); ok {
		if fb, ok := toFloat64(b); ok {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// asTime recognizes time values and the datetime strings JSON-backed
// stores round-trip through.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// matchLike implements anchored, case-insensitive SQL LIKE semantics:
// % matches any run, _ matches one character.
func matchLike(value, pattern any) bool {
	re, err := likeRegexp(fmt.Sprintf("%v", pattern))
	if err != nil {
		return false
	}
	return re.MatchString(fmt.Sprintf("%v", value))
}

func likeRegexp(pattern string) (*regexp.Regexp, error) {
	escaped := strings.NewReplacer("%", "\x00", "_", "\x01").Replace(pattern)
	escaped = regexp.QuoteMeta(escaped)
	escaped = strings.NewReplacer("\x00", ".*", "\x01", ".").Replace(escaped)
	return regexp.Compile("(?i)^" + escaped + "$")
}

func valueList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
