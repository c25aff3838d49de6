// Package driver implements the PostgreSQL store. Each logical table is
// backed by a relation with a single jsonb column named doc.
// This file renders condition trees as SQL over the doc column.
package driver

import (
	"fmt"
	"strings"
	"time"

	"github.com/tabula-io/tabula/core"
)

// buildCondition renders a condition tree as a WHERE fragment, appending
// arguments to argList so placeholders stay positional. A nil or
// incomplete condition matches everything.
func buildCondition(condition *core.Condition, argList *[]any) string {
	if condition == nil || condition.Operator == nil {
		return "1=1"
	}

	if len(condition.Children) > 0 {
		partList := make([]string, 0, len(condition.Children))
		for _, child := range condition.Children {
			partList = append(partList, buildCondition(child, argList))
		}
		switch *condition.Operator {
		case core.OpAnd:
			return "(" + strings.Join(partList, " AND ") + ")"
		case core.OpOr:
			return "(" + strings.Join(partList, " OR ") + ")"
		case core.OpNot:
			// matches when no child does
			return "NOT (" + strings.Join(partList, " OR ") + ")"
		}
		return "1=1"
	}

	accessor := fieldAccessor(condition.FieldName, condition.Value)
	switch *condition.Operator {
	case core.OpNil:
		// ->> yields SQL NULL for both absent fields and json null
		return accessor + " IS NULL"
	case core.OpEq:
		*argList = append(*argList, condition.Value)
		return fmt.Sprintf("%s = $%d", accessor, len(*argList))
	case core.OpGt:
		*argList = append(*argList, condition.Value)
		return fmt.Sprintf("%s > $%d", accessor, len(*argList))
	case core.OpGte:
		*argList = append(*argList, condition.Value)
		return fmt.Sprintf("%s >= $%d", accessor, len(*argList))
	case core.OpLt:
		*argList = append(*argList, condition.Value)
		return fmt.Sprintf("%s < $%d", accessor, len(*argList))
	case core.OpLte:
		*argList = append(*argList, condition.Value)
		return fmt.Sprintf("%s <= $%d", accessor, len(*argList))
	case core.OpLike:
		*argList = append(*argList, fmt.Sprintf("%v", condition.Value))
		return fmt.Sprintf("%s ILIKE $%d", accessor, len(*argList))
	case core.OpIn:
		valueList, _ := condition.Value.([]any)
		if len(valueList) == 0 {
			return "1=0"
		}
		placeholderList := make([]string, 0, len(valueList))
		for _, value := range valueList {
			*argList = append(*argList, value)
			placeholderList = append(placeholderList, fmt.Sprintf("$%d", len(*argList)))
		}
		return fmt.Sprintf("%s IN (%s)", accessor, strings.Join(placeholderList, ", "))
	}
	return "1=1"
}

// fieldAccessor returns the expression extracting a field from the doc
// column, cast so the comparison lines up with the value's type. Text
// stays text, numbers compare as numeric, times as timestamptz.
func fieldAccessor(field string, value any) string {
	base := "doc->>" + quoteLiteral(field)
	switch v := value.(type) {
	case nil, string:
		return base
	case bool:
		return "(" + base + ")::boolean"
	case time.Time, *time.Time:
		return "(" + base + ")::timestamptz"
	case []any:
		// IN lists take their cast from the first element
		if len(v) > 0 {
			return fieldAccessor(field, v[0])
		}
		return base
	default:
		if isNumericValue(value) {
			return "(" + base + ")::numeric"
		}
		return base
	}
}

// buildOrderBy renders sort rules against the jsonb arrow accessor so
// values order by their json type instead of lexically.
func buildOrderBy(sortList []core.Sort) string {
	partList := make([]string, 0, len(sortList))
	for _, rule := range sortList {
		direction := "ASC"
		if rule.Order < 0 {
			direction = "DESC"
		}
		partList = append(partList, "doc->"+quoteLiteral(rule.FieldName)+" "+direction)
	}
	return strings.Join(partList, ", ")
}

func formatTable(table string) string {
	if table == "" {
		panic("postgres store: table name is empty")
	}
	return fmt.Sprintf("%q", table)
}

func quoteLiteral(field string) string {
	return "'" + strings.ReplaceAll(field, "'", "''") + "'"
}

func isNumericValue(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// projectDocument keeps only the requested fields. An empty list keeps
// the whole document.
func projectDocument(doc core.Document, fields []string) core.Document {
	if len(fields) == 0 {
		return doc
	}
	out := make(core.Document, len(fields))
	for _, field := range fields {
		if value, ok := doc[field]; ok {
			out[field] = value
		}
	}
	return out
}
