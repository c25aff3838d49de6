// Package driver implements the DynamoDB store.
// This file renders condition trees as scan filter expressions.
package driver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/tabula-io/tabula/core"
)

// errUnsupportedExpression reports a condition with no server-side
// equivalent; callers fall back to scanning and matching locally.
var errUnsupportedExpression = errors.New("dynamo store: condition not expressible as a filter")

// filterExpression is a rendered filter with its placeholder maps.
type filterExpression struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// buildFilterExpression renders a condition tree. A nil condition
// renders to nil, meaning no filter at all.
func buildFilterExpression(condition *core.Condition) (*filterExpression, error) {
	if condition == nil || condition.Operator == nil {
		return nil, nil
	}

	builder := &expressionBuilder{
		names:     map[string]string{},
		nameIndex: map[string]string{},
		values:    map[string]types.AttributeValue{},
	}
	expr, err := builder.render(condition)
	if err != nil {
		return nil, err
	}
	return &filterExpression{Expression: expr, Names: builder.names, Values: builder.values}, nil
}

// expressionBuilder hands out #n placeholders per distinct field and :v
// placeholders per value while rendering.
type expressionBuilder struct {
	names     map[string]string // placeholder -> attribute
	nameIndex map[string]string // attribute -> placeholder
	values    map[string]types.AttributeValue
}

func (b *expressionBuilder) name(field string) string {
	if placeholder, ok := b.nameIndex[field]; ok {
		return placeholder
	}
	placeholder := fmt.Sprintf("#n%d", len(b.nameIndex))
	b.nameIndex[field] = placeholder
	b.names[placeholder] = field
	return placeholder
}

func (b *expressionBuilder) value(v any) (string, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("dynamo store: encode value: %w", err)
	}
	placeholder := fmt.Sprintf(":v%d", len(b.values))
	b.values[placeholder] = av
	return placeholder, nil
}

func (b *expressionBuilder) render(condition *core.Condition) (string, error) {
	if condition.Operator == nil {
		return "", errUnsupportedExpression
	}

	if len(condition.Children) > 0 {
		parts := make([]string, 0, len(condition.Children))
		for _, child := range condition.Children {
			part, err := b.render(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		switch *condition.Operator {
		case core.OpAnd:
			return "(" + strings.Join(parts, " AND ") + ")", nil
		case core.OpOr:
			return "(" + strings.Join(parts, " OR ") + ")", nil
		case core.OpNot:
			// matches when no child does
			return "NOT (" + strings.Join(parts, " OR ") + ")", nil
		}
		return "", errUnsupportedExpression
	}

	name := b.name(condition.FieldName)
	switch *condition.Operator {
	case core.OpNil:
		placeholder, err := b.value(nil)
		if err != nil {
			return "", err
		}
		return "(attribute_not_exists(" + name + ") OR " + name + " = " + placeholder + ")", nil
	case core.OpEq:
		return b.compare(name, "=", condition.Value)
	case core.OpGt:
		return b.compare(name, ">", condition.Value)
	case core.OpGte:
		return b.compare(name, ">=", condition.Value)
	case core.OpLt:
		return b.compare(name, "<", condition.Value)
	case core.OpLte:
		return b.compare(name, "<=", condition.Value)
	case core.OpLike:
		// LIKE is case-insensitive; contains and begins_with are not
		return "", errUnsupportedExpression
	case core.OpIn:
		valueList, _ := condition.Value.([]any)
		if len(valueList) == 0 {
			return "", errUnsupportedExpression
		}
		placeholders := make([]string, 0, len(valueList))
		for _, value := range valueList {
			placeholder, err := b.value(value)
			if err != nil {
				return "", err
			}
			placeholders = append(placeholders, placeholder)
		}
		return name + " IN (" + strings.Join(placeholders, ", ") + ")", nil
	}
	return "", errUnsupportedExpression
}

func (b *expressionBuilder) compare(name, operator string, value any) (string, error) {
	placeholder, err := b.value(value)
	if err != nil {
		return "", err
	}
	return name + " " + operator + " " + placeholder, nil
}
