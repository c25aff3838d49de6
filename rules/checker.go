// Package rules provides the application rule checker consulted by the
// repository before a save reaches the store.
package rules

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tabula-io/tabula/core"
)

// fieldRules binds a validation rule list to one entity field, optionally
// scoped to a single save mode.
type fieldRules struct {
	field string
	mode  core.Mode // zero value applies to both modes
	rules []validation.Rule
}

// Checker validates entity attributes with ozzo-validation rules. A failed
// rule files its message on the entity and aborts the save softly.
//
// Example:
//
//	checker := rules.NewChecker().
//	    Field("title", validation.Required, validation.Length(1, 255)).
//	    FieldOn(core.ModeCreate, "author", validation.Required)
//
//	repo := core.New(table, store, core.WithRules(checker))
type Checker struct {
	list []fieldRules
}

var _ core.RuleChecker = (*Checker)(nil)

// NewChecker creates a checker with no rules. A checker with no rules
// passes every entity.
func NewChecker() *Checker {
	return &Checker{}
}

// Field adds rules for one attribute, applied on both create and update.
func (c *Checker) Field(name string, rules ...validation.Rule) *Checker {
	c.list = append(c.list, fieldRules{field: name, rules: rules})
	return c
}

// FieldOn adds rules for one attribute, applied only in the given mode.
func (c *Checker) FieldOn(mode core.Mode, name string, rules ...validation.Rule) *Checker {
	c.list = append(c.list, fieldRules{field: name, mode: mode, rules: rules})
	return c
}

// Check runs every applicable rule against the entity's attributes. All
// failures are filed on the entity before the verdict is returned, so a
// caller sees every broken rule at once.
func (c *Checker) Check(ctx context.Context, entity *core.Entity, mode core.Mode, _ core.SaveOptions) bool {
	ok := true
	for _, fr := range c.list {
		if fr.mode != 0 && fr.mode != mode {
			continue
		}
		value, _ := entity.Get(fr.field)
		if err := validation.ValidateWithContext(ctx, value, fr.rules...); err != nil {
			entity.AddError(fr.field, err.Error())
			ok = false
		}
	}
	return ok
}
