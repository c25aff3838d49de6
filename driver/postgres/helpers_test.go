package driver

import (
	"reflect"
	"testing"
	"time"

	"github.com/tabula-io/tabula/core"
)

func TestBuildCondition(t *testing.T) {
	tests := []struct {
		name         string
		condition    *core.Condition
		expectedSQL  string
		expectedArgs []any
	}{
		{
			"nil condition matches everything",
			nil,
			"1=1",
			nil,
		},
		{
			"missing operator matches everything",
			&core.Condition{FieldName: "status"},
			"1=1",
			nil,
		},
		{
			"equality on text",
			core.Field("status").Eq("active"),
			"doc->>'status' = $1",
			[]any{"active"},
		},
		{
			"numeric comparison is cast",
			core.Field("views").Gt(10),
			"(doc->>'views')::numeric > $1",
			[]any{10},
		},
		{
			"boolean comparison is cast",
			core.Field("published").Eq(true),
			"(doc->>'published')::boolean = $1",
			[]any{true},
		},
		{
			"null check",
			core.Field("deleted").Nil(),
			"doc->>'deleted' IS NULL",
			nil,
		},
		{
			"like is case-insensitive",
			core.Field("title").Like("go%"),
			"doc->>'title' ILIKE $1",
			[]any{"go%"},
		},
		{
			"in list",
			core.Field("status").In("draft", "published"),
			"doc->>'status' IN ($1, $2)",
			[]any{"draft", "published"},
		},
		{
			"empty in list matches nothing",
			core.Field("status").In(),
			"1=0",
			nil,
		},
		{
			"and combines children",
			core.Field("status").Eq("active").And(core.Field("views").Gte(5)),
			"(doc->>'status' = $1 AND (doc->>'views')::numeric >= $2)",
			[]any{"active", 5},
		},
		{
			"or combines children",
			core.Field("status").Eq("draft").Or(core.Field("status").Eq("review")),
			"(doc->>'status' = $1 OR doc->>'status' = $2)",
			[]any{"draft", "review"},
		},
		{
			"not negates",
			core.Field("status").Eq("archived").Not(),
			"NOT (doc->>'status' = $1)",
			[]any{"archived"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			argList := []any{}
			got := buildCondition(tc.condition, &argList)
			if got != tc.expectedSQL {
				t.Fatalf("expected %q, got %q", tc.expectedSQL, got)
			}
			if len(tc.expectedArgs) == 0 && len(argList) == 0 {
				return
			}
			if !reflect.DeepEqual(argList, tc.expectedArgs) {
				t.Fatalf("expected args %v, got %v", tc.expectedArgs, argList)
			}
		})
	}
}

func TestBuildConditionPlaceholderOffset(t *testing.T) {
	// the update statement claims $1 for its payload before rendering
	argList := []any{[]byte(`{}`)}
	got := buildCondition(core.Field("_id").Eq("abc"), &argList)
	if expected := "doc->>'_id' = $2"; got != expected {
		t.Fatalf("expected %q, got %q", expected, got)
	}
	if len(argList) != 2 || argList[1] != "abc" {
		t.Fatalf("expected appended arg, got %v", argList)
	}
}

func TestFieldAccessor(t *testing.T) {
	instant := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		field    string
		value    any
		expected string
	}{
		{"string stays text", "title", "go", "doc->>'title'"},
		{"nil stays text", "deleted", nil, "doc->>'deleted'"},
		{"int casts to numeric", "views", 3, "(doc->>'views')::numeric"},
		{"float casts to numeric", "score", 1.5, "(doc->>'score')::numeric"},
		{"time casts to timestamptz", "created", instant, "(doc->>'created')::timestamptz"},
		{"list uses first element", "views", []any{1, 2}, "(doc->>'views')::numeric"},
		{"quote in field name is escaped", "o'brien", "x", "doc->>'o''brien'"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := fieldAccessor(tc.field, tc.value); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestBuildOrderBy(t *testing.T) {
	got := buildOrderBy([]core.Sort{
		{FieldName: "views", Order: core.SortDesc},
		{FieldName: "title", Order: core.SortAsc},
	})
	if expected := "doc->'views' DESC, doc->'title' ASC"; got != expected {
		t.Fatalf("expected %q, got %q", expected, got)
	}
}

func TestFormatTable(t *testing.T) {
	if got := formatTable("posts"); got != `"posts"` {
		t.Fatalf("expected quoted identifier, got %q", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty table name")
		}
	}()
	formatTable("")
}

func TestProjectDocument(t *testing.T) {
	doc := core.Document{"_id": "1", "title": "Go", "views": 10}

	projected := projectDocument(doc, []string{"_id", "title", "missing"})
	if len(projected) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(projected))
	}
	if projected["title"] != "Go" {
		t.Fatalf("expected Go, got %v", projected["title"])
	}
	if _, ok := projected["views"]; ok {
		t.Fatal("expected views to be dropped")
	}

	whole := projectDocument(doc, nil)
	if len(whole) != 3 {
		t.Fatalf("expected whole document, got %v", whole)
	}
}
