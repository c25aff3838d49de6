package driver_test

import (
	"context"
	"testing"

	"github.com/tabula-io/tabula/core"
	driver "github.com/tabula-io/tabula/driver/memory"
)

func collect(t *testing.T, cursor core.Cursor) []core.Document {
	t.Helper()
	ctx := context.Background()
	defer cursor.Close(ctx)
	var docs []core.Document
	for cursor.Next(ctx) {
		docs = append(docs, cursor.Document())
	}
	if err := cursor.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}
	return docs
}

func seedPosts(t *testing.T) *driver.MemoryStore {
	t.Helper()
	store := driver.NewMemoryStore()
	ctx := context.Background()
	docs := []core.Document{
		{"_id": "1", "title": "Alpha", "views": 10, "status": "published"},
		{"_id": "2", "title": "Beta", "views": 30, "status": "draft"},
		{"_id": "3", "title": "Gamma", "views": 20, "status": "published"},
	}
	for _, doc := range docs {
		if _, err := store.Insert(ctx, "posts", doc); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}
	return store
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("insert and find all", func(t *testing.T) {
		store := seedPosts(t)
		cursor, err := store.Find(ctx, "posts", &core.Where{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if docs := collect(t, cursor); len(docs) != 3 {
			t.Fatalf("expected 3 documents, got %d", len(docs))
		}
	})

	t.Run("found documents are detached copies", func(t *testing.T) {
		store := seedPosts(t)
		cursor, _ := store.Find(ctx, "posts", &core.Where{})
		docs := collect(t, cursor)
		docs[0]["title"] = "mutated"

		n, err := store.Count(ctx, "posts", core.Field("title").Eq("mutated"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Fatal("mutating a result must not touch the store")
		}
	})

	t.Run("update merges matching documents", func(t *testing.T) {
		store := seedPosts(t)
		res, err := store.Update(ctx, "posts",
			core.Field("status").Eq("published"), core.Document{"status": "archived"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Ok || res.N != 2 {
			t.Fatalf("expected 2 acknowledged updates, got %+v", res)
		}
		n, _ := store.Count(ctx, "posts", core.Field("status").Eq("archived"))
		if n != 2 {
			t.Fatalf("expected 2 archived posts, got %d", n)
		}
	})

	t.Run("update keeps untouched fields", func(t *testing.T) {
		store := seedPosts(t)
		if _, err := store.Update(ctx, "posts",
			core.Field("_id").Eq("1"), core.Document{"status": "archived"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cursor, _ := store.Find(ctx, "posts", &core.Where{Condition: core.Field("_id").Eq("1")})
		docs := collect(t, cursor)
		if docs[0]["title"] != "Alpha" {
			t.Fatalf("expected the title to survive, got %v", docs[0]["title"])
		}
	})

	t.Run("remove drops matches and acknowledges", func(t *testing.T) {
		store := seedPosts(t)
		ok, err := store.Remove(ctx, "posts", core.Field("status").Eq("draft"))
		if err != nil || !ok {
			t.Fatalf("expected an acknowledged remove, got %v/%v", ok, err)
		}
		n, _ := store.Count(ctx, "posts", nil)
		if n != 2 {
			t.Fatalf("expected 2 remaining documents, got %d", n)
		}
	})

	t.Run("remove of nothing still acknowledges", func(t *testing.T) {
		store := seedPosts(t)
		ok, err := store.Remove(ctx, "posts", core.Field("_id").Eq("absent"))
		if err != nil || !ok {
			t.Fatalf("expected an acknowledged remove, got %v/%v", ok, err)
		}
	})

	t.Run("count with condition", func(t *testing.T) {
		store := seedPosts(t)
		n, err := store.Count(ctx, "posts", core.Field("views").Gt(15))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2, got %d", n)
		}
	})

	t.Run("unknown table behaves as empty", func(t *testing.T) {
		store := driver.NewMemoryStore()
		n, err := store.Count(ctx, "ghosts", nil)
		if err != nil || n != 0 {
			t.Fatalf("expected an empty table, got %d/%v", n, err)
		}
	})
}

func TestFindShaping(t *testing.T) {
	ctx := context.Background()

	t.Run("sort descending with limit and offset", func(t *testing.T) {
		store := seedPosts(t)
		where := &core.Where{
			Sort:   []core.Sort{{FieldName: "views", Order: core.SortDesc}},
			Limit:  1,
			Offset: 1,
		}
		cursor, _ := store.Find(ctx, "posts", where)
		docs := collect(t, cursor)
		if len(docs) != 1 || docs[0]["title"] != "Gamma" {
			t.Fatalf("expected the second-most viewed post, got %v", docs)
		}
	})

	t.Run("projection keeps only the requested fields", func(t *testing.T) {
		store := seedPosts(t)
		where := &core.Where{Fields: []string{"_id", "title"}}
		cursor, _ := store.Find(ctx, "posts", where)
		for _, doc := range collect(t, cursor) {
			if _, ok := doc["views"]; ok {
				t.Fatalf("expected views to be projected away, got %v", doc)
			}
			if _, ok := doc["title"]; !ok {
				t.Fatalf("expected title to survive, got %v", doc)
			}
		}
	})

	t.Run("offset beyond the result set yields nothing", func(t *testing.T) {
		store := seedPosts(t)
		cursor, _ := store.Find(ctx, "posts", &core.Where{Offset: 10})
		if docs := collect(t, cursor); len(docs) != 0 {
			t.Fatalf("expected no documents, got %d", len(docs))
		}
	})
}

func TestMatch(t *testing.T) {
	doc := core.Document{"title": "Hello World", "views": 20, "status": "published", "deleted": nil}

	cases := []struct {
		name      string
		condition *core.Condition
		want      bool
	}{
		{"nil condition matches", nil, true},
		{"missing operator matches", &core.Condition{FieldName: "status"}, true},
		{"eq hit", core.Field("status").Eq("published"), true},
		{"eq miss", core.Field("status").Eq("draft"), false},
		{"eq across numeric kinds", core.Field("views").Eq(int64(20)), true},
		{"gt hit", core.Field("views").Gt(10), true},
		{"gt miss", core.Field("views").Gt(20), false},
		{"gte boundary", core.Field("views").Gte(20), true},
		{"lt hit", core.Field("views").Lt(30), true},
		{"lte boundary", core.Field("views").Lte(20), true},
		{"nil operator on nil value", core.Field("deleted").Nil(), true},
		{"nil operator on absent field", core.Field("missing").Nil(), true},
		{"nil operator on present value", core.Field("views").Nil(), false},
		{"like prefix", core.Field("title").Like("Hello%"), true},
		{"like infix", core.Field("title").Like("%World"), true},
		{"like is case insensitive", core.Field("title").Like("hello%"), true},
		{"like is anchored", core.Field("title").Like("World"), false},
		{"like single char wildcard", core.Field("title").Like("Hell_ World"), true},
		{"in hit", core.Field("status").In("draft", "published"), true},
		{"in miss", core.Field("status").In("draft", "archived"), false},
		{"and", core.Field("views").Gt(10).And(core.Field("status").Eq("published")), true},
		{"and short circuit", core.Field("views").Gt(100).And(core.Field("status").Eq("published")), false},
		{"or", core.Field("views").Gt(100).Or(core.Field("status").Eq("published")), true},
		{"not", core.Field("status").Eq("draft").Not(), true},
		{"gt on absent field", core.Field("missing").Gt(1), false},
		{"incomparable kinds", core.Field("title").Gt(10), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := driver.Match(doc, tc.condition); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
