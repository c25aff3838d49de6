package core_test

import (
	"testing"
	"time"

	"github.com/tabula-io/tabula/core"
)

func postsTable() *core.Table {
	t := core.NewTable("posts", "_id")
	t.Alias = "Post"
	t.DisplayField = "title"
	return t
}

func TestToDocument(t *testing.T) {
	mapper := core.NewMapper(postsTable())

	t.Run("copies attributes", func(t *testing.T) {
		entity := core.NewEntity().Set("title", "Hello").Set("views", 3)
		doc := mapper.ToDocument(entity)
		if doc["title"] != "Hello" {
			t.Fatalf("expected title Hello, got %v", doc["title"])
		}
		if doc["views"] != 3 {
			t.Fatalf("expected views 3, got %v", doc["views"])
		}
	})

	t.Run("normalizes time values to whole seconds in UTC", func(t *testing.T) {
		zone := time.FixedZone("UTC+2", 2*60*60)
		stamp := time.Date(2026, time.March, 14, 15, 9, 26, 535_897_932, zone)
		entity := core.NewEntity().Set("created", stamp)

		doc := mapper.ToDocument(entity)
		got, ok := doc["created"].(time.Time)
		if !ok {
			t.Fatalf("expected time.Time, got %T", doc["created"])
		}
		want := time.Date(2026, time.March, 14, 13, 9, 26, 0, time.UTC)
		if !got.Equal(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		if got.Location() != time.UTC {
			t.Fatalf("expected UTC location, got %v", got.Location())
		}
	})

	t.Run("parses datetime strings in temporal fields", func(t *testing.T) {
		entity := core.NewEntity().Set("modified", "2026-01-02 03:04:05")
		doc := mapper.ToDocument(entity)
		got, ok := doc["modified"].(time.Time)
		if !ok {
			t.Fatalf("expected time.Time, got %T", doc["modified"])
		}
		want := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
		if !got.Equal(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("leaves non-temporal strings alone", func(t *testing.T) {
		entity := core.NewEntity().Set("title", "2026-01-02 03:04:05")
		doc := mapper.ToDocument(entity)
		if doc["title"] != "2026-01-02 03:04:05" {
			t.Fatalf("expected the literal string, got %v", doc["title"])
		}
	})

	t.Run("does not modify the entity", func(t *testing.T) {
		entity := core.NewEntity().Set("title", "Hello")
		mapper.ToDocument(entity)
		if !entity.IsDirty() || !entity.IsNew() {
			t.Fatal("mapping must not change entity state")
		}
	})
}

func TestFromDocument(t *testing.T) {
	mapper := core.NewMapper(postsTable())

	t.Run("materializes a clean existing entity", func(t *testing.T) {
		entity := mapper.FromDocument(core.Document{"_id": "abc", "title": "Hello"})
		if entity.IsNew() {
			t.Fatal("expected an existing entity")
		}
		if entity.IsDirty() {
			t.Fatal("expected a clean entity")
		}
		if entity.Source() != "Post" {
			t.Fatalf("expected source Post, got %q", entity.Source())
		}
		if entity.GetString("title") != "Hello" {
			t.Fatalf("expected title Hello, got %q", entity.GetString("title"))
		}
	})

	t.Run("parses stored datetime strings in temporal fields", func(t *testing.T) {
		entity := mapper.FromDocument(core.Document{"created": "2026-05-06T07:08:09Z"})
		value, _ := entity.Get("created")
		got, ok := value.(time.Time)
		if !ok {
			t.Fatalf("expected time.Time, got %T", value)
		}
		want := time.Date(2026, time.May, 6, 7, 8, 9, 0, time.UTC)
		if !got.Equal(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})
}

func TestTemporalRoundTrip(t *testing.T) {
	mapper := core.NewMapper(postsTable())
	stamp := time.Date(2026, time.July, 1, 10, 20, 30, 0, time.UTC)

	doc := mapper.ToDocument(core.NewEntity().Set("created", stamp))
	back := mapper.FromDocument(doc)

	value, _ := back.Get("created")
	got, ok := value.(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %T", value)
	}
	if !got.Equal(stamp) {
		t.Fatalf("round trip changed the timestamp: expected %v, got %v", stamp, got)
	}
}
