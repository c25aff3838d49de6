package driver_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tabula-io/tabula/core"
	driver "github.com/tabula-io/tabula/driver/file"
)

func newStore(t *testing.T) (*driver.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := driver.NewFileStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store, path
}

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

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty path is rejected", func(t *testing.T) {
		if _, err := driver.NewFileStore(""); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("insert then find", func(t *testing.T) {
		store, _ := newStore(t)
		res, err := store.Insert(ctx, "posts", core.Document{"_id": "1", "title": "Hello"})
		if err != nil || !res.Ok {
			t.Fatalf("expected an acknowledged insert, got %+v/%v", res, err)
		}
		cursor, err := store.Find(ctx, "posts", &core.Where{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		docs := collect(t, cursor)
		if len(docs) != 1 || docs[0]["title"] != "Hello" {
			t.Fatalf("expected the inserted document, got %v", docs)
		}
	})

	t.Run("update and remove persist", func(t *testing.T) {
		store, _ := newStore(t)
		for _, doc := range []core.Document{
			{"_id": "1", "status": "draft"},
			{"_id": "2", "status": "draft"},
		} {
			if _, err := store.Insert(ctx, "posts", doc); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}

		res, err := store.Update(ctx, "posts", core.Field("_id").Eq("1"), core.Document{"status": "published"})
		if err != nil || res.N != 1 {
			t.Fatalf("expected one update, got %+v/%v", res, err)
		}

		ok, err := store.Remove(ctx, "posts", core.Field("_id").Eq("2"))
		if err != nil || !ok {
			t.Fatalf("expected an acknowledged remove, got %v/%v", ok, err)
		}

		n, err := store.Count(ctx, "posts", nil)
		if err != nil || n != 1 {
			t.Fatalf("expected 1 remaining document, got %d/%v", n, err)
		}
	})

	t.Run("data survives reopening", func(t *testing.T) {
		store, path := newStore(t)
		if _, err := store.Insert(ctx, "posts", core.Document{"_id": "1", "title": "Hello"}); err != nil {
			t.Fatalf("insert: %v", err)
		}

		reopened, err := driver.NewFileStore(path)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		cursor, err := reopened.Find(ctx, "posts", &core.Where{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		docs := collect(t, cursor)
		if len(docs) != 1 || docs[0]["title"] != "Hello" {
			t.Fatalf("expected the persisted document, got %v", docs)
		}
	})

	t.Run("two handles on one file see each other's writes", func(t *testing.T) {
		store, path := newStore(t)
		other, err := driver.NewFileStore(path)
		if err != nil {
			t.Fatalf("second handle: %v", err)
		}

		if _, err := store.Insert(ctx, "posts", core.Document{"_id": "1"}); err != nil {
			t.Fatalf("insert: %v", err)
		}
		n, err := other.Count(ctx, "posts", nil)
		if err != nil || n != 1 {
			t.Fatalf("expected the second handle to see the insert, got %d/%v", n, err)
		}
	})

	t.Run("file carries version metadata", func(t *testing.T) {
		store, path := newStore(t)
		if _, err := store.Insert(ctx, "posts", core.Document{"_id": "1"}); err != nil {
			t.Fatalf("insert: %v", err)
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read data file: %v", err)
		}
		var payload struct {
			Metadata struct {
				Version   string `json:"version"`
				UpdatedAt string `json:"updatedAt"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("decode data file: %v", err)
		}
		if payload.Metadata.Version != "1.0" {
			t.Fatalf("expected version 1.0, got %q", payload.Metadata.Version)
		}
		if payload.Metadata.UpdatedAt == "" {
			t.Fatal("expected an update timestamp")
		}
	})

	t.Run("corrupt file surfaces a decode error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.json")
		if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
			t.Fatalf("write corrupt file: %v", err)
		}
		if _, err := driver.NewFileStore(path); err == nil {
			t.Fatal("expected a decode error")
		}
	})

	t.Run("ping succeeds on a healthy store", func(t *testing.T) {
		store, _ := newStore(t)
		if err := store.Ping(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
