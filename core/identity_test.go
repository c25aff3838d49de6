package core_test

import (
	"regexp"
	"sync"
	"testing"

	"github.com/tabula-io/tabula/core"
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-f]{24}$`)

func TestGenerate(t *testing.T) {
	t.Run("single key field", func(t *testing.T) {
		gen := core.NewIdentityGenerator()
		key := gen.Generate([]string{"_id"})
		if key == nil {
			t.Fatal("expected a generated key, got nil")
		}
		value, ok := key["_id"].(string)
		if !ok {
			t.Fatalf("expected a string key value, got %T", key["_id"])
		}
		if !hexKeyPattern.MatchString(value) {
			t.Fatalf("expected a 24-character hex key, got %q", value)
		}
	})

	t.Run("no key fields", func(t *testing.T) {
		gen := core.NewIdentityGenerator()
		if key := gen.Generate(nil); key != nil {
			t.Fatalf("expected nil for zero key fields, got %v", key)
		}
	})

	t.Run("composite key fields", func(t *testing.T) {
		gen := core.NewIdentityGenerator()
		if key := gen.Generate([]string{"tenant", "slug"}); key != nil {
			t.Fatalf("expected nil for composite key fields, got %v", key)
		}
	})
}

func TestGenerateUniqueness(t *testing.T) {
	gen := core.NewIdentityGenerator()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		key := gen.Generate([]string{"_id"})
		if key == nil {
			t.Fatalf("generation %d returned nil", i)
		}
		value := key["_id"].(string)
		if _, dup := seen[value]; dup {
			t.Fatalf("generation %d repeated key %q", i, value)
		}
		seen[value] = struct{}{}
	}
}

func TestGenerateConcurrent(t *testing.T) {
	gen := core.NewIdentityGenerator()
	const workers = 8
	const perWorker = 250

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := gen.Generate([]string{"_id"})
				value := key["_id"].(string)
				mu.Lock()
				seen[value] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d unique keys, got %d", workers*perWorker, len(seen))
	}
}
