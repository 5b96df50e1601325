package flight

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hugr-lab/recfilter/query"
	"github.com/hugr-lab/recfilter/vm"
)

func TestQueryCacheParse(t *testing.T) {
	c := NewQueryCache(2)

	first, err := c.Parse(`size > 20`)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !first.Program.Equal(vm.Compile(first.Predicate)) {
		t.Errorf("cached program differs from compiling the predicate:\n%s", first.Program)
	}

	again, err := c.Parse(`size > 20`)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if again != first {
		t.Error("expected the cached query to be reused")
	}

	if _, err := c.Parse(`size >`); !errors.Is(err, query.ErrSyntax) {
		t.Errorf("expected ErrSyntax, got %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("syntax errors must not be cached, len = %d", c.Len())
	}
}

func TestQueryCacheEviction(t *testing.T) {
	c := NewQueryCache(2)

	for _, text := range []string{`a == 1`, `b == 2`} {
		if _, err := c.Parse(text); err != nil {
			t.Fatalf("Parse(%q) failed: %v", text, err)
		}
	}
	// Touch a so that b is the least recently used.
	if _, ok := c.Get(`a == 1`); !ok {
		t.Fatal("expected a to be cached")
	}
	if _, err := c.Parse(`c == 3`); err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get(`b == 2`); ok {
		t.Error("expected b to be evicted")
	}
	for _, text := range []string{`a == 1`, `c == 3`} {
		if _, ok := c.Get(text); !ok {
			t.Errorf("expected %q to be cached", text)
		}
	}
}

func TestQueryCacheConcurrent(t *testing.T) {
	c := NewQueryCache(8)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("size > %d", i%4)
			if _, err := c.Parse(text); err != nil {
				t.Errorf("Parse(%q) failed: %v", text, err)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() != 4 {
		t.Errorf("expected 4 distinct queries, got %d", c.Len())
	}
}
