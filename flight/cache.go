package flight

import (
	"container/list"
	"sync"

	"github.com/hugr-lab/recfilter/query"
	"github.com/hugr-lab/recfilter/vm"
)

// Query is a parsed query with its compiled program.
type Query struct {
	Text      string
	Predicate query.Predicate
	Program   *vm.Program
}

type cacheEntry struct {
	key   string
	query *Query
}

// QueryCache is an LRU cache of parsed and compiled queries keyed by query
// text. Once the capacity is reached, the least recently used entry is
// evicted. Safe for concurrent use.
type QueryCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// NewQueryCache creates a cache holding up to capacity queries.
// A capacity <= 0 selects 256.
func NewQueryCache(capacity int) *QueryCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &QueryCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached query for text and marks it most recently used.
func (c *QueryCache) Get(text string) (*Query, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[text]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).query, true
}

// Parse returns the cached query for text, parsing and compiling it on a
// miss. Syntax errors are not cached.
func (c *QueryCache) Parse(text string) (*Query, error) {
	if q, ok := c.Get(text); ok {
		return q, nil
	}

	pred, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	q := &Query{Text: text, Predicate: pred, Program: vm.Compile(pred)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[text]; ok {
		// Another request parsed it first.
		c.ll.MoveToFront(el)
		return el.Value.(*cacheEntry).query, nil
	}
	if c.ll.Len() >= c.capacity {
		if back := c.ll.Back(); back != nil {
			c.ll.Remove(back)
			delete(c.items, back.Value.(*cacheEntry).key)
		}
	}
	c.items[text] = c.ll.PushFront(&cacheEntry{key: text, query: q})
	return q, nil
}

// Len returns the number of cached queries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
