package state

import (
	"sync"

	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/types"
)

// Cache is a pair-agnostic KvStore mapping StableId to the authoritative
// Bundled state for that id, as last written by the resolver. Last-writer-
// wins; Insert returns the prior value so the executor can diff old/new
// before feeding a change to the TLB.
type Cache struct {
	mu sync.Mutex
	m  map[types.ID]recipe.Bundled
}

func NewCache() *Cache {
	return &Cache{m: make(map[types.ID]recipe.Bundled)}
}

// Insert writes b under id and returns whatever was there before, if
// anything.
func (c *Cache) Insert(id types.ID, b recipe.Bundled) (recipe.Bundled, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prior, had := c.m[id]
	c.m[id] = b
	return prior, had
}

func (c *Cache) Get(id types.ID) (recipe.Bundled, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[id]
	return b, ok
}

// Remove deletes id from the cache and returns whatever was there.
func (c *Cache) Remove(id types.ID) (recipe.Bundled, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[id]
	delete(c.m, id)
	return b, ok
}
