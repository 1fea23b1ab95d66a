// Package state is the three-tier state index, resolver, and cache:
// confirmed/unconfirmed/predicted entity versions, the precedence rule
// that collapses them into one authoritative view per id, and the fast
// lookup cache the executor uses to link recipes.
package state

import (
	"sync"

	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/types"
)

// Index holds three StableId -> Version maps, a predecessor chain over
// predicted versions, and the content map every version resolves through.
type Index struct {
	mu sync.Mutex

	confirmed   map[types.ID]types.ID
	unconfirmed map[types.ID]types.ID
	predicted   map[types.ID]types.ID
	predecessor map[types.ID]types.ID // version -> predecessor version, absent if none

	content map[types.ID]recipe.Bundled // version -> bundled entity (S1)
}

func NewIndex() *Index {
	return &Index{
		confirmed:   make(map[types.ID]types.ID),
		unconfirmed: make(map[types.ID]types.ID),
		predicted:   make(map[types.ID]types.ID),
		predecessor: make(map[types.ID]types.ID),
		content:     make(map[types.ID]recipe.Bundled),
	}
}

func (x *Index) PutConfirmed(id, version types.ID, b recipe.Bundled) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.content[version] = b
	x.confirmed[id] = version
}

func (x *Index) PutUnconfirmed(id, version types.ID, b recipe.Bundled) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.content[version] = b
	x.unconfirmed[id] = version
}

// PutPredicted records a new predicted version, chaining it to prev (if
// hasPrev) so a later Invalidate can roll back to it.
func (x *Index) PutPredicted(id, version types.ID, b recipe.Bundled, prev types.ID, hasPrev bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.content[version] = b
	x.predicted[id] = version
	if hasPrev {
		x.predecessor[version] = prev
	} else {
		delete(x.predecessor, version)
	}
}

// Invalidate drops the predicted chain tip at version and its predecessor
// link, falling back to the predecessor if one exists. If none exists, this
// is a StaleRollback: the confirmed index entry for id is also dropped
// silently.
func (x *Index) Invalidate(version, id types.ID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	prev, hasPrev := x.predecessor[version]
	delete(x.predecessor, version)
	if hasPrev {
		x.predicted[id] = prev
		return
	}
	delete(x.predicted, id)
	delete(x.confirmed, id)
}

// Eliminate is the terminal Left on confirmed: all three index entries for
// id are dropped (S3).
func (x *Index) Eliminate(id types.ID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.confirmed, id)
	delete(x.unconfirmed, id)
	delete(x.predicted, id)
}

func (x *Index) MayExist(version types.ID) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.content[version]
	return ok
}

func (x *Index) GetState(version types.ID) (recipe.Bundled, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	b, ok := x.content[version]
	return b, ok
}
