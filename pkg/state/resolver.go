package state

import (
	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/types"
)

// Resolve finds the newest reachable version among predicted, unconfirmed,
// confirmed (in that precedence order), collapsing an id's history in idx
// into the single state the executor should treat as authoritative. Returns
// ok=false only if none of the three indexes reference id, or the
// referenced version's content is missing (the latter is the
// UnreachableResolve error condition - callers that expect a just-inserted
// id to resolve should treat ok=false as fatal).
func Resolve(idx *Index, id types.ID) (recipe.Bundled, types.ID, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if v, ok := idx.predicted[id]; ok {
		if b, ok2 := idx.content[v]; ok2 {
			return b, v, true
		}
	}
	if v, ok := idx.unconfirmed[id]; ok {
		if b, ok2 := idx.content[v]; ok2 {
			return b, v, true
		}
	}
	if v, ok := idx.confirmed[id]; ok {
		if b, ok2 := idx.content[v]; ok2 {
			return b, v, true
		}
	}
	return recipe.Bundled{}, types.ID{}, false
}
