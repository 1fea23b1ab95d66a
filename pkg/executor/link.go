package executor

import (
	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/state"
	"github.com/flowmatic/tlb/pkg/types"
)

// sourceOf returns the stable id a TerminalInstruction's entity was issued
// under, the key the state cache is keyed by.
func sourceOf(ti recipe.TerminalInstruction) types.ID {
	if ti.Kind == recipe.FillInstruction {
		return ti.Fill.Target.Source
	}
	return ti.Swap.Target.Source
}

// LinkRecipe resolves a bearer for every instruction in a completed recipe
// against the cache, producing the LinkedRecipe the Interpreter consumes.
// Any instruction whose entity has no cached bearer is MissingBearer,
// fatal: the recipe was assembled from entities the cache should already
// hold a bearer for, so its absence means the cache and the book have
// diverged.
func LinkRecipe(rcp *recipe.ExecutionRecipe, cache *state.Cache) (recipe.LinkedRecipe, error) {
	lr := recipe.LinkedRecipe{Pair: rcp.Pair}
	for _, ti := range rcp.Instructions {
		id := sourceOf(ti)
		bundled, ok := cache.Get(id)
		if !ok {
			return recipe.LinkedRecipe{}, errMissingBearer(id)
		}
		lr.Instructions = append(lr.Instructions, recipe.LinkedInstruction{
			Instruction: ti,
			Bearer:      bundled.Bearer,
		})
	}
	return lr, nil
}
