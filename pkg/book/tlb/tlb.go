// Package tlb is the matching kernel: one TemporalLiquidityBook per
// trading pair, combining a fragment store and a pool store into attempt(),
// the single operation that assembles at most one execution recipe per call.
package tlb

import (
	"github.com/flowmatic/tlb/pkg/book/fragment"
	"github.com/flowmatic/tlb/pkg/book/pool"
	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/metrics"
	"github.com/flowmatic/tlb/pkg/types"
)

// inflight tracks every fragment/pool removed from the stores while
// assembling the recipe currently awaiting submission feedback, so a later
// on_recipe_failed can put all of it back.
type inflight struct {
	fragments []fragment.Fragment
	pools     []pool.Pool
}

// TemporalLiquidityBook is the matching kernel scoped to a single pair.
type TemporalLiquidityBook struct {
	Pair      types.PairId
	Fragments *fragment.Store
	Pools     *pool.Store
	Cap       types.ExecutionCap

	lastNow  int64
	inflight *inflight
}

func New(pair types.PairId, cap types.ExecutionCap) *TemporalLiquidityBook {
	return &TemporalLiquidityBook{
		Pair:      pair,
		Fragments: fragment.NewStore(pair),
		Pools:     pool.NewStore(pair),
		Cap:       cap,
	}
}

func (b *TemporalLiquidityBook) AddFragments(source types.ID, frs []fragment.Fragment, now int64) error {
	return b.Fragments.AddFragments(source, frs, now)
}

func (b *TemporalLiquidityBook) RemoveFragments(sources ...types.ID) {
	b.Fragments.RemoveFragments(sources...)
}

func (b *TemporalLiquidityBook) UpdatePool(p pool.Pool) error {
	return b.Pools.UpdatePool(p)
}

func (b *TemporalLiquidityBook) AdvanceClocks(t int64) error {
	if err := b.Fragments.AdvanceClocks(t); err != nil {
		return err
	}
	b.lastNow = t
	return nil
}

// fragBetter reports whether a fragment quote at pFrag beats a pool quote at
// pPool for the given side: lower wins on the Ask side, higher wins on the
// Bid side.
func fragBetter(side types.Side, pFrag, pPool types.Rational) bool {
	if side == types.Ask {
		return pFrag.Less(pPool)
	}
	return pFrag.Greater(pPool)
}

// Attempt runs one matching pass. It returns (nil, nil) when no recipe could be
// assembled (pick_either found nothing, or the loop broke before the recipe
// reached completeness - both are the documented "return None" path, not
// errors).
func (b *TemporalLiquidityBook) Attempt() (*recipe.ExecutionRecipe, error) {
	rem, ok := b.Fragments.PickEither()
	if !ok {
		return nil, nil
	}

	touchedFragments := []fragment.Fragment{rem.Target}
	var touchedPools []pool.Pool

	rcp := recipe.NewRecipe(rem)
	budget := b.Cap.Hard

	for rcp.Remainder != nil {
		current := *rcp.Remainder
		opposite := current.Target.Side.Opposite()

		pFrag, hasFrag := b.Fragments.BestPrice(opposite)
		pPool, hasPool := b.Pools.BestPrice()

		preferFragment := hasFrag && budget > b.Cap.SafeThreshold() &&
			(!hasPool || fragBetter(opposite, pFrag, pPool))

		if preferFragment {
			opp, found := b.Fragments.TryPick(opposite, func(f fragment.Fragment) bool {
				return current.Overlaps(f.Price) && f.CostHint <= budget
			})
			if found {
				touchedFragments = append(touchedFragments, opp)
				budget -= opp.CostHint
				if err := applyFragmentOutcome(rcp, fillFromFragment(current, opp)); err != nil {
					return nil, err
				}
				continue
			}
		}

		if hasPool && budget > 0 {
			p, found := b.Pools.TryPick(func(p pool.Pool) bool {
				return current.Overlaps(p.RealPrice(current.Target.Side, current.RemainingInput))
			})
			if found {
				touchedPools = append(touchedPools, p)
				termFill, swap := fillFromPool(current, p)
				if err := rcp.Push(recipe.NewSwapInstruction(swap)); err != nil {
					return nil, err
				}
				if err := rcp.Terminate(recipe.NewFillInstruction(termFill)); err != nil {
					return nil, err
				}
				continue
			}
		}

		break
	}

	pairLabel := b.Pair.String()
	budgetConsumed := uint64(b.Cap.Hard - budget)

	if rcp.IsComplete() {
		b.inflight = &inflight{fragments: touchedFragments, pools: touchedPools}
		metrics.RecordAttempt(pairLabel, true, budgetConsumed)
		for _, ti := range rcp.Instructions {
			metrics.RecordInstruction(pairLabel, ti.Side().String(), ti.Kind == recipe.SwapInstruction)
		}
		return rcp, nil
	}

	b.disassemble(touchedFragments, touchedPools)
	metrics.RecordAttempt(pairLabel, false, budgetConsumed)
	return nil, nil
}

// applyFragmentOutcome folds a fillFromFragment result into the recipe,
// pushing whichever side(s) terminated and updating the remainder.
func applyFragmentOutcome(rcp *recipe.ExecutionRecipe, outcome fillOutcome) error {
	switch {
	case outcome.TargetFill != nil && outcome.SourceFill != nil:
		if err := rcp.Push(recipe.NewFillInstruction(*outcome.TargetFill)); err != nil {
			return err
		}
		return rcp.Terminate(recipe.NewFillInstruction(*outcome.SourceFill))
	case outcome.TargetFill != nil:
		if err := rcp.Push(recipe.NewFillInstruction(*outcome.TargetFill)); err != nil {
			return err
		}
		rcp.SetRemainder(*outcome.SourcePartial)
	case outcome.SourceFill != nil:
		if err := rcp.Push(recipe.NewFillInstruction(*outcome.SourceFill)); err != nil {
			return err
		}
		rcp.SetRemainder(*outcome.TargetPartial)
	}
	return nil
}

// disassemble is the failure path: every fragment and pool touched during
// this attempt is returned, not just the final open remainder, so a failed
// attempt never leaves a fragment permanently consumed. See DESIGN.md.
func (b *TemporalLiquidityBook) disassemble(touchedFragments []fragment.Fragment, touchedPools []pool.Pool) {
	for _, f := range touchedFragments {
		b.Fragments.ReturnFr(f, b.lastNow)
	}
	for _, p := range touchedPools {
		b.Pools.ReturnPool(p)
	}
}

// OnRecipeSucceeded is called once the feedback channel confirms the last
// emitted recipe's transaction. The touched entities stay consumed.
func (b *TemporalLiquidityBook) OnRecipeSucceeded() {
	b.inflight = nil
}

// OnRecipeFailed is called when submission of the last emitted recipe
// failed; every entity it consumed is returned to the stores.
func (b *TemporalLiquidityBook) OnRecipeFailed() {
	if b.inflight == nil {
		return
	}
	b.disassemble(b.inflight.fragments, b.inflight.pools)
	b.inflight = nil
}
