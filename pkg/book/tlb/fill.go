package tlb

import (
	"github.com/flowmatic/tlb/pkg/book/fragment"
	"github.com/flowmatic/tlb/pkg/book/pool"
	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/types"
)

// fillOutcome is the result of fillFromFragment: exactly one of
// (TargetFill, TargetPartial) and exactly one of (SourceFill, SourcePartial)
// is set, covering the three possible fill outcomes.
type fillOutcome struct {
	TargetFill    *fragment.Fill
	TargetPartial *fragment.PartialFill
	SourceFill    *fragment.Fill
	SourcePartial *fragment.PartialFill
}

// fillFromFragment matches target against a single opposite-side fragment.
// target is the current remainder (whichever fragment pick_either
// originally chose, possibly already
// reduced by earlier iterations); source is the freshly matched
// counterpart fragment on the opposite side.
//
// The crossing price favors whichever side has the higher fee (that side
// sets the price). Which of target/source ends up Filled vs PartialFill
// depends on target's side, not just on the supply/demand magnitudes: a bid
// target clears the side whose base need is smaller, an ask target mirrors
// that (see fillFromFragmentBid and fillFromFragmentAsk).
func fillFromFragment(target fragment.PartialFill, source fragment.Fragment) fillOutcome {
	switch target.Target.Side {
	case types.Bid:
		return fillFromFragmentBid(target, source)
	default: // Ask
		return fillFromFragmentAsk(target, source)
	}
}

// fillFromFragmentBid matches a bid remainder against an ask fragment.
func fillFromFragmentBid(target fragment.PartialFill, source fragment.Fragment) fillOutcome {
	var price types.Rational
	if target.Target.Fee.Cmp(source.Fee) >= 0 {
		price = types.MinRational(source.Price, target.Target.Price)
	} else {
		price = types.MaxRational(source.Price, target.Target.Price)
	}
	demandBase := price.ApplyInverse(target.RemainingInput)
	supplyBase := source.Input

	switch {
	case supplyBase > demandBase:
		targetRemainingBefore := target.RemainingInput
		targetPF := target
		targetPF.RemainingInput = 0
		targetPF.AccumulatedOutput += demandBase
		tf := targetPF.Fill()

		sourcePF := fragment.NewPartialFill(source)
		sourcePF.RemainingInput = supplyBase - demandBase
		sourcePF.AccumulatedOutput = targetRemainingBefore
		return fillOutcome{TargetFill: &tf, SourcePartial: &sourcePF}

	case supplyBase < demandBase:
		quoteExecuted := price.ApplyInverse(supplyBase)
		sourcePF := fragment.NewPartialFill(source)
		sourcePF.RemainingInput = 0
		sourcePF.AccumulatedOutput = quoteExecuted
		sf := sourcePF.Fill()

		targetPF := target
		targetPF.RemainingInput -= quoteExecuted
		targetPF.AccumulatedOutput += supplyBase
		return fillOutcome{SourceFill: &sf, TargetPartial: &targetPF}

	default: // equal
		targetRemainingBefore := target.RemainingInput
		targetPF := target
		targetPF.RemainingInput = 0
		targetPF.AccumulatedOutput += demandBase
		tf := targetPF.Fill()

		sourcePF := fragment.NewPartialFill(source)
		sourcePF.RemainingInput = 0
		sourcePF.AccumulatedOutput = targetRemainingBefore
		sf := sourcePF.Fill()
		return fillOutcome{TargetFill: &tf, SourceFill: &sf}
	}
}

// fillFromFragmentAsk matches an ask remainder against a bid fragment. The
// Fill/PartialFill assignment mirrors the bid case: here the source (bid)
// clears in full when the ask has more supply than the bid demands, and the
// target (ask) clears in full when the reverse holds.
func fillFromFragmentAsk(target fragment.PartialFill, source fragment.Fragment) fillOutcome {
	var price types.Rational
	if target.Target.Fee.Cmp(source.Fee) >= 0 {
		price = types.MaxRational(source.Price, target.Target.Price)
	} else {
		price = types.MinRational(source.Price, target.Target.Price)
	}
	demandBase := price.ApplyInverse(source.Input)
	supplyBase := target.RemainingInput

	switch {
	case supplyBase > demandBase:
		targetPF := target
		targetPF.RemainingInput -= demandBase
		targetPF.AccumulatedOutput += source.Input

		sourcePF := fragment.NewPartialFill(source)
		sourcePF.RemainingInput = 0
		sourcePF.AccumulatedOutput = demandBase
		sf := sourcePF.Fill()
		return fillOutcome{SourceFill: &sf, TargetPartial: &targetPF}

	case supplyBase < demandBase:
		quoteExecuted := price.ApplyInverse(supplyBase)
		targetPF := target
		targetPF.RemainingInput = 0
		targetPF.AccumulatedOutput += quoteExecuted
		tf := targetPF.Fill()

		sourcePF := fragment.NewPartialFill(source)
		sourcePF.RemainingInput = source.Input - quoteExecuted
		sourcePF.AccumulatedOutput = supplyBase
		return fillOutcome{TargetFill: &tf, SourcePartial: &sourcePF}

	default: // equal
		targetPF := target
		targetPF.RemainingInput = 0
		targetPF.AccumulatedOutput += source.Input
		tf := targetPF.Fill()

		sourcePF := fragment.NewPartialFill(source)
		sourcePF.RemainingInput = 0
		sourcePF.AccumulatedOutput = demandBase
		sf := sourcePF.Fill()
		return fillOutcome{TargetFill: &tf, SourceFill: &sf}
	}
}

// fillFromPool matches target against a pool: the pool always absorbs the
// remainder's entire RemainingInput in one step.
func fillFromPool(target fragment.PartialFill, p pool.Pool) (fragment.Fill, recipe.Swap) {
	output := p.Output(target.Target.Side, target.RemainingInput)
	swap := recipe.Swap{Target: p, Side: target.Target.Side, Input: target.RemainingInput, Output: output}

	target.AccumulatedOutput += output
	target.RemainingInput = 0
	return target.Fill(), swap
}
