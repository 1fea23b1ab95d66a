// Package fragment models discrete limit-order-like liquidity units and the
// per-pair store that tracks which ones are currently active.
package fragment

import "github.com/flowmatic/tlb/pkg/types"

// Fragment is a single order projected onto the book.
type Fragment struct {
	Source     types.ID
	Pair       types.PairId
	Side       types.Side
	Input      uint64
	Price      types.Rational // quote-per-base
	Fee        types.Rational
	CostHint   types.ExecutionCost
	Bounds     types.TimeBounds
}

// Active reports whether the fragment satisfies its time bounds at t.
func (f Fragment) Active(t int64) bool { return f.Bounds.Contains(t) }

// PartialFill is work-in-progress consumption of a fragment.
type PartialFill struct {
	Target            Fragment
	RemainingInput    uint64
	AccumulatedOutput uint64
}

// NewPartialFill wraps a fresh fragment as an untouched remainder.
func NewPartialFill(f Fragment) PartialFill {
	return PartialFill{Target: f, RemainingInput: f.Input}
}

// Done reports whether the partial fill has no input left to place.
func (pf PartialFill) Done() bool { return pf.RemainingInput == 0 }

// Fill finalizes a PartialFill once RemainingInput reaches zero.
func (pf PartialFill) Fill() Fill {
	return Fill{Target: pf.Target, RemovedInput: pf.Target.Input - pf.RemainingInput, AddedOutput: pf.AccumulatedOutput}
}

// Fill is a completed consumption of a fragment.
type Fill struct {
	Target       Fragment
	RemovedInput uint64
	AddedOutput  uint64
}

// Overlaps reports whether a counterpart quoting at price is acceptable to
// this remainder: a Bid-side remainder accepts any Ask price <= its own
// price; an Ask-side remainder accepts any Bid price >= its own price.
func (pf PartialFill) Overlaps(price types.Rational) bool {
	switch pf.Target.Side {
	case types.Bid:
		return !price.Greater(pf.Target.Price)
	case types.Ask:
		return !price.Less(pf.Target.Price)
	default:
		return false
	}
}
