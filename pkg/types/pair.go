package types

import "fmt"

// PairId is the canonical unordered pair (a, b) with a <= b, so that
// CanonicalPairId(a, b) == CanonicalPairId(b, a).
type PairId struct {
	X, Y AssetClass
}

// CanonicalPairId orders its two assets so equal inputs in either order
// produce the identical PairId.
func CanonicalPairId(a, b AssetClass) PairId {
	if a.Less(b) || a == b {
		return PairId{X: a, Y: b}
	}
	return PairId{X: b, Y: a}
}

func (p PairId) String() string { return fmt.Sprintf("%s/%s", p.X, p.Y) }

// SideOf classifies a trade with the given input/output assets against this
// pair's canonical orientation: Ask if input <= output in canonical order,
// else Bid. ok is false unless input and output are the pair's two assets,
// in either order.
func (p PairId) SideOf(input, output AssetClass) (side Side, ok bool) {
	switch {
	case input == p.X && output == p.Y:
		return Ask, true
	case input == p.Y && output == p.X:
		return Bid, true
	default:
		return Ask, false
	}
}
