package types

import (
	"fmt"
	"math/big"
)

// Rational is a price or fee expressed as numer/denom, quote-per-base.
// Normalized on construction (reduced, denom > 0) so that comparison never
// needs to renormalize - keeping Cmp a total order (see design notes: "never
// normalize lazily").
//
// Cross-multiplication and the fill-pricing helpers below widen through
// math/big rather than int64/uint64 arithmetic: the pack has no third-party
// rational/bignum type that also gives correct-by-construction 128-bit-safe
// cross multiplication, and math/big.Int.Quo truncates toward zero, which is
// exactly the rounding rule the matching kernel requires (see DESIGN.md).
type Rational struct {
	Num, Denom int64
}

// NewRational builds a normalized Rational: denom forced positive, reduced
// by their gcd.
func NewRational(num, denom int64) Rational {
	if denom == 0 {
		panic("types: rational with zero denominator")
	}
	if denom < 0 {
		num, denom = -num, -denom
	}
	if g := gcd(abs64(num), denom); g > 1 {
		num /= g
		denom /= g
	}
	return Rational{Num: num, Denom: denom}
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func (r Rational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Denom) }

// Cmp compares r to o via cross multiplication widened through big.Int, so
// that no int64 product can overflow regardless of the magnitude of the
// operands (spec: "All arithmetic widens to 128-bit before the divide").
func (r Rational) Cmp(o Rational) int {
	lhs := new(big.Int).Mul(big.NewInt(r.Num), big.NewInt(o.Denom))
	rhs := new(big.Int).Mul(big.NewInt(o.Num), big.NewInt(r.Denom))
	return lhs.Cmp(rhs)
}

func (r Rational) Equal(o Rational) bool { return r.Cmp(o) == 0 }
func (r Rational) Less(o Rational) bool  { return r.Cmp(o) < 0 }
func (r Rational) Greater(o Rational) bool { return r.Cmp(o) > 0 }

// MinRational / MaxRational pick the worse/better-for-taker extreme used by
// the fee-favored crossing price selection in fill_from_fragment.
func MinRational(a, b Rational) Rational {
	if a.Less(b) {
		return a
	}
	return b
}

func MaxRational(a, b Rational) Rational {
	if a.Greater(b) {
		return a
	}
	return b
}

// Apply computes floor(x * r.Num / r.Denom), i.e. x priced forward through r.
func (r Rational) Apply(x uint64) uint64 {
	return mulDivFloor(x, r.Num, r.Denom)
}

// ApplyInverse computes floor(x * r.Denom / r.Num), i.e. x priced backward
// through r - the "demand_base" / "quote_executed" computation in
// fill_from_fragment.
func (r Rational) ApplyInverse(x uint64) uint64 {
	return mulDivFloor(x, r.Denom, r.Num)
}

// mulDivFloor computes floor(x * num / denom) for non-negative x and
// positive num/denom, widened through big.Int and truncated toward zero
// (big.Int.Quo's rounding rule, which coincides with floor for non-negative
// operands).
func mulDivFloor(x uint64, num, denom int64) uint64 {
	if num < 0 || denom <= 0 {
		panic("types: mulDivFloor requires non-negative num and positive denom")
	}
	prod := new(big.Int).Mul(new(big.Int).SetUint64(x), big.NewInt(num))
	q := new(big.Int).Quo(prod, big.NewInt(denom))
	return q.Uint64()
}
