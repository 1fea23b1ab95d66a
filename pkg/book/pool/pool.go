// Package pool models constant-function-market-maker liquidity sources and
// the per-pair quality-indexed store that tracks them.
package pool

import (
	"math/big"

	"github.com/flowmatic/tlb/pkg/types"
)

// Quality ranks pools so the "best" sorts first: lower PriceHint first (a
// cheaper marginal quote), ties broken by higher Liquidity first (deeper
// pools absorb more before slipping).
type Quality struct {
	PriceHint types.Rational
	Liquidity uint64
}

// Less gives Quality its total order.
func (q Quality) Less(o Quality) bool {
	if !q.PriceHint.Equal(o.PriceHint) {
		return q.PriceHint.Less(o.PriceHint)
	}
	return q.Liquidity > o.Liquidity
}

// Pool is a constant-product CFMM: ReservesBase * ReservesQuote = k, with a
// proportional fee taken from the input leg before the swap formula runs.
type Pool struct {
	Source                     types.ID
	Pair                       types.PairId
	ReservesBase, ReservesQuote uint64
	FeeNum, FeeDenom           int64 // fee fraction taken from input, e.g. 3/1000
	Quality                    Quality
}

// Output is the CFMM formula for the given side and input size: how much of
// the other asset the pool would pay out.
func (p Pool) Output(side types.Side, input uint64) uint64 {
	reserveIn, reserveOut := p.reservesFor(side)
	inWithFee := mulDivFloor(input, p.FeeDenom-p.FeeNum, p.FeeDenom)
	denom := reserveIn + inWithFee
	if denom == 0 {
		return 0
	}
	return mulDivFloor(reserveOut, int64(inWithFee), int64(denom))
}

// RealPrice is the marginal quote-per-base price implied by swapping input
// through the pool on side.
func (p Pool) RealPrice(side types.Side, input uint64) types.Rational {
	out := p.Output(side, input)
	if out == 0 || input == 0 {
		return p.Quality.PriceHint
	}
	switch side {
	case types.Ask: // input is base, out is quote: price = quote/base
		return types.NewRational(int64(out), int64(input))
	default: // Bid: input is quote, out is base: price = quote/base = input/out
		return types.NewRational(int64(input), int64(out))
	}
}

func (p Pool) reservesFor(side types.Side) (reserveIn, reserveOut uint64) {
	if side == types.Ask {
		return p.ReservesBase, p.ReservesQuote
	}
	return p.ReservesQuote, p.ReservesBase
}

func mulDivFloor(x uint64, num, denom int64) uint64 {
	if denom <= 0 {
		return 0
	}
	prod := new(big.Int).Mul(new(big.Int).SetUint64(x), big.NewInt(num))
	q := new(big.Int).Quo(prod, big.NewInt(denom))
	if q.Sign() < 0 {
		return 0
	}
	return q.Uint64()
}
