package tlb

import (
	"testing"

	"github.com/flowmatic/tlb/pkg/book/fragment"
	"github.com/flowmatic/tlb/pkg/book/pool"
	"github.com/flowmatic/tlb/pkg/types"
)

func mkPair() types.PairId { return types.CanonicalPairId("ADA", "USDC") }

func mkFrag(id byte, side types.Side, input uint64, price types.Rational, fee types.Rational) fragment.Fragment {
	return fragment.Fragment{
		Source: types.ID{id},
		Pair:   mkPair(),
		Side:   side,
		Input:  input,
		Price:  price,
		Fee:    fee,
	}
}

func newBook(t *testing.T) *TemporalLiquidityBook {
	t.Helper()
	// Soft must be > 0 so budget (starts at Hard) is > safe_threshold
	// (Hard-Soft) from the first iteration - otherwise fragment-vs-fragment
	// preference is disabled before the loop even starts.
	return New(mkPair(), types.ExecutionCap{Soft: 500_000, Hard: 1_000_000})
}

// Scenario 1: even cross, two fragments.
func TestAttemptEvenCross(t *testing.T) {
	b := newBook(t)
	a := mkFrag(1, types.Ask, 1000, types.NewRational(37, 100), types.NewRational(1, 1000))
	bFrag := mkFrag(2, types.Bid, 370, types.NewRational(37, 100), types.NewRational(1, 1000))
	if err := b.AddFragments(a.Source, []fragment.Fragment{a}, 0); err != nil {
		t.Fatalf("AddFragments A: %v", err)
	}
	if err := b.AddFragments(bFrag.Source, []fragment.Fragment{bFrag}, 0); err != nil {
		t.Fatalf("AddFragments B: %v", err)
	}

	rcp, err := b.Attempt()
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if rcp == nil || !rcp.IsComplete() {
		t.Fatalf("expected a complete recipe, got %+v", rcp)
	}
	var aOutput, bOutput uint64
	for _, ti := range rcp.Instructions {
		if ti.Kind != 0 {
			t.Fatalf("expected only Fill instructions")
		}
		switch ti.Fill.Target.Source {
		case a.Source:
			aOutput = ti.Fill.AddedOutput
		case bFrag.Source:
			bOutput = ti.Fill.AddedOutput
		}
	}
	if aOutput != 370 {
		t.Fatalf("A.output = %d, want 370", aOutput)
	}
	if bOutput != 1000 {
		t.Fatalf("B.output = %d, want 1000", bOutput)
	}
}

// Scenario 2: partial cross (a single fill_from_fragment step).
func TestFillFromFragmentPartialCross(t *testing.T) {
	a := mkFrag(1, types.Ask, 1000, types.NewRational(37, 100), types.NewRational(1, 1000))
	bFrag := mkFrag(2, types.Bid, 210, types.NewRational(37, 100), types.NewRational(1, 1000))

	outcome := fillFromFragment(fragment.NewPartialFill(bFrag), a)
	if outcome.TargetFill == nil {
		t.Fatalf("expected B(target) to terminate as a Fill, got %+v", outcome)
	}
	if outcome.TargetFill.AddedOutput != 567 {
		t.Fatalf("B.added_output = %d, want 567", outcome.TargetFill.AddedOutput)
	}
	if outcome.TargetFill.RemovedInput != 210 {
		t.Fatalf("B.removed_input = %d, want 210 (fully filled)", outcome.TargetFill.RemovedInput)
	}
	if outcome.SourcePartial == nil {
		t.Fatalf("expected A(source) to remain a PartialFill, got %+v", outcome)
	}
	if outcome.SourcePartial.AccumulatedOutput != 210 {
		t.Fatalf("A.accumulated_output = %d, want 210", outcome.SourcePartial.AccumulatedOutput)
	}
	if outcome.SourcePartial.RemainingInput != 433 {
		t.Fatalf("A.remaining_input = %d, want 1000-567=433", outcome.SourcePartial.RemainingInput)
	}
}

// Scenario 2 again, but with the Ask fragment as the initial remainder
// (pick_either can choose either side first) - the Fill/PartialFill roles
// must mirror, not repeat, the Bid-target case above.
func TestFillFromFragmentPartialCrossAskTarget(t *testing.T) {
	a := mkFrag(1, types.Ask, 1000, types.NewRational(37, 100), types.NewRational(1, 1000))
	bFrag := mkFrag(2, types.Bid, 210, types.NewRational(37, 100), types.NewRational(1, 1000))

	outcome := fillFromFragment(fragment.NewPartialFill(a), bFrag)
	if outcome.SourceFill == nil {
		t.Fatalf("expected B(source) to terminate as a Fill, got %+v", outcome)
	}
	if outcome.SourceFill.AddedOutput != 567 {
		t.Fatalf("B.added_output = %d, want 567", outcome.SourceFill.AddedOutput)
	}
	if outcome.SourceFill.RemovedInput != 210 {
		t.Fatalf("B.removed_input = %d, want 210 (fully filled)", outcome.SourceFill.RemovedInput)
	}
	if outcome.TargetPartial == nil {
		t.Fatalf("expected A(target) to remain a PartialFill, got %+v", outcome)
	}
	if outcome.TargetPartial.AccumulatedOutput != 210 {
		t.Fatalf("A.accumulated_output = %d, want 210", outcome.TargetPartial.AccumulatedOutput)
	}
	if outcome.TargetPartial.RemainingInput != 433 {
		t.Fatalf("A.remaining_input = %d, want 1000-567=433", outcome.TargetPartial.RemainingInput)
	}
}

// When the book only holds these two fragments, a full attempt() cannot
// reach I4 (only one instruction, the other side left as an open
// remainder) and must disassemble, restoring both fragments verbatim.
func TestAttemptDisassemblesOnUnresolvedPartial(t *testing.T) {
	b := newBook(t)
	a := mkFrag(1, types.Ask, 1000, types.NewRational(37, 100), types.NewRational(1, 1000))
	bFrag := mkFrag(2, types.Bid, 210, types.NewRational(37, 100), types.NewRational(1, 1000))
	if err := b.AddFragments(a.Source, []fragment.Fragment{a}, 0); err != nil {
		t.Fatalf("AddFragments A: %v", err)
	}
	if err := b.AddFragments(bFrag.Source, []fragment.Fragment{bFrag}, 0); err != nil {
		t.Fatalf("AddFragments B: %v", err)
	}

	rcp, err := b.Attempt()
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if rcp != nil {
		t.Fatalf("expected disassembly (no second counterpart to reach I4), got %+v", rcp)
	}
	askPrice, ok := b.Fragments.BestPrice(types.Ask)
	if !ok || !askPrice.Equal(a.Price) {
		t.Fatalf("A should be restored to the store, BestPrice(Ask)=%v,%v", askPrice, ok)
	}
	opp, found := b.Fragments.TryPick(types.Ask, func(f fragment.Fragment) bool { return true })
	if !found || opp.Input != 1000 {
		t.Fatalf("A should be restored with its original input 1000, got %+v found=%v", opp, found)
	}
}

// Scenario 3: fee-favored price selection.
func TestFillFromFragmentFeeFavored(t *testing.T) {
	a := mkFrag(1, types.Ask, 1000, types.NewRational(36, 100), types.NewRational(1, 1000))
	bFrag := mkFrag(2, types.Bid, 360, types.NewRational(37, 100), types.NewRational(2, 1000))

	outcome := fillFromFragment(fragment.NewPartialFill(bFrag), a)
	if outcome.TargetFill == nil || outcome.SourceFill == nil {
		t.Fatalf("expected both sides to terminate, got %+v", outcome)
	}
	if outcome.TargetFill.AddedOutput != 1000 {
		t.Fatalf("B(target).added_output = %d, want 1000", outcome.TargetFill.AddedOutput)
	}
	if outcome.SourceFill.AddedOutput != 360 {
		t.Fatalf("A(source).added_output = %d, want 360", outcome.SourceFill.AddedOutput)
	}
}

// Pool fallback when the opposite side of the fragment store is empty.
func TestAttemptPoolFallback(t *testing.T) {
	b := newBook(t)
	bFrag := mkFrag(1, types.Bid, 370, types.NewRational(50, 1), types.NewRational(1, 1000))
	if err := b.AddFragments(bFrag.Source, []fragment.Fragment{bFrag}, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}
	p := pool.Pool{
		Source:        types.ID{9},
		Pair:          mkPair(),
		ReservesBase:  1_000_000_000,
		ReservesQuote: 37_000_000_000,
		FeeNum:        3,
		FeeDenom:      1000,
		Quality:       pool.Quality{PriceHint: types.NewRational(37, 1), Liquidity: 1_000_000_000},
	}
	if err := b.UpdatePool(p); err != nil {
		t.Fatalf("UpdatePool: %v", err)
	}

	rcp, err := b.Attempt()
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if rcp == nil || !rcp.IsComplete() {
		t.Fatalf("expected a complete recipe, got %+v", rcp)
	}
	if len(rcp.Instructions) != 2 {
		t.Fatalf("expected exactly one Swap and one Fill, got %d instructions", len(rcp.Instructions))
	}
	sawSwap := false
	for _, ti := range rcp.Instructions {
		if ti.Kind == 1 {
			sawSwap = true
			if ti.Swap.Input != 370 {
				t.Fatalf("swap should consume the remainder's full remaining_input (370), got %d", ti.Swap.Input)
			}
		}
	}
	if !sawSwap {
		t.Fatalf("expected a Swap instruction")
	}
}

// A failed attempt (no counterpart available at all) restores state.
func TestAttemptDisassembleRestoresState(t *testing.T) {
	b := newBook(t)
	bFrag := mkFrag(1, types.Bid, 370, types.NewRational(37, 100), types.NewRational(1, 1000))
	if err := b.AddFragments(bFrag.Source, []fragment.Fragment{bFrag}, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}

	rcp, err := b.Attempt()
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if rcp != nil {
		t.Fatalf("expected no recipe with no counterpart liquidity, got %+v", rcp)
	}
	best, ok := b.Fragments.BestPrice(types.Bid)
	if !ok || !best.Equal(types.NewRational(37, 100)) {
		t.Fatalf("fragment should have been returned to the store after disassembly, BestPrice=%v,%v", best, ok)
	}
}

// Once budget drops to the safe threshold, only pool fallback remains.
func TestAttemptRespectsSafeThreshold(t *testing.T) {
	b := New(mkPair(), types.ExecutionCap{Soft: 0, Hard: 50})
	a := mkFrag(1, types.Ask, 1000, types.NewRational(37, 100), types.NewRational(1, 1000))
	a.CostHint = 100 // A is older, so PickEither seeds the recipe with it; its cost is never checked
	bFrag := mkFrag(2, types.Bid, 370, types.NewRational(37, 100), types.NewRational(1, 1000))
	if err := b.AddFragments(a.Source, []fragment.Fragment{a}, 0); err != nil {
		t.Fatalf("AddFragments A: %v", err)
	}
	if err := b.AddFragments(bFrag.Source, []fragment.Fragment{bFrag}, 0); err != nil {
		t.Fatalf("AddFragments B: %v", err)
	}

	rcp, err := b.Attempt()
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if rcp != nil {
		t.Fatalf("budget starts at the safe threshold, so no fragment-vs-fragment step should be taken, got %+v", rcp)
	}
}

func TestOnRecipeFailedRestoresConsumedEntities(t *testing.T) {
	b := newBook(t)
	a := mkFrag(1, types.Ask, 1000, types.NewRational(37, 100), types.NewRational(1, 1000))
	bFrag := mkFrag(2, types.Bid, 370, types.NewRational(37, 100), types.NewRational(1, 1000))
	if err := b.AddFragments(a.Source, []fragment.Fragment{a}, 0); err != nil {
		t.Fatalf("AddFragments A: %v", err)
	}
	if err := b.AddFragments(bFrag.Source, []fragment.Fragment{bFrag}, 0); err != nil {
		t.Fatalf("AddFragments B: %v", err)
	}

	rcp, err := b.Attempt()
	if err != nil || rcp == nil {
		t.Fatalf("Attempt: rcp=%+v err=%v", rcp, err)
	}
	if _, ok := b.Fragments.BestPrice(types.Ask); ok {
		t.Fatalf("both fragments should be consumed while the recipe is in flight")
	}
	b.OnRecipeFailed()
	if _, ok := b.Fragments.BestPrice(types.Ask); !ok {
		t.Fatalf("OnRecipeFailed should restore consumed fragments to the store")
	}
	if _, ok := b.Fragments.BestPrice(types.Bid); !ok {
		t.Fatalf("OnRecipeFailed should restore consumed fragments to the store")
	}
}
