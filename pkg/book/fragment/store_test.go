package fragment

import (
	"testing"

	"github.com/flowmatic/tlb/pkg/types"
)

func mkPair() types.PairId { return types.CanonicalPairId("ADA", "USDC") }

func mkFrag(side types.Side, input uint64, price types.Rational, bounds types.TimeBounds) Fragment {
	return Fragment{
		Pair:     mkPair(),
		Side:     side,
		Input:    input,
		Price:    price,
		Fee:      types.NewRational(1, 1000),
		CostHint: 100,
		Bounds:   bounds,
	}
}

func TestStoreBestPriceOrdering(t *testing.T) {
	s := NewStore(mkPair())
	asks := []Fragment{
		mkFrag(types.Ask, 100, types.NewRational(40, 100), types.TBNone()),
		mkFrag(types.Ask, 100, types.NewRational(37, 100), types.TBNone()),
		mkFrag(types.Ask, 100, types.NewRational(42, 100), types.TBNone()),
	}
	if err := s.AddFragments(types.ID{1}, asks, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}
	best, ok := s.BestPrice(types.Ask)
	if !ok || !best.Equal(types.NewRational(37, 100)) {
		t.Fatalf("BestPrice(Ask) = %v,%v want 37/100,true", best, ok)
	}

	bids := []Fragment{
		mkFrag(types.Bid, 100, types.NewRational(30, 100), types.TBNone()),
		mkFrag(types.Bid, 100, types.NewRational(35, 100), types.TBNone()),
	}
	if err := s.AddFragments(types.ID{2}, bids, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}
	best, ok = s.BestPrice(types.Bid)
	if !ok || !best.Equal(types.NewRational(35, 100)) {
		t.Fatalf("BestPrice(Bid) = %v,%v want 35/100,true", best, ok)
	}
}

func TestStoreTryPickPredicate(t *testing.T) {
	s := NewStore(mkPair())
	frs := []Fragment{
		mkFrag(types.Ask, 100, types.NewRational(37, 100), types.TBNone()),
		mkFrag(types.Ask, 200, types.NewRational(38, 100), types.TBNone()),
	}
	if err := s.AddFragments(types.ID{1}, frs, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}

	picked, ok := s.TryPick(types.Ask, func(f Fragment) bool { return f.Input == 200 })
	if !ok || picked.Input != 200 {
		t.Fatalf("TryPick did not find input=200 fragment, got %+v ok=%v", picked, ok)
	}

	best, ok := s.BestPrice(types.Ask)
	if !ok || !best.Equal(types.NewRational(37, 100)) {
		t.Fatalf("remaining best price = %v,%v, want 37/100,true", best, ok)
	}
}

func TestStoreRemoveFragmentsBySource(t *testing.T) {
	s := NewStore(mkPair())
	src := types.ID{9}
	if err := s.AddFragments(src, []Fragment{
		mkFrag(types.Ask, 100, types.NewRational(37, 100), types.TBNone()),
		mkFrag(types.Bid, 100, types.NewRational(35, 100), types.TBNone()),
	}, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}
	s.RemoveFragments(src)
	if _, ok := s.BestPrice(types.Ask); ok {
		t.Fatalf("expected no ask fragments after RemoveFragments")
	}
	if _, ok := s.BestPrice(types.Bid); ok {
		t.Fatalf("expected no bid fragments after RemoveFragments")
	}
}

func TestStoreAdvanceClocksActivatesAndExpires(t *testing.T) {
	s := NewStore(mkPair())
	f := mkFrag(types.Ask, 100, types.NewRational(37, 100), types.TBWithin(10, 20))
	if err := s.AddFragments(types.ID{1}, []Fragment{f}, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}
	if _, ok := s.BestPrice(types.Ask); ok {
		t.Fatalf("fragment should not be active before its window")
	}
	if err := s.AdvanceClocks(10); err != nil {
		t.Fatalf("AdvanceClocks(10): %v", err)
	}
	if _, ok := s.BestPrice(types.Ask); !ok {
		t.Fatalf("fragment should be active at t=10")
	}
	if err := s.AdvanceClocks(21); err != nil {
		t.Fatalf("AdvanceClocks(21): %v", err)
	}
	if _, ok := s.BestPrice(types.Ask); ok {
		t.Fatalf("fragment should be expired after t=20")
	}
}

func TestStoreAdvanceClocksNonMonotonic(t *testing.T) {
	s := NewStore(mkPair())
	if err := s.AdvanceClocks(10); err != nil {
		t.Fatalf("AdvanceClocks(10): %v", err)
	}
	if err := s.AdvanceClocks(5); err == nil {
		t.Fatalf("expected error for non-monotonic advance_clocks")
	}
}

func TestStoreReturnFrRoundTrip(t *testing.T) {
	s := NewStore(mkPair())
	f := mkFrag(types.Ask, 100, types.NewRational(37, 100), types.TBNone())
	if err := s.AddFragments(types.ID{1}, []Fragment{f}, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}
	picked, ok := s.TryPick(types.Ask, func(Fragment) bool { return true })
	if !ok {
		t.Fatalf("TryPick should find the fragment")
	}
	if _, ok := s.BestPrice(types.Ask); ok {
		t.Fatalf("store should be empty after TryPick removes the only fragment")
	}
	s.ReturnFr(picked, 0)
	if _, ok := s.BestPrice(types.Ask); !ok {
		t.Fatalf("fragment should be back after ReturnFr")
	}
}

func TestPickEitherPrefersOldestAcrossSides(t *testing.T) {
	s := NewStore(mkPair())
	bid := mkFrag(types.Bid, 100, types.NewRational(35, 100), types.TBNone())
	if err := s.AddFragments(types.ID{1}, []Fragment{bid}, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}
	ask := mkFrag(types.Ask, 100, types.NewRational(37, 100), types.TBNone())
	if err := s.AddFragments(types.ID{2}, []Fragment{ask}, 0); err != nil {
		t.Fatalf("AddFragments: %v", err)
	}
	pf, ok := s.PickEither()
	if !ok {
		t.Fatalf("PickEither should find a fragment")
	}
	if pf.Target.Side != types.Bid {
		t.Fatalf("PickEither should prefer the earlier-inserted bid, got side=%v", pf.Target.Side)
	}
}
