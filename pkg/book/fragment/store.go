package fragment

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/flowmatic/tlb/pkg/types"
)

// location tracks which heap currently owns an entry.
type location int

const (
	locPending location = iota
	locActive
)

type entry struct {
	frag Fragment
	seq  uint64
	loc  location

	priceIdx    int // index in the side's active price heap, -1 if absent
	activateIdx int // index in the pending/activation heap, -1 if absent
	expireIdx   int // index in the expiry heap, -1 if absent
}

// Store is the per-pair FragmentedLiquidity: two ordered multisets of
// active fragments (one per side) plus a time-indexed pending/expiry
// frontier, scanned in O(log n) per advance_clocks tick.
type Store struct {
	mu sync.Mutex

	pair types.PairId
	seq  uint64

	active  [2]*priceHeap // indexed by types.Ask / types.Bid
	pending *activateHeap
	expiry  *expireHeap

	bySource map[types.ID][]*entry

	lastAdvanced int64
	advancedOnce bool
}

// NewStore creates an empty fragment store for one trading pair.
func NewStore(pair types.PairId) *Store {
	s := &Store{
		pair:     pair,
		pending:  &activateHeap{},
		expiry:   &expireHeap{},
		bySource: make(map[types.ID][]*entry),
	}
	s.active[types.Ask] = &priceHeap{side: types.Ask}
	s.active[types.Bid] = &priceHeap{side: types.Bid}
	heap.Init(s.pending)
	heap.Init(s.expiry)
	heap.Init(s.active[types.Ask])
	heap.Init(s.active[types.Bid])
	return s
}

// AddFragments inserts frs, all belonging to source, at the given observed
// time. Precondition: every fragment belongs to this store's pair.
func (s *Store) AddFragments(source types.ID, frs []Fragment, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range frs {
		if f.Pair != s.pair {
			return fmt.Errorf("fragment: fragment pair %s does not match store pair %s", f.Pair, s.pair)
		}
	}
	for _, f := range frs {
		f.Source = source
		s.insertLocked(f, now)
	}
	return nil
}

func (s *Store) insertLocked(f Fragment, now int64) {
	e := &entry{frag: f, seq: s.seq, priceIdx: -1, activateIdx: -1, expireIdx: -1}
	s.seq++
	s.bySource[f.Source] = append(s.bySource[f.Source], e)

	if f.Active(now) {
		s.activateLocked(e)
	} else {
		e.loc = locPending
		heap.Push(s.pending, e)
	}
}

func (s *Store) activateLocked(e *entry) {
	e.loc = locActive
	heap.Push(s.active[e.frag.Side], e)
	if _, ok := e.frag.Bounds.ExpireAt(); ok {
		heap.Push(s.expiry, e)
	}
}

// RemoveFragments removes every fragment whose source is in sources.
func (s *Store) RemoveFragments(sources ...types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range sources {
		for _, e := range s.bySource[src] {
			s.detachLocked(e)
		}
		delete(s.bySource, src)
	}
}

// detachLocked removes e from whichever heaps currently hold it.
func (s *Store) detachLocked(e *entry) {
	if e.priceIdx >= 0 {
		heap.Remove(s.active[e.frag.Side], e.priceIdx)
	}
	if e.activateIdx >= 0 {
		heap.Remove(s.pending, e.activateIdx)
	}
	if e.expireIdx >= 0 {
		heap.Remove(s.expiry, e.expireIdx)
	}
}

func (s *Store) forgetLocked(e *entry) {
	list := s.bySource[e.frag.Source]
	for i, c := range list {
		if c == e {
			s.bySource[e.frag.Source] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// AdvanceClocks activates fragments whose After bound is now satisfied and
// expires those whose Until bound has passed. t must be >= the last
// advanced time (IngestionOrderViolation otherwise - a caller bug, not a
// recoverable condition).
func (s *Store) AdvanceClocks(t int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.advancedOnce && t < s.lastAdvanced {
		return fmt.Errorf("fragment: advance_clocks called non-monotonically: %d < %d", t, s.lastAdvanced)
	}
	s.lastAdvanced = t
	s.advancedOnce = true

	for s.pending.Len() > 0 {
		top := s.pending.items[0]
		at, _ := top.frag.Bounds.ActivateAt()
		if at > t {
			break
		}
		heap.Pop(s.pending)
		s.activateLocked(top)
	}

	for s.expiry.Len() > 0 {
		top := s.expiry.items[0]
		end, _ := top.frag.Bounds.ExpireAt()
		if end >= t {
			break
		}
		heap.Pop(s.expiry)
		if top.priceIdx >= 0 {
			heap.Remove(s.active[top.frag.Side], top.priceIdx)
		}
		s.forgetLocked(top)
	}
	return nil
}

// BestPrice peeks the price-optimal active fragment on side.
func (s *Store) BestPrice(side types.Side) (types.Rational, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.active[side]
	if h.Len() == 0 {
		return types.Rational{}, false
	}
	return h.items[0].frag.Price, true
}

// TryPick removes and returns the best active fragment on side satisfying
// predicate, or false if none qualifies.
func (s *Store) TryPick(side types.Side, predicate func(Fragment) bool) (Fragment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.active[side]

	var rejected []*entry
	var found *entry
	for h.Len() > 0 {
		e := heap.Pop(h).(*entry)
		if predicate(e.frag) {
			found = e
			break
		}
		rejected = append(rejected, e)
	}
	for _, e := range rejected {
		heap.Push(h, e)
	}
	if found == nil {
		return Fragment{}, false
	}
	if found.expireIdx >= 0 {
		heap.Remove(s.expiry, found.expireIdx)
	}
	s.forgetLocked(found)
	return found.frag, true
}

// PickEither pops the best active fragment of one side and wraps it as a
// fresh PartialFill. Neither side is intrinsically "more correct" to prefer
// here (the matching loop immediately looks at the opposite side
// regardless); the side is chosen by insertion order alone - whichever
// side's best fragment was inserted first - for deterministic, fair
// scheduling across sides.
func (s *Store) PickEither() (PartialFill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	askTop, hasAsk := s.peekLocked(types.Ask)
	bidTop, hasBid := s.peekLocked(types.Bid)

	var side types.Side
	switch {
	case hasAsk && hasBid:
		if askTop.seq <= bidTop.seq {
			side = types.Ask
		} else {
			side = types.Bid
		}
	case hasAsk:
		side = types.Ask
	case hasBid:
		side = types.Bid
	default:
		return PartialFill{}, false
	}

	h := s.active[side]
	e := heap.Pop(h).(*entry)
	if e.expireIdx >= 0 {
		heap.Remove(s.expiry, e.expireIdx)
	}
	s.forgetLocked(e)
	return NewPartialFill(e.frag), true
}

func (s *Store) peekLocked(side types.Side) (*entry, bool) {
	h := s.active[side]
	if h.Len() == 0 {
		return nil, false
	}
	return h.items[0], true
}

// ReturnFr reinserts a fragment unchanged, used when a recipe is rolled
// back. now is the current observed time, used to decide whether the
// fragment lands back in the active or pending frontier.
func (s *Store) ReturnFr(f Fragment, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(f, now)
}
