package pool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/flowmatic/tlb/pkg/types"
)

type orderEntry struct {
	source  types.ID
	quality Quality
}

// Store is the per-pair PooledLiquidity: a map of source id to pool
// plus an ordered quality index so the best pool sorts first.
type Store struct {
	mu    sync.Mutex
	pair  types.PairId
	pools map[types.ID]Pool
	order []orderEntry
}

func NewStore(pair types.PairId) *Store {
	return &Store{pair: pair, pools: make(map[types.ID]Pool)}
}

// UpdatePool upserts p and rebuilds the quality index entry for its source.
func (s *Store) UpdatePool(p Pool) error {
	if p.Pair != s.pair {
		return fmt.Errorf("pool: pool pair %s does not match store pair %s", p.Pair, s.pair)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeOrderEntry(p.Source)
	s.pools[p.Source] = p
	s.insertOrderEntry(orderEntry{source: p.Source, quality: p.Quality})
	return nil
}

func (s *Store) removeOrderEntry(source types.ID) {
	for i, e := range s.order {
		if e.source == source {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Store) insertOrderEntry(e orderEntry) {
	i := sort.Search(len(s.order), func(i int) bool { return !s.order[i].quality.Less(e.quality) })
	s.order = append(s.order, orderEntry{})
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = e
}

// BestPrice is the price hint of the best-quality pool still present in the
// store (skipping entries whose pool was removed by an outstanding TryPick
// and not yet returned).
func (s *Store) BestPrice() (types.Rational, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.order {
		if _, ok := s.pools[e.source]; ok {
			return e.quality.PriceHint, true
		}
	}
	return types.Rational{}, false
}

// TryPick walks the quality index in order, removes and returns the first
// pool satisfying predicate. The quality index entry itself is left in
// place - ReturnPool reinserts the pool without rebuilding it, leaving the
// quality index untouched.
func (s *Store) TryPick(predicate func(Pool) bool) (Pool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.order {
		p, ok := s.pools[e.source]
		if !ok {
			continue
		}
		if predicate(p) {
			delete(s.pools, e.source)
			return p, true
		}
	}
	return Pool{}, false
}

// ReturnPool reinserts p without touching its quality index entry, used on
// rollback.
func (s *Store) ReturnPool(p Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[p.Source] = p
}
