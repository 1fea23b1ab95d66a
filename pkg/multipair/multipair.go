// Package multipair is the MultiPair dispatcher: lazy, memoized
// construction of one TemporalLiquidityBook (and one backlog) per trading
// pair.
package multipair

import (
	"sync"

	"github.com/flowmatic/tlb/pkg/book/tlb"
	"github.com/flowmatic/tlb/pkg/types"
)

// Backlog is a bounded FIFO holding specialized, non-TLB orders for one
// pair - routed around the matching kernel entirely.
type Backlog struct {
	mu       sync.Mutex
	capacity int
	items    []any
}

func NewBacklog(capacity int) *Backlog {
	return &Backlog{capacity: capacity}
}

// Push appends item, reporting false if the backlog is already at capacity.
func (b *Backlog) Push(item any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.capacity > 0 && len(b.items) >= b.capacity {
		return false
	}
	b.items = append(b.items, item)
	return true
}

func (b *Backlog) Pop() (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return nil, false
	}
	item := b.items[0]
	b.items = b.items[1:]
	return item, true
}

func (b *Backlog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

type perPair struct {
	book    *tlb.TemporalLiquidityBook
	backlog *Backlog
}

// Dispatcher applies a shared execution cap and backlog capacity to
// every pair it lazily constructs a TLB instance for.
type Dispatcher struct {
	mu              sync.RWMutex
	cap             types.ExecutionCap
	backlogCapacity int
	pairs           map[types.PairId]*perPair
}

func NewDispatcher(cap types.ExecutionCap, backlogCapacity int) *Dispatcher {
	return &Dispatcher{
		cap:             cap,
		backlogCapacity: backlogCapacity,
		pairs:           make(map[types.PairId]*perPair),
	}
}

// GetMut returns the book and backlog for pair, constructing both on first
// access and memoizing them for subsequent calls.
func (d *Dispatcher) GetMut(pair types.PairId) (*tlb.TemporalLiquidityBook, *Backlog) {
	d.mu.RLock()
	pp, ok := d.pairs[pair]
	d.mu.RUnlock()
	if ok {
		return pp.book, pp.backlog
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if pp, ok = d.pairs[pair]; ok {
		return pp.book, pp.backlog
	}
	pp = &perPair{
		book:    tlb.New(pair, d.cap),
		backlog: NewBacklog(d.backlogCapacity),
	}
	d.pairs[pair] = pp
	return pp.book, pp.backlog
}

// Pairs lists every pair this dispatcher has constructed an instance for.
func (d *Dispatcher) Pairs() []types.PairId {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]types.PairId, 0, len(d.pairs))
	for p := range d.pairs {
		out = append(out, p)
	}
	return out
}
