package fragment

import "github.com/flowmatic/tlb/pkg/types"

// priceHeap orders active fragments on one side so Peek/Pop gives the
// price-optimal fragment: minimum price on Ask, maximum on Bid; ties break
// by higher fee, then FIFO by insertion sequence.
type priceHeap struct {
	side  types.Side
	items []*entry
}

func (h *priceHeap) Len() int { return len(h.items) }

func (h *priceHeap) Less(i, j int) bool {
	a, b := h.items[i].frag, h.items[j].frag
	if !a.Price.Equal(b.Price) {
		if h.side == types.Ask {
			return a.Price.Less(b.Price)
		}
		return a.Price.Greater(b.Price)
	}
	if !a.Fee.Equal(b.Fee) {
		return a.Fee.Greater(b.Fee)
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *priceHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].priceIdx = i
	h.items[j].priceIdx = j
}

func (h *priceHeap) Push(x any) {
	e := x.(*entry)
	e.priceIdx = len(h.items)
	h.items = append(h.items, e)
}

func (h *priceHeap) Pop() any {
	old := h.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	e.priceIdx = -1
	return e
}

// activateHeap orders pending (not-yet-active) fragments by their After
// bound, earliest first, so AdvanceClocks only scans the activation
// frontier.
type activateHeap struct{ items []*entry }

func (h *activateHeap) Len() int { return len(h.items) }
func (h activateHeap) at(i int) int64 {
	t, _ := h.items[i].frag.Bounds.ActivateAt()
	return t
}
func (h *activateHeap) Less(i, j int) bool { return h.at(i) < h.at(j) }
func (h *activateHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].activateIdx = i
	h.items[j].activateIdx = j
}
func (h *activateHeap) Push(x any) {
	e := x.(*entry)
	e.activateIdx = len(h.items)
	h.items = append(h.items, e)
}
func (h *activateHeap) Pop() any {
	old := h.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	e.activateIdx = -1
	return e
}

// expireHeap orders active fragments across both sides by their Until
// bound, earliest first, so AdvanceClocks only scans the expiry frontier.
type expireHeap struct{ items []*entry }

func (h *expireHeap) Len() int { return len(h.items) }
func (h expireHeap) at(i int) int64 {
	t, _ := h.items[i].frag.Bounds.ExpireAt()
	return t
}
func (h *expireHeap) Less(i, j int) bool { return h.at(i) < h.at(j) }
func (h *expireHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].expireIdx = i
	h.items[j].expireIdx = j
}
func (h *expireHeap) Push(x any) {
	e := x.(*entry)
	e.expireIdx = len(h.items)
	h.items = append(h.items, e)
}
func (h *expireHeap) Pop() any {
	old := h.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	e.expireIdx = -1
	return e
}
