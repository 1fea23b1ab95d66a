package executor

import (
	"context"

	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/types"
)

// Upstream is the source of StateUpdates: a ledger follower, a mempool
// watcher, whatever collaborator knows how to turn chain/mempool activity
// into (Pair, StateUpdate) pairs. Poll is non-blocking: it drains whatever is
// immediately available and returns, so the executor's loop never stalls on
// it (the ingest step only ever does one bounded poll per cycle).
type Upstream interface {
	Poll(ctx context.Context) ([]PairUpdate, error)
}

// PairUpdate pins a StateUpdate to the pair it concerns.
type PairUpdate struct {
	Pair   types.PairId
	Update StateUpdate
}

// Effect is one entity a just-linked recipe will touch, carried forward so
// the executor can speculatively project it as Predicted and, on success,
// promote it to Unconfirmed.
type Effect struct {
	StableId types.ID
	Entity   recipe.BakedEntity
	Bearer   any
}

// Interpreter turns a LinkedRecipe into a submittable candidate transaction
// plus the list of effects it would have on entity state. Total: it must
// never fail over any LinkedRecipe this core can produce.
type Interpreter interface {
	Run(lr recipe.LinkedRecipe) (TxCandidate, []Effect)
}

// TxCandidate is an unsigned, unsubmitted transaction shape - opaque to the
// core beyond being something a Prover can sign.
type TxCandidate any

// Tx is a signed, submittable transaction - opaque to the core beyond being
// something a Network can submit.
type Tx any

// Prover signs a TxCandidate into a submittable Tx. Total and synchronous,
// like Interpreter: signing is assumed never to fail for a candidate this
// core produced.
type Prover interface {
	Prove(tc TxCandidate) Tx
}

// Network submits a signed Tx and reports the outcome asynchronously on the
// returned channel. Exactly one send, then the channel is never used again -
// this is one of the executor's two non-blocking suspension points: it
// never blocks waiting on this channel, it only ever selects on it
// opportunistically at the top of a poll cycle.
type Network interface {
	Submit(tx Tx) <-chan error
}
