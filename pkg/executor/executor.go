package executor

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowmatic/tlb/pkg/book/fragment"
	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/book/tlb"
	"github.com/flowmatic/tlb/pkg/metrics"
	"github.com/flowmatic/tlb/pkg/multipair"
	"github.com/flowmatic/tlb/pkg/state"
	"github.com/flowmatic/tlb/pkg/types"
	"github.com/flowmatic/tlb/pkg/util"
)

// pendingSubmission is the executor's single pending_effects slot: at
// most one transaction may be in flight at a time, across every pair, so
// work() never emits a second recipe until this clears.
type pendingSubmission struct {
	pair     types.PairId
	effects  []Effect
	feedback <-chan error
}

// Executor is the cooperative single-threaded loop driving every pair's
// TemporalLiquidityBook via the MultiPair dispatcher.
type Executor struct {
	dispatcher  *multipair.Dispatcher
	index       *state.Index
	cache       *state.Cache
	upstream    Upstream
	interpreter Interpreter
	prover      Prover
	network     Network
	clock       util.Clock
	log         *zap.Logger

	focus   []types.PairId
	pending *pendingSubmission
	now     int64
}

func New(dispatcher *multipair.Dispatcher, upstream Upstream, interpreter Interpreter, prover Prover, network Network, clock util.Clock, log *zap.Logger) *Executor {
	return &Executor{
		dispatcher:  dispatcher,
		index:       state.NewIndex(),
		cache:       state.NewCache(),
		upstream:    upstream,
		interpreter: interpreter,
		prover:      prover,
		network:     network,
		clock:       clock,
		log:         log,
	}
}

// pushFocus appends pair to the focus set if it is not already queued
// (append-if-absent FIFO; see DESIGN.md for the ordering decision).
func (e *Executor) pushFocus(pair types.PairId) {
	for _, p := range e.focus {
		if p == pair {
			return
		}
	}
	e.focus = append(e.focus, pair)
}

func (e *Executor) popFocus() (types.PairId, bool) {
	if len(e.focus) == 0 {
		return types.PairId{}, false
	}
	pair := e.focus[0]
	e.focus = e.focus[1:]
	return pair, true
}

// Poll runs one cycle of the executor loop: drain feedback, ingest upstream
// updates, then - only if no submission is in flight - attempt one unit of
// matching work. Feedback drain, then ingest, then matching is a fixed
// priority order, and the two suspension points are the two non-blocking
// selects/polls below: neither ever blocks the cycle.
func (e *Executor) Poll(ctx context.Context) error {
	e.drainFeedback()

	if err := e.ingest(ctx); err != nil {
		return err
	}

	return e.work()
}

// drainFeedback opportunistically checks the in-flight submission's
// feedback channel without blocking - the first of the loop's two
// non-blocking suspension points.
func (e *Executor) drainFeedback() {
	if e.pending == nil {
		return
	}
	select {
	case err, ok := <-e.pending.feedback:
		pend := e.pending
		e.pending = nil
		book, _ := e.dispatcher.GetMut(pend.pair)
		if ok && err != nil {
			e.log.Warn("submission failed, rolling back", zap.String("pair", pend.pair.String()), zap.Error(err))
			book.OnRecipeFailed()
			e.rollbackEffects(pend.effects)
			metrics.RecordRollback(pend.pair.String())
		} else {
			book.OnRecipeSucceeded()
			e.confirmEffects(pend.effects)
		}
		e.pushFocus(pend.pair)
	default:
	}
}

// ingest drains whatever Upstream has ready - the second suspension point
// and folds each update into the state index and the relevant book.
func (e *Executor) ingest(ctx context.Context) error {
	e.now = e.clock.Now().Unix()
	for _, pair := range e.dispatcher.Pairs() {
		book, _ := e.dispatcher.GetMut(pair)
		if err := book.AdvanceClocks(e.now); err != nil {
			return errIngestionOrderViolation(types.ID{}, err.Error())
		}
	}

	updates, err := e.upstream.Poll(ctx)
	if err != nil {
		return err
	}
	for _, pu := range updates {
		if err := e.syncBook(pu.Pair, pu.Update); err != nil {
			if IsFatal(err) {
				return err
			}
			e.log.Warn("non-fatal ingestion error absorbed", zap.Error(err))
			continue
		}
		e.pushFocus(pu.Pair)
	}
	return nil
}

// syncBook applies one StateUpdate to the state index and mirrors the
// resulting diff into the pair's book.
func (e *Executor) syncBook(pair types.PairId, update StateUpdate) error {
	diff, err := e.updateState(update)
	if err != nil {
		return err
	}
	if diff == nil {
		return nil
	}
	book, _ := e.dispatcher.GetMut(pair)
	if diff.Old != nil {
		e.removeFromBook(book, diff.Old.Entity)
	}
	if diff.New != nil {
		e.addToBook(book, diff.New.Entity)
	}
	return nil
}

// removeFromBook mirrors a diff's old side out of the book. Only fragments
// are ever removed this way - pools persist and are only ever updated in
// place (book.UpdatePool), so a Transition(Left) on a pool entity is treated
// as a no-op here; see DESIGN.md.
func (e *Executor) removeFromBook(book *tlb.TemporalLiquidityBook, entity recipe.BakedEntity) {
	if entity.Kind == recipe.FragmentEntity {
		book.RemoveFragments(entity.Fragment.Source)
	}
}

// addToBook mirrors a diff's new side into the book at the executor's last
// observed time.
func (e *Executor) addToBook(book *tlb.TemporalLiquidityBook, entity recipe.BakedEntity) {
	switch entity.Kind {
	case recipe.FragmentEntity:
		_ = book.AddFragments(entity.Fragment.Source, []fragment.Fragment{*entity.Fragment}, e.now)
	case recipe.PoolEntity:
		_ = book.UpdatePool(*entity.Pool)
	}
}

// work pops pairs off the focus set in order, attempting each in turn,
// provided no submission is already in flight - at most one submission is
// ever in flight per executor. A pair whose attempt yields nothing this
// cycle is dropped and the next pair is tried immediately; work only
// returns empty-handed once the whole focus set has been exhausted.
func (e *Executor) work() error {
	if e.pending != nil {
		return nil
	}

	for {
		pair, ok := e.popFocus()
		if !ok {
			return nil
		}

		book, _ := e.dispatcher.GetMut(pair)
		rcp, err := book.Attempt()
		if err != nil {
			return err
		}
		if rcp == nil {
			continue
		}

		lr, err := LinkRecipe(rcp, e.cache)
		if err != nil {
			return err
		}

		candidate, effects := e.interpreter.Run(lr)
		for _, eff := range effects {
			e.projectPredicted(eff)
		}

		tx := e.prover.Prove(candidate)
		feedback := e.network.Submit(tx)
		e.pending = &pendingSubmission{pair: pair, effects: effects, feedback: feedback}
		return nil
	}
}
