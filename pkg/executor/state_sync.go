package executor

import (
	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/state"
	"github.com/flowmatic/tlb/pkg/types"
)

// stableIdOf picks the stable id a StateUpdate concerns from whichever side
// of its Ior is present.
func stableIdOf(ior Ior) (types.ID, bool) {
	if ior.New != nil {
		return ior.New.Entity.Source(), true
	}
	if ior.Old != nil {
		return ior.Old.Entity.Source(), true
	}
	return types.ID{}, false
}

// updateState implements the state index's write path: apply
// the tagged transition to the index, resolve the id's new authoritative
// view, fold it into the cache, and return the old/new diff sync_book needs
// to mirror into the book. Returns (nil, nil) when the write had no
// observable effect on the resolved view (e.g. a confirmed write shadowed by
// an existing predicted entry).
func (e *Executor) updateState(u StateUpdate) (*Ior, error) {
	id, ok := stableIdOf(u.Ior)
	if !ok {
		return nil, errIngestionOrderViolation(types.ID{}, "state update carries neither an old nor a new side")
	}

	switch u.Kind {
	case Transition:
		if u.Ior.New != nil {
			version := u.Ior.New.Entity.Version
			if u.Tag == Confirmed {
				e.index.PutConfirmed(id, version, *u.Ior.New)
			} else {
				e.index.PutUnconfirmed(id, version, *u.Ior.New)
			}
		} else {
			e.index.Eliminate(id)
		}
	case TransitionRollback:
		if u.Ior.Old == nil {
			return nil, errIngestionOrderViolation(id, "transition rollback with no prior version to roll back")
		}
		e.index.Invalidate(u.Ior.Old.Entity.Version, id)
	}

	bundled, _, ok := state.Resolve(e.index, id)
	if !ok {
		if u.Ior.New != nil {
			// We just wrote a version for id but the resolver can't find
			// it: the content map and the tier maps have diverged
			// (UnreachableResolve) - fatal, not a condition to absorb.
			return nil, errUnreachableResolve(id)
		}
		prior, had := e.cache.Remove(id)
		if !had {
			return nil, nil
		}
		return &Ior{Old: &prior}, nil
	}

	prior, had := e.cache.Insert(id, bundled)
	if had && prior.Entity.Version == bundled.Entity.Version {
		return nil, nil
	}
	diff := Ior{New: &bundled}
	if had {
		diff.Old = &prior
	}
	return &diff, nil
}

// projectPredicted speculatively writes one just-linked recipe's effect into
// the predicted tier, chained to whatever version the resolver currently
// considers authoritative for that id, extending the rollback chain.
func (e *Executor) projectPredicted(eff Effect) {
	_, prevVersion, hadPrev := state.Resolve(e.index, eff.StableId)
	bundled := recipe.Bundled{Entity: eff.Entity, Bearer: eff.Bearer}
	e.index.PutPredicted(eff.StableId, eff.Entity.Version, bundled, prevVersion, hadPrev)
	e.cache.Insert(eff.StableId, bundled)
}

// confirmEffects promotes a succeeded submission's effects from predicted to
// unconfirmed (the Lifecycle paragraph's "once the transaction is confirmed
// they become Confirmed" - unconfirmed here, since acceptance into mempool
// is as far as Network.Submit's feedback speaks to; full confirmation still
// arrives later as an ordinary Upstream update).
func (e *Executor) confirmEffects(effects []Effect) {
	for _, eff := range effects {
		bundled := recipe.Bundled{Entity: eff.Entity, Bearer: eff.Bearer}
		e.index.PutUnconfirmed(eff.StableId, eff.Entity.Version, bundled)
		e.cache.Insert(eff.StableId, bundled)
	}
}

// rollbackEffects invalidates a failed submission's speculative writes and
// refreshes the cache to whatever the resolver falls back to.
func (e *Executor) rollbackEffects(effects []Effect) {
	for _, eff := range effects {
		e.index.Invalidate(eff.Entity.Version, eff.StableId)
		if bundled, _, ok := state.Resolve(e.index, eff.StableId); ok {
			e.cache.Insert(eff.StableId, bundled)
		} else {
			e.cache.Remove(eff.StableId)
		}
	}
}
