// Package executor is the single-threaded cooperative loop that drains
// feedback, ingests StateUpdates, and drives each pair's TemporalLiquidityBook
// through attempt(), subject to a fixed priority order and exactly two
// suspension points per cycle.
package executor

import "github.com/flowmatic/tlb/pkg/book/recipe"

// Tag says which index tier a StateUpdate targets.
type Tag int

const (
	Confirmed Tag = iota
	Unconfirmed
)

func (t Tag) String() string {
	if t == Confirmed {
		return "confirmed"
	}
	return "unconfirmed"
}

// Ior is old-and/or-new: Left (old only, a terminal transition), Right (new
// only, a fresh entity with no prior version the index knows about) or Both
// (old and new, an ordinary successor version).
type Ior struct {
	Old *recipe.Bundled
	New *recipe.Bundled
}

func IorLeft(old recipe.Bundled) Ior  { return Ior{Old: &old} }
func IorRight(new recipe.Bundled) Ior { return Ior{New: &new} }
func IorBoth(old, new recipe.Bundled) Ior {
	return Ior{Old: &old, New: &new}
}

func (i Ior) IsZero() bool { return i.Old == nil && i.New == nil }

// Kind distinguishes an ordinary advance from a rollback of a previously
// projected branch.
type Kind int

const (
	Transition Kind = iota
	TransitionRollback
)

// StateUpdate is the unit Upstream feeds the executor: a tagged transition
// or rollback of one entity's version. An entity is eliminated on
// Transition(Left) and written on Transition(Right or Both). A
// TransitionRollback invalidates the version on its old side; its new side,
// if any, is not written, and a TransitionRollback with no old side is
// rejected.
type StateUpdate struct {
	Tag  Tag
	Kind Kind
	Ior  Ior
}
