// Package recipe is the algebraic structure for execution recipes: ordered
// sequences of fills and swaps, their linking to on-ledger bearers, and the
// tagged-union entity model the rest of the core shares.
package recipe

import (
	"fmt"

	"github.com/flowmatic/tlb/pkg/book/fragment"
	"github.com/flowmatic/tlb/pkg/book/pool"
	"github.com/flowmatic/tlb/pkg/types"
)

// Swap is a remainder's entire RemainingInput swapped through a pool's CFMM
// formula. Side is the side of that remainder.
type Swap struct {
	Target pool.Pool
	Side   types.Side
	Input  uint64
	Output uint64
}

// InstructionKind tags which variant a TerminalInstruction holds.
type InstructionKind int

const (
	FillInstruction InstructionKind = iota
	SwapInstruction
)

// TerminalInstruction is the Fill | Swap tagged union.
type TerminalInstruction struct {
	Kind InstructionKind
	Fill *fragment.Fill
	Swap *Swap
}

func NewFillInstruction(f fragment.Fill) TerminalInstruction {
	return TerminalInstruction{Kind: FillInstruction, Fill: &f}
}

func NewSwapInstruction(s Swap) TerminalInstruction {
	return TerminalInstruction{Kind: SwapInstruction, Swap: &s}
}

// Side is the side of the pair this instruction closes out. The pool in a
// swap is the counterparty of the remainder it absorbs, so a swap counts as
// the side opposite Swap.Side.
func (ti TerminalInstruction) Side() types.Side {
	if ti.Kind == FillInstruction {
		return ti.Fill.Target.Side
	}
	return ti.Swap.Side.Opposite()
}

// ExecutionRecipe is an ordered plan of fills and swaps clearing one side of
// one pair, plus the work-in-progress remainder still being matched.
type ExecutionRecipe struct {
	Pair         types.PairId
	Instructions []TerminalInstruction
	Remainder    *fragment.PartialFill // nil once the recipe is complete (I4)

	seenSources map[types.ID]bool // enforces I2: no fragment appears twice
}

// NewRecipe seeds a recipe from the first remainder popped off the fragment
// store (attempt() step 2). seenSources starts empty: the seed fragment's
// own source is only recorded once its Fill is actually pushed (it may take
// several iterations of shrinking before that happens), not at construction.
func NewRecipe(pf fragment.PartialFill) *ExecutionRecipe {
	return &ExecutionRecipe{
		Pair:        pf.Target.Pair,
		Remainder:   &pf,
		seenSources: make(map[types.ID]bool),
	}
}

// Push appends an instruction, enforcing I1 (strict side alternation) and
// I2 (no fragment consumed twice).
func (r *ExecutionRecipe) Push(ti TerminalInstruction) error {
	if n := len(r.Instructions); n > 0 && r.Instructions[n-1].Side() == ti.Side() {
		return fmt.Errorf("recipe: instruction side %v repeats the previous instruction (I1)", ti.Side())
	}
	if ti.Kind == FillInstruction {
		src := ti.Fill.Target.Source
		if r.seenSources[src] {
			return fmt.Errorf("recipe: fragment %s already consumed in this recipe (I2)", src)
		}
		r.seenSources[src] = true
	}
	r.Instructions = append(r.Instructions, ti)
	return nil
}

// SetRemainder replaces the in-progress remainder without terminating the
// recipe.
func (r *ExecutionRecipe) SetRemainder(pf fragment.PartialFill) { r.Remainder = &pf }

// Terminate pushes a final instruction and clears the remainder.
func (r *ExecutionRecipe) Terminate(ti TerminalInstruction) error {
	if err := r.Push(ti); err != nil {
		return err
	}
	r.Remainder = nil
	return nil
}

// IsComplete reports I4: no pending remainder and at least two instructions.
func (r *ExecutionRecipe) IsComplete() bool {
	return r.Remainder == nil && len(r.Instructions) >= 2
}

// EntityKind tags which variant a BakedEntity holds.
type EntityKind int

const (
	FragmentEntity EntityKind = iota
	PoolEntity
)

// BakedEntity is an entity tagged with the Version it was observed at -
// Fragment(Baked) | Pool(Baked) per the design notes' polymorphism-over-
// entity-kinds recommendation.
type BakedEntity struct {
	Kind     EntityKind
	Fragment *fragment.Fragment
	Pool     *pool.Pool
	Version  types.ID
}

func BakeFragment(f fragment.Fragment, version types.ID) BakedEntity {
	return BakedEntity{Kind: FragmentEntity, Fragment: &f, Version: version}
}

func BakePool(p pool.Pool, version types.ID) BakedEntity {
	return BakedEntity{Kind: PoolEntity, Pool: &p, Version: version}
}

func (e BakedEntity) Pair() types.PairId {
	if e.Kind == FragmentEntity {
		return e.Fragment.Pair
	}
	return e.Pool.Pair
}

func (e BakedEntity) Source() types.ID {
	if e.Kind == FragmentEntity {
		return e.Fragment.Source
	}
	return e.Pool.Source
}

// Bundled is a baked entity plus its on-ledger bearer payload. Bearer is
// opaque to the core (TryFromLedger / Bearer are external concerns) so
// it is carried as an untyped payload rather than constrained to a type the
// core would otherwise never need to know about.
type Bundled struct {
	Entity BakedEntity
	Bearer any
}

// LinkedInstruction is a TerminalInstruction with its bearer attached, as
// produced by linking a completed recipe against the cache before handing
// it to the Interpreter.
type LinkedInstruction struct {
	Instruction TerminalInstruction
	Bearer      any
}

// LinkedRecipe is an ExecutionRecipe whose instructions carry bearers.
type LinkedRecipe struct {
	Pair         types.PairId
	Instructions []LinkedInstruction
}
