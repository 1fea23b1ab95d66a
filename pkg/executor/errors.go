package executor

import (
	"errors"
	"fmt"

	"github.com/flowmatic/tlb/pkg/types"
)

// FatalError wraps the three error kinds that abort the executor loop
// outright: the index has been driven into a state update_state/link_recipe
// cannot make sense of, and continuing would be working from corrupted
// state rather than recovering from it.
type FatalError struct {
	Kind string
	Id   types.ID
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("executor: fatal %s for %s: %v", e.Kind, e.Id, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func errIngestionOrderViolation(id types.ID, msg string) error {
	return &FatalError{Kind: "IngestionOrderViolation", Id: id, Err: errors.New(msg)}
}

func errUnreachableResolve(id types.ID) error {
	return &FatalError{Kind: "UnreachableResolve", Id: id, Err: errors.New("resolver found no reachable version after a write")}
}

func errMissingBearer(id types.ID) error {
	return &FatalError{Kind: "MissingBearer", Id: id, Err: errors.New("cache has no bearer for an entity the recipe consumes")}
}

// IsFatal reports whether err should abort the executor loop; everything
// else - SubmissionError, StaleRollback - is absorbed and logged.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
