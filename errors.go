package taskflow

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Wrap one of these with fmt.Errorf("...: %w", ErrX)
// or use the typed errors below, and test with errors.Is/errors.As.
var (
	// ErrNotFound indicates a looked-up uuid, name, result, or index does
	// not exist or is not yet available.
	ErrNotFound = errors.New("taskflow: not found")

	// ErrDependency indicates a cycle would be introduced, or two nodes
	// provide the same symbol.
	ErrDependency = errors.New("taskflow: dependency conflict")

	// ErrArgument indicates a Link call referenced an endpoint not present
	// in the graph.
	ErrArgument = errors.New("taskflow: invalid argument")

	// ErrBackend wraps an error propagated from the backend unchanged.
	ErrBackend = errors.New("taskflow: backend error")

	// ErrDuplicate indicates add_task was called with a uuid or name that
	// already exists in the flow detail. The original Python storage.py
	// leaves this check as a TODO; this implementation enforces it (see
	// DESIGN.md open-question resolution).
	ErrDuplicate = errors.New("taskflow: duplicate task")
)

// NotFoundError carries the specific uuid/name/index that could not be
// resolved, for diagnostics beyond errors.Is(err, ErrNotFound).
type NotFoundError struct {
	Kind string // "uuid", "name", "result", "index"
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("taskflow: %s not found: %s", e.Kind, e.What)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// DependencyError names the conflicting nodes/symbol behind a dependency
// failure, mirroring the original graph_flow.py DependencyFailure message.
// Exactly one of the two shapes applies: a duplicate producer (Symbol,
// Producer, Item all set) or a cycle (Cycle true, From/To set).
type DependencyError struct {
	Symbol   string
	Producer string // node already providing Symbol
	Item     string // node that attempted to also provide Symbol

	Cycle    bool
	From, To string // the edge that would have closed a cycle
}

func (e *DependencyError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("taskflow: linking %q -> %q would introduce a cycle", e.From, e.To)
	}
	return fmt.Sprintf("taskflow: %q provides %q but is already provided by %q; duplicate producers are disallowed", e.Item, e.Symbol, e.Producer)
}

func (e *DependencyError) Unwrap() error { return ErrDependency }

// ArgumentError names the missing endpoint behind a Link failure.
type ArgumentError struct {
	Item string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("taskflow: item %q not found in graph", e.Item)
}

func (e *ArgumentError) Unwrap() error { return ErrArgument }

// DuplicateError names the uuid/name that already exists in the flow.
type DuplicateError struct {
	Kind string // "uuid" or "name"
	What string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("taskflow: task with %s %q already exists", e.Kind, e.What)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// BackendError wraps an underlying backend error without altering it,
// satisfying errors.Is(err, ErrBackend) while preserving errors.Unwrap
// access to the original cause.
type BackendError struct {
	Op    string
	Cause error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("taskflow: backend error during %s: %v", e.Op, e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, ErrBackend) to match BackendError values even
// though Unwrap returns the wrapped cause rather than ErrBackend itself.
func (e *BackendError) Is(target error) bool { return target == ErrBackend }
