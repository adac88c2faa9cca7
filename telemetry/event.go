// Package telemetry provides event emission for taskflow: a small Emitter
// interface with Log/Null/Buffered/OTel implementations covering storage
// lifecycle events (task additions, state transitions and saves, flow state
// changes, injections).
package telemetry

import "context"

// Event is a single observability event emitted during flow/task
// lifecycle operations.
type Event struct {
	FlowUUID string
	FlowName string
	TaskName string // empty for flow-level events

	Msg string // e.g. "task_state_changed", "flow_state_changed", "result_injected"

	Meta map[string]any
}

// Emitter receives lifecycle events from Storage and ThreadSafeStorage.
// Implementations must not block the caller for long and must not panic.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}
