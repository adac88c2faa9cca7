package telemetry

import (
	"context"
	"sync"
)

// BufferedEmitter stores events in memory keyed by flow UUID. Useful in
// tests that assert on the sequence of lifecycle events a Storage call
// produced.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // flow uuid -> events
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.FlowUUID] = append(b.events[event.FlowUUID], event)
}

func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		b.Emit(e)
	}
	return nil
}

func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// History returns a copy of the events recorded for flowUUID, in emission
// order.
func (b *BufferedEmitter) History(flowUUID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.events[flowUUID]))
	copy(out, b.events[flowUUID])
	return out
}

// Clear discards all recorded events for flowUUID.
func (b *BufferedEmitter) Clear(flowUUID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, flowUUID)
}

var _ Emitter = (*BufferedEmitter)(nil)
