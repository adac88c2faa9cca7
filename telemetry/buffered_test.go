package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskflow-go/taskflow/telemetry"
)

func TestBufferedEmitterRecordsInOrder(t *testing.T) {
	b := telemetry.NewBufferedEmitter()
	b.Emit(telemetry.Event{FlowUUID: "f1", Msg: "task_added"})
	b.Emit(telemetry.Event{FlowUUID: "f1", Msg: "task_saved"})
	b.Emit(telemetry.Event{FlowUUID: "f2", Msg: "task_added"})

	history := b.History("f1")
	assert.Len(t, history, 2)
	assert.Equal(t, "task_added", history[0].Msg)
	assert.Equal(t, "task_saved", history[1].Msg)

	assert.Len(t, b.History("f2"), 1)

	b.Clear("f1")
	assert.Empty(t, b.History("f1"))
}
