package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow-go/taskflow"
	"github.com/taskflow-go/taskflow/storage/backend"
)

func TestMemoryUpdateFlowDetailsMergesOnWrite(t *testing.T) {
	ctx := context.Background()
	be := backend.NewMemory()
	conn, err := be.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	fd := taskflow.NewFlowDetail("flow-uuid", "flow")
	fd.State = taskflow.RUNNING
	merged, err := conn.UpdateFlowDetails(ctx, fd)
	require.NoError(t, err)
	assert.Equal(t, taskflow.RUNNING, merged.State)

	other, err := be.GetConnection(ctx)
	require.NoError(t, err)
	defer other.Close()

	fd2 := taskflow.NewFlowDetail("flow-uuid", "flow")
	fd2.State = taskflow.SUCCESS
	merged2, err := other.UpdateFlowDetails(ctx, fd2)
	require.NoError(t, err)
	assert.Equal(t, taskflow.SUCCESS, merged2.State, "caller's new state overwrites stored state")
}

func TestMemoryUpdateTaskDetailsRoundTrip(t *testing.T) {
	ctx := context.Background()
	be := backend.NewMemory()
	conn, err := be.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	td := taskflow.NewTaskDetail("task-uuid", "t")
	td.State = taskflow.SUCCESS
	td.Results = map[string]any{"x": 1.0}
	merged, err := conn.UpdateTaskDetails(ctx, td)
	require.NoError(t, err)
	assert.Equal(t, taskflow.SUCCESS, merged.State)
	assert.Equal(t, map[string]any{"x": 1.0}, merged.Results)
}
