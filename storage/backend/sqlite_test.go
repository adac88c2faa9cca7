package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow-go/taskflow"
	"github.com/taskflow-go/taskflow/storage/backend"
)

func TestSQLiteRoundTripsFlowAndTaskDetails(t *testing.T) {
	ctx := context.Background()
	be, err := backend.NewSQLite(":memory:")
	require.NoError(t, err)
	defer be.Close()

	conn, err := be.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	fd := taskflow.NewFlowDetail("flow-uuid", "flow")
	fd.State = taskflow.RUNNING
	_, err = conn.UpdateFlowDetails(ctx, fd)
	require.NoError(t, err)

	td := taskflow.NewTaskDetail("task-uuid", "t")
	td.State = taskflow.SUCCESS
	td.Results = []any{1.0, "two"}
	td.Meta = map[string]any{"progress": 1.0}
	merged, err := conn.UpdateTaskDetails(ctx, td)
	require.NoError(t, err)
	assert.Equal(t, taskflow.SUCCESS, merged.State)

	conn2, err := be.GetConnection(ctx)
	require.NoError(t, err)
	defer conn2.Close()

	fd2 := taskflow.NewFlowDetail("flow-uuid", "flow")
	fd2.State = taskflow.RUNNING
	fd2.Add(taskflow.NewTaskDetail("task-uuid", "t"))
	reloaded, err := conn2.UpdateFlowDetails(ctx, fd2)
	require.NoError(t, err)

	reloadedTask := reloaded.Find("task-uuid")
	require.NotNil(t, reloadedTask)
	assert.Equal(t, taskflow.SUCCESS, reloadedTask.State)
	assert.Equal(t, []any{1.0, "two"}, reloadedTask.Results)
}

func TestSQLiteFailureResultRoundTrips(t *testing.T) {
	ctx := context.Background()
	be, err := backend.NewSQLite(":memory:")
	require.NoError(t, err)
	defer be.Close()

	conn, err := be.GetConnection(ctx)
	require.NoError(t, err)
	defer conn.Close()

	td := taskflow.NewTaskDetail("task-uuid", "t")
	td.State = taskflow.FAILURE
	td.Results = taskflow.NewFailure(assertError{"boom"})
	_, err = conn.UpdateTaskDetails(ctx, td)
	require.NoError(t, err)

	fd := taskflow.NewFlowDetail("flow-uuid", "flow")
	fd.Add(taskflow.NewTaskDetail("task-uuid", "t"))
	reloaded, err := conn.UpdateFlowDetails(ctx, fd)
	require.NoError(t, err)

	reloadedTask := reloaded.Find("task-uuid")
	require.NotNil(t, reloadedTask)
	assert.Equal(t, taskflow.FAILURE, reloadedTask.State)
	failure, ok := reloadedTask.Results.(*taskflow.Failure)
	require.True(t, ok, "results decode back to a *taskflow.Failure")
	assert.Equal(t, "boom", failure.Error())
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
