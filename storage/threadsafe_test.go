package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow-go/taskflow"
	"github.com/taskflow-go/taskflow/storage"
	"github.com/taskflow-go/taskflow/storage/backend"
)

func TestThreadSafeStorageConcurrentStateTransitions(t *testing.T) {
	fd := taskflow.NewFlowDetail("flow-uuid", "flow")
	inner := storage.New(fd, backend.NewMemory())
	ts := storage.NewThreadSafeStorage(inner)

	ctx := context.Background()
	require.NoError(t, ts.AddTask(ctx, "u", "t"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ts.SetTaskState(ctx, "u", taskflow.RUNNING)
		}()
	}
	wg.Wait()

	state, err := ts.GetTaskState("u")
	require.NoError(t, err)
	assert.Equal(t, taskflow.RUNNING, state)
}

func TestThreadSafeStorageForwardsErrors(t *testing.T) {
	fd := taskflow.NewFlowDetail("flow-uuid", "flow")
	inner := storage.New(fd, backend.NewMemory())
	ts := storage.NewThreadSafeStorage(inner)

	_, err := ts.GetUUIDByName("missing")
	require.Error(t, err)
}
