package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow-go/taskflow"
	"github.com/taskflow-go/taskflow/storage"
	"github.com/taskflow-go/taskflow/storage/backend"
)

func newStorage(t *testing.T) *storage.Storage {
	t.Helper()
	fd := taskflow.NewFlowDetail("flow-uuid", "flow")
	return storage.New(fd, backend.NewMemory())
}

func TestResultIndexing(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	require.NoError(t, s.AddTask(ctx, "u1", "t"))
	require.NoError(t, s.SetResultMapping("u1", storage.ResultMapping{
		"first":  storage.Position(0),
		"second": storage.Position(1),
	}))
	require.NoError(t, s.Save(ctx, "u1", []any{10, 20}))

	first, err := s.Fetch("first")
	require.NoError(t, err)
	assert.Equal(t, 10, first)

	second, err := s.Fetch("second")
	require.NoError(t, err)
	assert.Equal(t, 20, second)

	_, err = s.Fetch("third")
	require.Error(t, err)
	assert.True(t, errors.Is(err, taskflow.ErrNotFound))
}

func TestInjectionAndShadowing(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	firstInjector, err := s.Inject(ctx, map[string]any{"x": 1})
	require.NoError(t, err)

	_, err = s.Inject(ctx, map[string]any{"x": 2})
	require.NoError(t, err)

	value, err := s.Fetch("x")
	require.NoError(t, err)
	assert.Equal(t, 1, value, "earliest injector wins")

	require.NoError(t, s.Reset(ctx, firstInjector))

	value, err = s.Fetch("x")
	require.NoError(t, err)
	assert.Equal(t, 2, value, "second injector resolves once the first is reset")
}

// warnCounter is a logging.Logger that counts Warn calls.
type warnCounter struct{ warnings int }

func (w *warnCounter) Debug(string, ...any) {}
func (w *warnCounter) Info(string, ...any)  {}
func (w *warnCounter) Warn(string, ...any)  { w.warnings++ }
func (w *warnCounter) Error(string, ...any) {}

func TestIncompleteResultWarning(t *testing.T) {
	ctx := context.Background()
	warns := &warnCounter{}
	s := storage.New(taskflow.NewFlowDetail("flow-uuid", "flow"), backend.NewMemory(), storage.WithLogger(warns))

	require.NoError(t, s.AddTask(ctx, "u", "t"))
	require.NoError(t, s.SetResultMapping("u", storage.ResultMapping{
		"a": storage.Position(0),
		"b": storage.Position(5),
	}))
	require.NoError(t, s.Save(ctx, "u", []any{42}))
	assert.Equal(t, 1, warns.warnings, "only b's index fails to resolve")

	a, err := s.Fetch("a")
	require.NoError(t, err)
	assert.Equal(t, 42, a)

	_, err = s.Fetch("b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, taskflow.ErrNotFound))
}

func TestGetRequiresResultsBearingState(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	require.NoError(t, s.AddTask(ctx, "u", "t"))

	_, err := s.Get("u")
	require.Error(t, err, "PENDING has no results")

	require.NoError(t, s.SetTaskState(ctx, "u", taskflow.RUNNING))
	_, err = s.Get("u")
	require.Error(t, err, "RUNNING has no results")

	require.NoError(t, s.Save(ctx, "u", "done"))
	value, err := s.Get("u")
	require.NoError(t, err)
	assert.Equal(t, "done", value)
}

func TestSaveWithFailureSkipsCompletenessCheck(t *testing.T) {
	ctx := context.Background()
	warns := &warnCounter{}
	s := storage.New(taskflow.NewFlowDetail("flow-uuid", "flow"), backend.NewMemory(), storage.WithLogger(warns))

	require.NoError(t, s.AddTask(ctx, "u", "t"))
	require.NoError(t, s.SetResultMapping("u", storage.ResultMapping{"missing": storage.Position(9)}))

	failure := taskflow.NewFailure(errors.New("boom"))
	require.NoError(t, s.Save(ctx, "u", failure, taskflow.FAILURE))
	assert.Equal(t, 0, warns.warnings, "no completeness warning for a Failure payload")

	result, err := s.Get("u")
	require.NoError(t, err)
	assert.True(t, taskflow.IsFailure(result))
}

func TestAddTaskRejectsDuplicateUUIDAndName(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	require.NoError(t, s.AddTask(ctx, "u1", "t1"))

	err := s.AddTask(ctx, "u1", "t2")
	require.Error(t, err)
	var dup *taskflow.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "uuid", dup.Kind)

	err = s.AddTask(ctx, "u2", "t1")
	require.Error(t, err)
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "name", dup.Kind)
}

func TestFetchMappedArgsFailsWholeCallOnAnyMiss(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	require.NoError(t, s.AddTask(ctx, "u", "t"))
	require.NoError(t, s.SetResultMapping("u", storage.ResultMapping{"x": storage.Whole()}))
	require.NoError(t, s.Save(ctx, "u", 7))

	_, err := s.FetchMappedArgs(map[string]string{"a": "x", "b": "missing"})
	require.Error(t, err)
}

func TestIdempotentSetTaskState(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	require.NoError(t, s.AddTask(ctx, "u", "t"))
	require.NoError(t, s.SetTaskState(ctx, "u", taskflow.RUNNING))
	require.NoError(t, s.SetTaskState(ctx, "u", taskflow.RUNNING))

	state, err := s.GetTaskState("u")
	require.NoError(t, err)
	assert.Equal(t, taskflow.RUNNING, state)
}

func TestTaskProgress(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	require.NoError(t, s.AddTask(ctx, "u", "t"))

	progress, err := s.GetTaskProgress("u")
	require.NoError(t, err)
	assert.Equal(t, 0.0, progress)

	require.NoError(t, s.SetTaskProgress(ctx, "u", 0.5, map[string]any{"phase": "compiling"}))

	progress, err = s.GetTaskProgress("u")
	require.NoError(t, err)
	assert.Equal(t, 0.5, progress)

	details, err := s.GetTaskProgressDetails("u")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"phase": "compiling"}, details)

	require.NoError(t, s.SetTaskProgress(ctx, "u", 0.75, nil))
	details, err = s.GetTaskProgressDetails("u")
	require.NoError(t, err)
	assert.Nil(t, details)
}

func TestFlowState(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	require.NoError(t, s.SetFlowState(ctx, taskflow.RUNNING))
	assert.Equal(t, taskflow.RUNNING, s.GetFlowState())
}
