package storage

import (
	"context"
	"sync"
	"time"

	"github.com/taskflow-go/taskflow"
)

// ThreadSafeStorage serializes every externally visible operation on an
// inner Storage behind a single mutex: a decorator that holds the inner
// Storage and forwards each method under the lock. The lock covers each
// call's full backend round-trip, preserving the merge-on-write invariant
// under concurrency. No public operation here calls another on the same
// instance, so reentrancy is never required.
type ThreadSafeStorage struct {
	mu      sync.Mutex
	inner   *Storage
	metrics interface {
		RecordLockWait(time.Duration)
	}
}

// NewThreadSafeStorage wraps inner behind a mutex.
func NewThreadSafeStorage(inner *Storage) *ThreadSafeStorage {
	return &ThreadSafeStorage{inner: inner, metrics: inner.metrics}
}

func (t *ThreadSafeStorage) lock() func() {
	start := time.Now()
	t.mu.Lock()
	t.metrics.RecordLockWait(time.Since(start))
	return t.mu.Unlock
}

func (t *ThreadSafeStorage) AddTask(ctx context.Context, uuid, name string) error {
	defer t.lock()()
	return t.inner.AddTask(ctx, uuid, name)
}

func (t *ThreadSafeStorage) GetUUIDByName(name string) (string, error) {
	defer t.lock()()
	return t.inner.GetUUIDByName(name)
}

func (t *ThreadSafeStorage) SetTaskState(ctx context.Context, uuid string, state taskflow.State) error {
	defer t.lock()()
	return t.inner.SetTaskState(ctx, uuid, state)
}

func (t *ThreadSafeStorage) GetTaskState(uuid string) (taskflow.State, error) {
	defer t.lock()()
	return t.inner.GetTaskState(uuid)
}

func (t *ThreadSafeStorage) SetTaskProgress(ctx context.Context, uuid string, progress float64, details any) error {
	defer t.lock()()
	return t.inner.SetTaskProgress(ctx, uuid, progress, details)
}

func (t *ThreadSafeStorage) GetTaskProgress(uuid string) (float64, error) {
	defer t.lock()()
	return t.inner.GetTaskProgress(uuid)
}

func (t *ThreadSafeStorage) GetTaskProgressDetails(uuid string) (any, error) {
	defer t.lock()()
	return t.inner.GetTaskProgressDetails(uuid)
}

func (t *ThreadSafeStorage) Save(ctx context.Context, uuid string, data any, state ...taskflow.State) error {
	defer t.lock()()
	return t.inner.Save(ctx, uuid, data, state...)
}

func (t *ThreadSafeStorage) Get(uuid string) (any, error) {
	defer t.lock()()
	return t.inner.Get(uuid)
}

func (t *ThreadSafeStorage) Reset(ctx context.Context, uuid string, state ...taskflow.State) error {
	defer t.lock()()
	return t.inner.Reset(ctx, uuid, state...)
}

func (t *ThreadSafeStorage) Inject(ctx context.Context, pairs map[string]any) (string, error) {
	defer t.lock()()
	return t.inner.Inject(ctx, pairs)
}

func (t *ThreadSafeStorage) SetResultMapping(uuid string, mapping ResultMapping) error {
	defer t.lock()()
	return t.inner.SetResultMapping(uuid, mapping)
}

func (t *ThreadSafeStorage) Fetch(name string) (any, error) {
	defer t.lock()()
	return t.inner.Fetch(name)
}

func (t *ThreadSafeStorage) FetchAll() map[string]any {
	defer t.lock()()
	return t.inner.FetchAll()
}

func (t *ThreadSafeStorage) FetchMappedArgs(mapping map[string]string) (map[string]any, error) {
	defer t.lock()()
	return t.inner.FetchMappedArgs(mapping)
}

func (t *ThreadSafeStorage) SetFlowState(ctx context.Context, state taskflow.State) error {
	defer t.lock()()
	return t.inner.SetFlowState(ctx, state)
}

func (t *ThreadSafeStorage) GetFlowState() taskflow.State {
	defer t.lock()()
	return t.inner.GetFlowState()
}
