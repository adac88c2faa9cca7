package backend

import (
	"context"
	"sync"

	"github.com/taskflow-go/taskflow"
)

// Memory is a map-backed Backend: in-process, thread-safe, and intended
// for testing and single-process workflows. Data does not survive process
// restart.
type Memory struct {
	mu    sync.Mutex
	flows map[string]*taskflow.FlowDetail
	tasks map[string]*taskflow.TaskDetail
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		flows: make(map[string]*taskflow.FlowDetail),
		tasks: make(map[string]*taskflow.TaskDetail),
	}
}

// GetConnection returns a lightweight connection over the shared map. There
// is no real acquisition cost; the connection exists to satisfy the
// Backend contract uniformly with the networked backends.
func (m *Memory) GetConnection(_ context.Context) (Connection, error) {
	return &memoryConnection{backend: m}, nil
}

type memoryConnection struct {
	backend *Memory
	closed  bool
}

func (c *memoryConnection) UpdateFlowDetails(_ context.Context, fd *taskflow.FlowDetail) (*taskflow.FlowDetail, error) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	stored, ok := c.backend.flows[fd.UUID]
	if !ok {
		stored = taskflow.NewFlowDetail(fd.UUID, fd.Name)
		c.backend.flows[fd.UUID] = stored
	}
	stored.Update(fd)
	return stored.Clone(), nil
}

func (c *memoryConnection) UpdateTaskDetails(_ context.Context, td *taskflow.TaskDetail) (*taskflow.TaskDetail, error) {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	stored, ok := c.backend.tasks[td.UUID]
	if !ok {
		stored = taskflow.NewTaskDetail(td.UUID, td.Name)
		c.backend.tasks[td.UUID] = stored
	}
	stored.Update(td)
	return stored.Clone(), nil
}

func (c *memoryConnection) Close() error {
	c.closed = true
	return nil
}
