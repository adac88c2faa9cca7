// Package backend defines the Backend/Connection contract Storage
// persists through, plus concrete implementations: an in-memory map,
// SQLite, MySQL, PostgreSQL, and Redis.
//
// Every implementation round-trips a *taskflow.FlowDetail or
// *taskflow.TaskDetail through UpdateFlowDetails/UpdateTaskDetails and
// returns the backend's merged view, usable with an in-place Update that
// overlays the returned fields onto the caller's copy.
package backend

import (
	"context"

	"github.com/taskflow-go/taskflow"
)

// Connection is a scoped, per-call handle acquired from a Backend. It is
// released on all exit paths via Close, never retained across Storage
// calls.
type Connection interface {
	// UpdateFlowDetails merges the caller's flow detail with whatever the
	// backend already has stored for it (e.g. changes from a peer writer)
	// and returns the merged result.
	UpdateFlowDetails(ctx context.Context, fd *taskflow.FlowDetail) (*taskflow.FlowDetail, error)

	// UpdateTaskDetails merges the caller's task detail with the stored
	// one and returns the merged result.
	UpdateTaskDetails(ctx context.Context, td *taskflow.TaskDetail) (*taskflow.TaskDetail, error)

	// Close releases the connection. Safe to call exactly once per
	// GetConnection call.
	Close() error
}

// Backend is a connection factory: Storage acquires a Connection per call
// and releases it immediately after use.
type Backend interface {
	GetConnection(ctx context.Context) (Connection, error)
}
