package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/taskflow-go/taskflow"
	"github.com/taskflow-go/taskflow/internal/ids"
	"github.com/taskflow-go/taskflow/internal/logging"
	"github.com/taskflow-go/taskflow/metrics"
	"github.com/taskflow-go/taskflow/storage/backend"
	"github.com/taskflow-go/taskflow/telemetry"
)

// InjectorName is the reserved task name for every synthetic Task Detail
// created by Inject.
const InjectorName = "_TaskFlow_INJECTOR"

type reverseEntry struct {
	uuid string
	idx  Index
}

// Storage is a name-addressable result store: it owns a Flow Detail,
// mediates every mutation through an optional persistence Backend using a
// merge-on-write protocol, and layers a name-based lookup with structured
// sub-indexing and parameter injection on top of the raw Task Details.
//
// Storage is not safe for concurrent use by multiple goroutines; wrap it in
// a ThreadSafeStorage where that is required.
type Storage struct {
	flowDetail *taskflow.FlowDetail
	backend    backend.Backend

	resultMappings map[string]ResultMapping  // uuid -> mapping
	reverseMapping map[string][]reverseEntry // name -> ordered list, first wins

	logger  logging.Logger
	metrics metrics.Recorder
	emitter telemetry.Emitter
	idGen   ids.Generator
}

// Option configures a Storage at construction time.
type Option func(*Storage)

// WithLogger sets the Logger used for warning-level diagnostics (e.g.
// incomplete result-mapping coverage).
func WithLogger(logger logging.Logger) Option {
	return func(s *Storage) { s.logger = logger }
}

// WithMetrics sets the Recorder used for instrumentation.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(s *Storage) { s.metrics = recorder }
}

// WithEmitter sets the Emitter used for lifecycle events.
func WithEmitter(emitter telemetry.Emitter) Option {
	return func(s *Storage) { s.emitter = emitter }
}

// WithIDGenerator overrides the UUID generator Inject uses to mint injector
// task identifiers. Defaults to ids.Default.
func WithIDGenerator(gen ids.Generator) Option {
	return func(s *Storage) { s.idGen = gen }
}

// New creates a Storage bound to flowDetail and, optionally, a persistence
// backend (pass nil to run purely in memory; persistence steps are then
// skipped silently).
func New(flowDetail *taskflow.FlowDetail, be backend.Backend, opts ...Option) *Storage {
	s := &Storage{
		flowDetail:     flowDetail,
		backend:        be,
		resultMappings: make(map[string]ResultMapping),
		reverseMapping: make(map[string][]reverseEntry),
		logger:         logging.Default,
		metrics:        metrics.NoOp{},
		emitter:        telemetry.NewNullEmitter(),
		idGen:          ids.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withConnection acquires a backend connection, runs fn, and releases the
// connection on every exit path. If no backend is configured, fn is not
// invoked and withConnection returns nil.
func (s *Storage) withConnection(ctx context.Context, op string, fn func(backend.Connection) error) error {
	if s.backend == nil {
		return nil
	}
	start := time.Now()
	conn, err := s.backend.GetConnection(ctx)
	if err != nil {
		s.metrics.RecordBackendRoundTrip(op, time.Since(start), err)
		return &taskflow.BackendError{Op: op, Cause: err}
	}
	defer func() { _ = conn.Close() }()

	err = fn(conn)
	s.metrics.RecordBackendRoundTrip(op, time.Since(start), err)
	if err != nil {
		return &taskflow.BackendError{Op: op, Cause: err}
	}
	return nil
}

// persistTask offers td to the backend and overwrites td in place with the
// backend's merged result (merge-on-write).
func (s *Storage) persistTask(ctx context.Context, td *taskflow.TaskDetail) error {
	return s.withConnection(ctx, "update_task_details", func(conn backend.Connection) error {
		merged, err := conn.UpdateTaskDetails(ctx, td)
		if err != nil {
			return err
		}
		td.Update(merged)
		return nil
	})
}

// persistFlow offers the flow detail to the backend and overwrites it in
// place with the backend's merged result.
func (s *Storage) persistFlow(ctx context.Context) error {
	return s.withConnection(ctx, "update_flow_details", func(conn backend.Connection) error {
		merged, err := conn.UpdateFlowDetails(ctx, s.flowDetail)
		if err != nil {
			return err
		}
		s.flowDetail.Update(merged)
		return nil
	})
}

// AddTask creates a PENDING Task Detail named name with identifier uuid,
// persists it, then appends it to the Flow Detail and persists the Flow
// Detail. Persisting before insertion closes a partial-failure window: if
// persistence fails, the Flow Detail never sees the unpersisted task.
func (s *Storage) AddTask(ctx context.Context, uuid, name string) error {
	if s.flowDetail.Find(uuid) != nil {
		return &taskflow.DuplicateError{Kind: "uuid", What: uuid}
	}
	if s.flowDetail.FindByName(name) != nil {
		return &taskflow.DuplicateError{Kind: "name", What: name}
	}

	td := taskflow.NewTaskDetail(uuid, name)
	if err := s.persistTask(ctx, td); err != nil {
		return err
	}

	s.flowDetail.Add(td)
	if err := s.persistFlow(ctx); err != nil {
		return err
	}

	s.emitter.Emit(telemetry.Event{
		FlowUUID: s.flowDetail.UUID, FlowName: s.flowDetail.Name,
		TaskName: name, Msg: "task_added",
	})
	return nil
}

// GetUUIDByName returns the uuid of the Task Detail named name.
func (s *Storage) GetUUIDByName(name string) (string, error) {
	td := s.flowDetail.FindByName(name)
	if td == nil {
		return "", &taskflow.NotFoundError{Kind: "name", What: name}
	}
	return td.UUID, nil
}

func (s *Storage) mustFind(uuid string) (*taskflow.TaskDetail, error) {
	td := s.flowDetail.Find(uuid)
	if td == nil {
		return nil, &taskflow.NotFoundError{Kind: "uuid", What: uuid}
	}
	return td, nil
}

// SetTaskState sets uuid's state and persists the change.
func (s *Storage) SetTaskState(ctx context.Context, uuid string, state taskflow.State) error {
	td, err := s.mustFind(uuid)
	if err != nil {
		return err
	}
	from := td.State
	td.State = state
	if err := s.persistTask(ctx, td); err != nil {
		return err
	}
	s.metrics.RecordTaskStateTransition(s.flowDetail.Name, td.Name, string(from), string(state))
	s.emitter.Emit(telemetry.Event{
		FlowUUID: s.flowDetail.UUID, FlowName: s.flowDetail.Name, TaskName: td.Name,
		Msg: "task_state_changed", Meta: map[string]any{"from": string(from), "to": string(state)},
	})
	return nil
}

// GetTaskState returns uuid's current state.
func (s *Storage) GetTaskState(uuid string) (taskflow.State, error) {
	td, err := s.mustFind(uuid)
	if err != nil {
		return "", err
	}
	return td.State, nil
}

// SetTaskProgress writes meta.progress and, if details is non-nil,
// meta.progress_details; if details is nil and a previous progress_details
// exists, it is removed.
func (s *Storage) SetTaskProgress(ctx context.Context, uuid string, progress float64, details any) error {
	td, err := s.mustFind(uuid)
	if err != nil {
		return err
	}
	if td.Meta == nil {
		td.Meta = make(map[string]any)
	}
	td.Meta["progress"] = progress
	if details != nil {
		td.Meta["progress_details"] = details
	} else {
		delete(td.Meta, "progress_details")
	}
	return s.persistTask(ctx, td)
}

// GetTaskProgress returns uuid's meta.progress, defaulting to 0.0.
func (s *Storage) GetTaskProgress(uuid string) (float64, error) {
	td, err := s.mustFind(uuid)
	if err != nil {
		return 0, err
	}
	if td.Meta == nil {
		return 0, nil
	}
	progress, ok := td.Meta["progress"].(float64)
	if !ok {
		return 0, nil
	}
	return progress, nil
}

// GetTaskProgressDetails returns uuid's meta.progress_details, or nil.
func (s *Storage) GetTaskProgressDetails(uuid string) (any, error) {
	td, err := s.mustFind(uuid)
	if err != nil {
		return nil, err
	}
	if td.Meta == nil {
		return nil, nil
	}
	return td.Meta["progress_details"], nil
}

// Save stores data in uuid's results, sets its state (SUCCESS by default),
// and persists. Unless data is a *taskflow.Failure, it runs a completeness
// check against uuid's result mapping, logging a warning (never an error)
// for every entry whose index fails to resolve. The check is elided
// entirely on Failure payloads, which have no result shape to check against.
func (s *Storage) Save(ctx context.Context, uuid string, data any, state ...taskflow.State) error {
	resolved := taskflow.SUCCESS
	if len(state) > 0 {
		resolved = state[0]
	}

	td, err := s.mustFind(uuid)
	if err != nil {
		return err
	}

	td.Results = data
	td.State = resolved
	if err := s.persistTask(ctx, td); err != nil {
		return err
	}

	if !taskflow.IsFailure(data) {
		if mapping, ok := s.resultMappings[uuid]; ok {
			for name, idx := range mapping {
				if _, err := itemFromResult(data, idx, name); err != nil {
					s.logger.Warn("taskflow: result mapping %q on task %q did not resolve: %v", name, td.Name, err)
				}
			}
		}
	}

	s.emitter.Emit(telemetry.Event{
		FlowUUID: s.flowDetail.UUID, FlowName: s.flowDetail.Name, TaskName: td.Name,
		Msg: "task_saved", Meta: map[string]any{"state": string(resolved)},
	})
	return nil
}

// Get returns uuid's results iff its current state has results (SUCCESS,
// REVERTING, or FAILURE); otherwise it returns a *taskflow.NotFoundError.
func (s *Storage) Get(uuid string) (any, error) {
	td, err := s.mustFind(uuid)
	if err != nil {
		return nil, err
	}
	if !td.State.HasResults() {
		return nil, &taskflow.NotFoundError{Kind: "result", What: uuid}
	}
	return td.Results, nil
}

// Reset clears uuid's results, sets its state (PENDING by default), and
// persists.
func (s *Storage) Reset(ctx context.Context, uuid string, state ...taskflow.State) error {
	resolved := taskflow.PENDING
	if len(state) > 0 {
		resolved = state[0]
	}

	td, err := s.mustFind(uuid)
	if err != nil {
		return err
	}
	td.Results = nil
	td.State = resolved
	return s.persistTask(ctx, td)
}

// Inject records external parameters as the result of a synthetic Task
// Detail named InjectorName, returning the new injector's uuid. Multiple
// Inject calls stack; earlier injectors shadow later ones on Fetch (spec
// §4.2 scenario 5).
func (s *Storage) Inject(ctx context.Context, pairs map[string]any) (string, error) {
	uuid := s.idGen.New()

	td := taskflow.NewTaskDetail(uuid, InjectorName)
	td.Results = pairs
	td.State = taskflow.SUCCESS
	if err := s.persistTask(ctx, td); err != nil {
		return "", err
	}

	s.flowDetail.Add(td)
	if err := s.persistFlow(ctx); err != nil {
		return "", err
	}

	for key := range pairs {
		s.reverseMapping[key] = append(s.reverseMapping[key], reverseEntry{uuid: uuid, idx: Key(key)})
	}

	s.emitter.Emit(telemetry.Event{
		FlowUUID: s.flowDetail.UUID, FlowName: s.flowDetail.Name, TaskName: InjectorName,
		Msg: "result_injected",
	})
	return uuid, nil
}

// SetResultMapping stores mapping for uuid and appends a reverse-mapping
// entry for each (name, index) pair. A nil or empty mapping is a no-op.
// The reverse mapping is additive and ordered; later registrations shadow
// earlier ones only when the earlier one fails to resolve at lookup time.
func (s *Storage) SetResultMapping(uuid string, mapping ResultMapping) error {
	if len(mapping) == 0 {
		return nil
	}
	if s.flowDetail.Find(uuid) == nil {
		return &taskflow.NotFoundError{Kind: "uuid", What: uuid}
	}

	s.resultMappings[uuid] = mapping
	for name, idx := range mapping {
		s.reverseMapping[name] = append(s.reverseMapping[name], reverseEntry{uuid: uuid, idx: idx})
	}
	return nil
}

// Fetch resolves name via the reverse mapping: it walks registered entries
// in order and returns the first one whose task is currently in a
// results-bearing state and whose index resolves.
func (s *Storage) Fetch(name string) (any, error) {
	entries, ok := s.reverseMapping[name]
	if !ok {
		s.metrics.RecordFetchMiss(name)
		return nil, &taskflow.NotFoundError{Kind: "name", What: name}
	}

	for _, entry := range entries {
		result, err := s.Get(entry.uuid)
		if err != nil {
			continue
		}
		value, err := itemFromResult(result, entry.idx, name)
		if err != nil {
			continue
		}
		return value, nil
	}

	s.metrics.RecordFetchMiss(name)
	return nil, &taskflow.NotFoundError{Kind: "name", What: name}
}

// FetchAll returns every name that currently resolves via Fetch, skipping
// any that raise not-found. Intended for debugging, not normal execution.
func (s *Storage) FetchAll() map[string]any {
	out := make(map[string]any, len(s.reverseMapping))
	for name := range s.reverseMapping {
		if value, err := s.Fetch(name); err == nil {
			out[name] = value
		}
	}
	return out
}

// FetchMappedArgs resolves mapping (argname -> resultname) into (argname ->
// fetched value). If any Fetch fails, the whole call fails; partial results
// are not returned.
func (s *Storage) FetchMappedArgs(mapping map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(mapping))
	for argname, resultname := range mapping {
		value, err := s.Fetch(resultname)
		if err != nil {
			return nil, fmt.Errorf("taskflow: resolving arg %q: %w", argname, err)
		}
		out[argname] = value
	}
	return out, nil
}

// SetFlowState sets the Flow Detail's state and persists it.
func (s *Storage) SetFlowState(ctx context.Context, state taskflow.State) error {
	s.flowDetail.State = state
	if err := s.persistFlow(ctx); err != nil {
		return err
	}
	s.emitter.Emit(telemetry.Event{
		FlowUUID: s.flowDetail.UUID, FlowName: s.flowDetail.Name,
		Msg: "flow_state_changed", Meta: map[string]any{"state": string(state)},
	})
	return nil
}

// GetFlowState returns the Flow Detail's current state.
func (s *Storage) GetFlowState() taskflow.State {
	return s.flowDetail.State
}

