package taskflow

import "sync"

// TaskDetail is the persistent per-task record. UUID and Name are
// immutable after creation; State, Results, and Meta are mutated only by a
// Storage.
type TaskDetail struct {
	UUID string
	Name string

	State   State
	Results any // may be a *Failure rather than ordinary data
	Meta    map[string]any
}

// NewTaskDetail creates a PENDING task detail with the given identity.
func NewTaskDetail(uuid, name string) *TaskDetail {
	return &TaskDetail{UUID: uuid, Name: name, State: PENDING}
}

// Clone returns a deep-enough copy of td suitable for round-tripping
// through a backend without aliasing the caller's Meta map.
func (td *TaskDetail) Clone() *TaskDetail {
	if td == nil {
		return nil
	}
	out := &TaskDetail{
		UUID:    td.UUID,
		Name:    td.Name,
		State:   td.State,
		Results: td.Results,
	}
	if td.Meta != nil {
		out.Meta = make(map[string]any, len(td.Meta))
		for k, v := range td.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

// Update overlays other's fields onto td in place, the contract required
// of backend.Connection's UpdateTaskDetails return value.
func (td *TaskDetail) Update(other *TaskDetail) {
	if other == nil {
		return
	}
	td.State = other.State
	td.Results = other.Results
	if other.Meta != nil {
		td.Meta = make(map[string]any, len(other.Meta))
		for k, v := range other.Meta {
			td.Meta[k] = v
		}
	}
}

// FlowDetail is the persistent per-flow record: flow identity, flow state,
// and the ordered collection of TaskDetails belonging to it.
type FlowDetail struct {
	mu sync.Mutex

	UUID  string
	Name  string
	State State

	tasks   []*TaskDetail
	byUUID  map[string]*TaskDetail
	byName  map[string]*TaskDetail
}

// NewFlowDetail creates an empty flow detail with the given identity.
func NewFlowDetail(uuid, name string) *FlowDetail {
	return &FlowDetail{
		UUID:   uuid,
		Name:   name,
		byUUID: make(map[string]*TaskDetail),
		byName: make(map[string]*TaskDetail),
	}
}

// Add appends a task detail to the flow. Callers (Storage) are responsible
// for uniqueness checks; Add itself does not reject duplicates, matching
// the original Python FlowDetail.add which defers that check to Storage.
func (fd *FlowDetail) Add(td *TaskDetail) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.tasks = append(fd.tasks, td)
	if fd.byUUID == nil {
		fd.byUUID = make(map[string]*TaskDetail)
	}
	if fd.byName == nil {
		fd.byName = make(map[string]*TaskDetail)
	}
	fd.byUUID[td.UUID] = td
	fd.byName[td.Name] = td
}

// Clone returns a deep-enough copy of fd, suitable for handing to a
// backend without aliasing fd's own task details.
func (fd *FlowDetail) Clone() *FlowDetail {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	out := NewFlowDetail(fd.UUID, fd.Name)
	out.State = fd.State
	for _, td := range fd.tasks {
		clone := td.Clone()
		out.tasks = append(out.tasks, clone)
		out.byUUID[clone.UUID] = clone
		out.byName[clone.Name] = clone
	}
	return out
}

// Find looks up a task detail by uuid, returning nil if absent.
func (fd *FlowDetail) Find(uuid string) *TaskDetail {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.byUUID[uuid]
}

// FindByName looks up a task detail by name, returning nil if absent.
func (fd *FlowDetail) FindByName(name string) *TaskDetail {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return fd.byName[name]
}

// Tasks returns a snapshot slice of the contained task details, in
// insertion order.
func (fd *FlowDetail) Tasks() []*TaskDetail {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	out := make([]*TaskDetail, len(fd.tasks))
	copy(out, fd.tasks)
	return out
}

// Update merges other into fd: other's State overwrites fd's, and every
// task detail in other is merged into fd's matching task (by uuid) or
// appended if fd does not yet know about it. This is the FlowDetail-level
// counterpart of TaskDetail.Update, used by a backend.Connection's
// UpdateFlowDetails to reconcile peer-writer changes.
func (fd *FlowDetail) Update(other *FlowDetail) {
	if other == nil {
		return
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	fd.State = other.State

	other.mu.Lock()
	otherTasks := make([]*TaskDetail, len(other.tasks))
	copy(otherTasks, other.tasks)
	other.mu.Unlock()

	if fd.byUUID == nil {
		fd.byUUID = make(map[string]*TaskDetail)
	}
	if fd.byName == nil {
		fd.byName = make(map[string]*TaskDetail)
	}

	for _, ot := range otherTasks {
		if existing, ok := fd.byUUID[ot.UUID]; ok {
			existing.Update(ot)
			continue
		}
		clone := ot.Clone()
		fd.tasks = append(fd.tasks, clone)
		fd.byUUID[clone.UUID] = clone
		fd.byName[clone.Name] = clone
	}
}
