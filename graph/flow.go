package graph

import "github.com/taskflow-go/taskflow"

// Flow composes tasks and subflows into a directed acyclic graph, deriving
// edges from the symbolic data dependencies each node declares. Cyclic
// dependencies and duplicate producers are rejected; both abort the
// containing Add call and leave the graph in its pre-call state.
//
// Flow is not safe for concurrent use; callers must serialize their own
// access, same as the original Python graph_flow.Flow assumes
// single-threaded construction.
type Flow struct {
	name string
	g    *dag
	node map[string]Node // name -> node, insertion order tracked by g.order
}

// New creates an empty, named Graph Flow.
func New(name string) *Flow {
	return &Flow{name: name, g: newDAG(), node: make(map[string]Node)}
}

// Name returns the flow's own name.
func (f *Flow) Name() string { return f.name }

// Add inserts one or more nodes and derives edges between them and the
// nodes already present. If any step fails, every node inserted by this
// call is removed and the error is returned; nodes present before the
// call are untouched.
func (f *Flow) Add(items ...Node) error {
	if len(items) == 0 {
		return nil
	}

	// Step 1: build requirements (symbol -> consuming nodes) and provided
	// (symbol -> unique producer) from the graph as it stands now.
	requirements := make(map[string][]Node)
	provided := make(map[string]Node)
	for _, n := range f.Nodes() {
		for s := range n.Requires() {
			requirements[s] = append(requirements[s], n)
		}
		for s := range n.Provides() {
			provided[s] = n
		}
	}

	inserted := make([]string, 0, len(items))
	rollback := func() {
		for _, name := range inserted {
			f.g.removeNode(name)
			delete(f.node, name)
		}
	}

	for _, item := range items {
		name := item.Name()

		f.g.addNode(name)
		f.node[name] = item
		inserted = append(inserted, name)

		for s := range item.Requires() {
			requirements[s] = append(requirements[s], item)
		}

		for s := range item.Provides() {
			if producer, ok := provided[s]; ok {
				rollback()
				return &taskflow.DependencyError{Symbol: s, Producer: producer.Name(), Item: name}
			}
			provided[s] = item
		}

		for s := range item.Requires() {
			if producer, ok := provided[s]; ok && producer.Name() != name {
				if err := f.link(producer.Name(), name); err != nil {
					rollback()
					return err
				}
			}
		}

		for s := range item.Provides() {
			for _, consumer := range requirements[s] {
				if consumer.Name() == name {
					continue
				}
				if err := f.link(name, consumer.Name()); err != nil {
					rollback()
					return err
				}
			}
		}
	}

	return nil
}

// Link inserts an explicit edge u -> v. It fails with an ArgumentError if
// either endpoint is absent, and with a DependencyError (rolled back, no
// effect) if the edge would introduce a cycle.
func (f *Flow) Link(u, v string) error {
	if !f.g.hasNode(u) {
		return &taskflow.ArgumentError{Item: u}
	}
	if !f.g.hasNode(v) {
		return &taskflow.ArgumentError{Item: v}
	}
	return f.link(u, v)
}

// link is Link's body, reused by Add once both endpoints are already known
// to exist.
func (f *Flow) link(u, v string) error {
	f.g.addEdge(u, v)
	if f.g.reaches(v, u) {
		f.g.removeEdge(u, v)
		return &taskflow.DependencyError{Cycle: true, From: u, To: v}
	}
	return nil
}

// Len returns the number of nodes in the flow.
func (f *Flow) Len() int { return f.g.numNodes() }

// Nodes returns the flow's nodes in insertion/node-set order (not
// topological order -- that is the engine's concern, computed from Graph).
func (f *Flow) Nodes() []Node {
	out := make([]Node, 0, len(f.g.order))
	for _, name := range f.g.order {
		out = append(out, f.node[name])
	}
	return out
}

// Provides returns the union of Provides over every contained node.
func (f *Flow) Provides() map[string]struct{} {
	out := make(map[string]struct{})
	for _, n := range f.Nodes() {
		for s := range n.Provides() {
			out[s] = struct{}{}
		}
	}
	return out
}

// Requires returns the union of Requires over every contained node, minus
// Provides: only the symbols the flow cannot satisfy internally.
func (f *Flow) Requires() map[string]struct{} {
	out := make(map[string]struct{})
	for _, n := range f.Nodes() {
		for s := range n.Requires() {
			out[s] = struct{}{}
		}
	}
	provides := f.Provides()
	for s := range provides {
		delete(out, s)
	}
	return out
}

// Graph exposes the underlying DAG read-only, for the engine to perform a
// topological sort.
func (f *Flow) Graph() Graph { return Graph{f: f} }

// Name implements Node, so a Flow can itself be nested as a subflow inside
// another Flow.
var _ Node = (*Flow)(nil)
