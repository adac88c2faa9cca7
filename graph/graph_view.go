package graph

// Graph is a read-only view over a Flow's underlying DAG, exposed for the
// engine to compute a topological execution order. It is not safe to retain
// past further mutation of the originating Flow.
type Graph struct {
	f *Flow
}

// Nodes returns node names in insertion order.
func (gr Graph) Nodes() []string {
	out := make([]string, len(gr.f.g.order))
	copy(out, gr.f.g.order)
	return out
}

// Successors returns the names of nodes that depend on (come after) name.
func (gr Graph) Successors(name string) []string {
	succ := gr.f.g.edges[name]
	out := make([]string, 0, len(succ))
	for n := range succ {
		out = append(out, n)
	}
	return out
}

// HasEdge reports whether an edge u -> v exists.
func (gr Graph) HasEdge(u, v string) bool {
	_, ok := gr.f.g.edges[u][v]
	return ok
}

// Len returns the total number of nodes.
func (gr Graph) Len() int { return gr.f.g.numNodes() }

// TopologicalOrder computes one valid topological order of the graph's
// nodes via Kahn's algorithm. Ties are broken by insertion order, so the
// result is deterministic for a given build sequence. This is provided as
// a convenience for engines; Graph itself imposes no execution semantics.
func (gr Graph) TopologicalOrder() []string {
	indegree := make(map[string]int, len(gr.f.g.order))
	for _, n := range gr.f.g.order {
		indegree[n] = 0
	}
	for _, succ := range gr.f.g.edges {
		for v := range succ {
			indegree[v]++
		}
	}

	queue := make([]string, 0)
	for _, n := range gr.f.g.order {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	out := make([]string, 0, len(gr.f.g.order))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		for _, succ := range gr.f.g.order {
			if _, ok := gr.f.g.edges[n][succ]; !ok {
				continue
			}
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}
	return out
}
