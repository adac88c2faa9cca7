package graph_test

import (
	"errors"
	"testing"

	"github.com/taskflow-go/taskflow"
	"github.com/taskflow-go/taskflow/graph"
)

// testNode is a minimal graph.Node implementation for exercising Flow.
type testNode struct {
	name     string
	requires map[string]struct{}
	provides map[string]struct{}
}

func node(name string, requires, provides []string) *testNode {
	return &testNode{name: name, requires: graph.StringSet(requires...), provides: graph.StringSet(provides...)}
}

func (n *testNode) Name() string                   { return n.name }
func (n *testNode) Requires() map[string]struct{} { return n.requires }
func (n *testNode) Provides() map[string]struct{} { return n.provides }

// TestImplicitLinkingBySymbol verifies that insertion order within a
// single Add call does not affect the derived edge.
func TestImplicitLinkingBySymbol(t *testing.T) {
	a := node("A", nil, []string{"x"})
	b := node("B", []string{"x"}, nil)

	f1 := graph.New("f1")
	if err := f1.Add(a, b); err != nil {
		t.Fatalf("Add(A, B): %v", err)
	}
	if !f1.Graph().HasEdge("A", "B") {
		t.Fatalf("expected edge A -> B")
	}

	f2 := graph.New("f2")
	if err := f2.Add(b, a); err != nil {
		t.Fatalf("Add(B, A): %v", err)
	}
	if !f2.Graph().HasEdge("A", "B") {
		t.Fatalf("expected edge A -> B regardless of insertion order")
	}
}

// TestDuplicateProducer verifies that two nodes providing the same symbol
// is rejected.
func TestDuplicateProducer(t *testing.T) {
	a := node("A", nil, []string{"x"})
	c := node("C", nil, []string{"x"})

	f := graph.New("f")
	if err := f.Add(a); err != nil {
		t.Fatalf("Add(A): %v", err)
	}
	err := f.Add(c)
	if err == nil {
		t.Fatalf("expected dependency error adding duplicate producer")
	}
	var depErr *taskflow.DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected *taskflow.DependencyError, got %T: %v", err, err)
	}
	if !errors.Is(err, taskflow.ErrDependency) {
		t.Fatalf("expected errors.Is(err, ErrDependency)")
	}
	for _, n := range f.Nodes() {
		if n.Name() == "C" {
			t.Fatalf("C must not remain in the graph after failed Add")
		}
	}
}

// TestCycleViaExplicitLink verifies that an explicit Link introducing a
// cycle is rejected.
func TestCycleViaExplicitLink(t *testing.T) {
	a := node("A", nil, nil)
	b := node("B", nil, nil)
	c := node("C", nil, nil)

	f := graph.New("f")
	if err := f.Add(a, b, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := f.Link("A", "B"); err != nil {
		t.Fatalf("Link(A, B): %v", err)
	}
	if err := f.Link("B", "C"); err != nil {
		t.Fatalf("Link(B, C): %v", err)
	}

	err := f.Link("C", "A")
	if err == nil {
		t.Fatalf("expected dependency error for cycle C -> A")
	}
	if !errors.Is(err, taskflow.ErrDependency) {
		t.Fatalf("expected errors.Is(err, ErrDependency), got %v", err)
	}

	edges := 0
	for _, u := range []string{"A", "B", "C"} {
		for _, v := range []string{"A", "B", "C"} {
			if f.Graph().HasEdge(u, v) {
				edges++
			}
		}
	}
	if edges != 2 {
		t.Fatalf("expected exactly 2 edges after rejected cycle, got %d", edges)
	}
}

func TestLinkMissingEndpoint(t *testing.T) {
	a := node("A", nil, nil)
	f := graph.New("f")
	if err := f.Add(a); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := f.Link("A", "ghost")
	if !errors.Is(err, taskflow.ErrArgument) {
		t.Fatalf("expected errors.Is(err, ErrArgument), got %v", err)
	}
}

func TestFlowSymbolAccounting(t *testing.T) {
	a := node("A", nil, []string{"x"})
	b := node("B", []string{"x", "y"}, []string{"z"})

	f := graph.New("f")
	if err := f.Add(a, b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	provides := f.Provides()
	if _, ok := provides["x"]; !ok {
		t.Fatalf("expected provides to include x")
	}
	if _, ok := provides["z"]; !ok {
		t.Fatalf("expected provides to include z")
	}

	requires := f.Requires()
	if _, ok := requires["x"]; ok {
		t.Fatalf("requires must exclude x, it is satisfied internally")
	}
	if _, ok := requires["y"]; !ok {
		t.Fatalf("requires must include y, nothing in the flow provides it")
	}
}

func TestAddRollbackLeavesGraphUnchanged(t *testing.T) {
	a := node("A", nil, []string{"x"})
	f := graph.New("f")
	if err := f.Add(a); err != nil {
		t.Fatalf("Add(A): %v", err)
	}
	before := f.Len()

	b := node("B", nil, []string{"y"})
	c := node("C", nil, []string{"y"}) // duplicate producer within the same Add call
	if err := f.Add(b, c); err == nil {
		t.Fatalf("expected Add(B, C) to fail on duplicate producer")
	}

	if f.Len() != before {
		t.Fatalf("expected graph length to be restored to %d, got %d", before, f.Len())
	}
	for _, n := range f.Nodes() {
		if n.Name() == "B" || n.Name() == "C" {
			t.Fatalf("neither B nor C should remain after rollback")
		}
	}
}

func TestTopologicalOrderRespectsEdges(t *testing.T) {
	a := node("A", nil, []string{"x"})
	b := node("B", []string{"x"}, []string{"y"})
	c := node("C", []string{"y"}, nil)

	f := graph.New("f")
	if err := f.Add(c, a, b); err != nil {
		t.Fatalf("Add: %v", err)
	}

	order := f.Graph().TopologicalOrder()
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	if pos["A"] > pos["B"] || pos["B"] > pos["C"] {
		t.Fatalf("expected topological order A, B, C; got %v", order)
	}
}
