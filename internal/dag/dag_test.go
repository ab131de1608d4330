// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"
)

func TestTopologicalSort_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := New()
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Errorf("expected nil, got %v", order)
	}
}

func TestTopologicalSort_LinearChain(t *testing.T) {
	t.Parallel()
	g := New()
	// alpha must load before beta, beta before gamma.
	g.AddEdge("alpha", "beta")
	g.AddEdge("beta", "gamma")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"alpha", "beta", "gamma"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_RankBreaksTies(t *testing.T) {
	t.Parallel()
	g := New()
	// Three independent packs: order must follow AddNode order regardless
	// of edge insertion.
	g.AddNode("base")
	g.AddNode("web")
	g.AddNode("db")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"base", "web", "db"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_RankPriorityOverReadiness(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddNode("late")
	g.AddNode("early")
	g.AddEdge("early", "late")

	// "late" was ranked first, but the edge forces "early" ahead of it.
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"early", "late"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Diamond(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("base", "web")
	g.AddEdge("base", "db")
	g.AddEdge("web", "app")
	g.AddEdge("db", "app")

	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"base", "web", "db", "app"}
	if !slices.Equal(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestTopologicalSort_Cycle(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")

	_, err := g.TopologicalSort()
	if err == nil {
		t.Fatal("expected CycleError, got nil")
	}
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %T", err)
	}
	if len(cycleErr.Cycle) == 0 {
		t.Error("expected cycle nodes to be reported")
	}
}

func TestTopologicalSort_SelfLoop(t *testing.T) {
	t.Parallel()
	g := New()
	g.AddEdge("a", "a")

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
}

func TestTopologicalSort_PartialCycle(t *testing.T) {
	t.Parallel()
	g := New()
	// "ok" is orderable; b and c form a cycle.
	g.AddNode("ok")
	g.AddEdge("b", "c")
	g.AddEdge("c", "b")

	_, err := g.TopologicalSort()
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if slices.Contains(cycleErr.Cycle, "ok") {
		t.Errorf("orderable node reported as part of cycle: %v", cycleErr.Cycle)
	}
}
