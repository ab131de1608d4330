// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed acyclic graph operations for topological
// ordering and cycle detection. It is used by the pack dependency composer
// to order packs so that a pack never loads before one it requires.
package dag

import (
	"fmt"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing
	// topological ordering.
	CycleError struct {
		// Cycle contains the nodes left unordered when the ready queue
		// drained (enough to identify the problem, not necessarily the
		// minimal cycle).
		Cycle []string
	}

	// Graph is a directed graph over string-keyed nodes. An edge from A to B
	// means A must precede B in any valid ordering.
	Graph struct {
		// adjacency maps each node to the nodes that depend on it.
		adjacency map[string][]string
		// rank records the order in which nodes were first added. Ordering
		// uses it to break ties between ready nodes, so callers control
		// tie-breaking by the order of AddNode calls.
		rank map[string]int
		// nodes tracks all nodes in insertion order.
		nodes []string
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		rank:      make(map[string]int),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op, so
// a node's rank is fixed by its first addition.
func (g *Graph) AddNode(name string) {
	if _, ok := g.rank[name]; ok {
		return
	}
	g.rank[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must precede "to".
// Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// TopologicalSort returns a valid load order using Kahn's algorithm.
// When several nodes are ready at once, the one with the lowest rank
// (earliest AddNode call) is emitted first, which makes the result
// deterministic and lets callers encode selection-order priority.
// Returns CycleError if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	ready := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			ready = append(ready, node)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		// Pick the ready node with the lowest rank.
		best := 0
		for i := 1; i < len(ready); i++ {
			if g.rank[ready[i]] < g.rank[ready[best]] {
				best = i
			}
		}
		node := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				ready = append(ready, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}
