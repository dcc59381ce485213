package cycles

import (
	"slices"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/graph"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
)

// HasCycle reports whether the graph contains a directed cycle, self-loops included.
//
// It runs Kahn's topological sort: nodes whose in-degree drops to zero are
// visited, and the graph is cyclic iff some node is never visited. Every edge
// counts toward in-degree, so parallel edges and self-loops behave as in the
// edge list. Edges with unknown endpoints are ignored.
func HasCycle(g *model.Graph) bool {
	if g == nil {
		return false
	}

	idx := graph.NewIndex(g)
	inDegree := make([]int, idx.Len())
	for id := 0; id < idx.Len(); id++ {
		for _, to := range idx.Successors(int64(id)) {
			inDegree[to]++
		}
	}

	queue := make([]int64, 0, idx.Len())
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, int64(id))
		}
	}

	visited := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		for _, to := range idx.Successors(current) {
			inDegree[to]--
			if inDegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	return visited != idx.Len()
}

// Cycle is a set of nodes that reach each other.
type Cycle struct {
	NodeIDs  []string `json:"nodes"`
	SelfLoop bool     `json:"selfLoop,omitempty"`
}

// FindCycles lists every strongly connected component with more than one node,
// followed by one single-node cycle per node with a self-loop. Node ids appear
// in graph order.
func FindCycles(g *model.Graph) []Cycle {
	result := make([]Cycle, 0)
	if g == nil {
		return result
	}

	idx := graph.NewIndex(g)
	sccs := NewTarjanSCC(idx.Graph()).FindSCCs()
	slices.SortFunc(sccs, func(a, b []int64) int {
		return int(a[0] - b[0])
	})

	for _, scc := range sccs {
		ids := make([]string, 0, len(scc))
		for _, id := range scc {
			ids = append(ids, idx.NodeID(id))
		}
		result = append(result, Cycle{NodeIDs: ids})
	}

	for _, id := range idx.SelfLoops() {
		result = append(result, Cycle{NodeIDs: []string{id}, SelfLoop: true})
	}

	return result
}
