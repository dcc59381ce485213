package graph

import (
	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

// Index is a directed view of a decision tree keyed by gonum node ids.
// The gonum graph holds at most one edge per ordered pair and no self-loops;
// the raw adjacency lists keep every edge, including parallel edges and self-loops.
type Index struct {
	graph    *simple.DirectedGraph
	ids      map[string]int64 // Node id -> gonum id
	names    []string         // gonum id -> node id
	out      [][]int64        // gonum id -> target per edge, in edge order
	selfLoop []string         // Node ids with at least one self-loop, in edge order
}

// NewIndex builds an index over the graph's nodes and edges.
// Edges referencing unknown nodes are skipped.
func NewIndex(g *model.Graph) *Index {
	idx := &Index{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64),
	}
	if g == nil {
		return idx
	}

	for _, n := range g.Nodes {
		idx.addNode(n.ID)
	}

	looped := make(map[string]bool)
	for _, e := range g.Edges {
		from, okFrom := idx.ids[e.Source]
		to, okTo := idx.ids[e.Target]
		if !okFrom || !okTo {
			continue
		}

		idx.out[from] = append(idx.out[from], to)

		// simple.DirectedGraph panics on self edges
		if from == to {
			if !looped[e.Source] {
				looped[e.Source] = true
				idx.selfLoop = append(idx.selfLoop, e.Source)
			}
			continue
		}
		if !idx.graph.HasEdgeFromTo(from, to) {
			idx.graph.SetEdge(idx.graph.NewEdge(idx.graph.Node(from), idx.graph.Node(to)))
		}
	}

	return idx
}

func (idx *Index) addNode(id string) {
	if _, exists := idx.ids[id]; exists {
		return
	}
	gid := int64(len(idx.names))
	idx.ids[id] = gid
	idx.names = append(idx.names, id)
	idx.out = append(idx.out, nil)
	idx.graph.AddNode(simple.Node(gid))
}

// Len returns the number of indexed nodes.
func (idx *Index) Len() int {
	return len(idx.names)
}

// NodeID returns the decision-tree node id for a gonum id.
func (idx *Index) NodeID(id int64) string {
	if id < 0 || int(id) >= len(idx.names) {
		return ""
	}
	return idx.names[id]
}

// Successors returns the target of every edge leaving the node, with repetition.
func (idx *Index) Successors(id int64) []int64 {
	if id < 0 || int(id) >= len(idx.out) {
		return nil
	}
	return idx.out[id]
}

// SelfLoops returns the ids of nodes that have an edge to themselves.
func (idx *Index) SelfLoops() []string {
	return idx.selfLoop
}

// Graph returns the underlying directed graph
func (idx *Index) Graph() *simple.DirectedGraph {
	return idx.graph
}
