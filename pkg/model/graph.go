package model

import "fmt"

// NodeKind is the role a node plays in a decision tree.
type NodeKind string

const (
	KindEvent    NodeKind = "event"    // Starting trigger
	KindDecision NodeKind = "decision" // Weighted choice between outgoing edges
	KindResult   NodeKind = "result"   // Terminal outcome
)

// Kinds lists every node kind in rank order.
var Kinds = []NodeKind{KindEvent, KindDecision, KindResult}

// Rank orders kinds so that edges read event -> decision -> result.
// Unknown kinds rank with events.
func (k NodeKind) Rank() int {
	switch k {
	case KindDecision:
		return 1
	case KindResult:
		return 2
	default:
		return 0
	}
}

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindEvent, KindDecision, KindResult:
		return true
	}
	return false
}

// ParseKind converts a string into a NodeKind.
func ParseKind(s string) (NodeKind, error) {
	k := NodeKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Graph is a decision tree. Node and edge order is display order.
type Graph struct {
	Nodes []*Node
	Edges []*Edge
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
	}
}

// Node is a vertex of the decision tree. Its ID never changes after creation.
type Node struct {
	ID    string
	Label string
	Kind  NodeKind
}

// Edge is a directed transition between two nodes.
type Edge struct {
	ID          string
	Source      string
	Target      string
	Label       *string  // nil when the edge is unlabeled
	Probability *float64 // nil when no probability was assigned
}

// HasProbability reports whether an explicit probability was set, including zero.
func (e *Edge) HasProbability() bool {
	return e.Probability != nil
}

// ProbabilityOrZero returns the probability, treating an unset value as zero.
func (e *Edge) ProbabilityOrZero() float64 {
	if e.Probability == nil {
		return 0
	}
	return *e.Probability
}

// AddNode appends a node without any checks.
func (g *Graph) AddNode(node *Node) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge appends an edge without any checks.
func (g *Graph) AddEdge(edge *Edge) {
	g.Edges = append(g.Edges, edge)
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id string) *Edge {
	for _, e := range g.Edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// FindEdge returns the first edge from source to target, or nil.
func (g *Graph) FindEdge(source, target string) *Edge {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return e
		}
	}
	return nil
}

// OutgoingEdges returns the edges leaving the node, in edge order.
func (g *Graph) OutgoingEdges(id string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// LabelOf returns the label of the node, falling back to its id when the node is unknown.
func (g *Graph) LabelOf(id string) string {
	if n := g.Node(id); n != nil {
		return n.Label
	}
	return id
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Nodes: make([]*Node, 0, len(g.Nodes)),
		Edges: make([]*Edge, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		cp := *n
		c.Nodes = append(c.Nodes, &cp)
	}
	for _, e := range g.Edges {
		cp := *e
		if e.Label != nil {
			label := *e.Label
			cp.Label = &label
		}
		if e.Probability != nil {
			p := *e.Probability
			cp.Probability = &p
		}
		c.Edges = append(c.Edges, &cp)
	}
	return c
}

// Summary holds quick counts for a graph.
type Summary struct {
	TotalNodes int              `json:"total_nodes"`
	TotalEdges int              `json:"total_edges"`
	NodeKinds  map[NodeKind]int `json:"node_types"`
}

// Summarize counts nodes, edges and nodes per kind.
func Summarize(g *Graph) Summary {
	s := Summary{NodeKinds: make(map[NodeKind]int)}
	if g == nil {
		return s
	}
	s.TotalNodes = len(g.Nodes)
	s.TotalEdges = len(g.Edges)
	for _, n := range g.Nodes {
		s.NodeKinds[n.Kind]++
	}
	return s
}

// SampleGraph returns the Start -> Decision -> Result graph new sessions are seeded with.
func SampleGraph() *Graph {
	next, outcome := "Next", "Outcome"
	return &Graph{
		Nodes: []*Node{
			{ID: "1", Label: "Start", Kind: KindEvent},
			{ID: "2", Label: "Decision", Kind: KindDecision},
			{ID: "3", Label: "Result", Kind: KindResult},
		},
		Edges: []*Edge{
			{ID: "e1", Source: "1", Target: "2", Label: &next},
			{ID: "e2", Source: "2", Target: "3", Label: &outcome},
		},
	}
}

// ValidProbability reports whether p lies within [0, 1]. NaN is not valid.
func ValidProbability(p float64) bool {
	return p >= 0 && p <= 1
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
