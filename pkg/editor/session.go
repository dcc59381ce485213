// Package editor holds the mutable decision tree of one editing session and the
// operations that change it.
//
// A Session is not safe for concurrent use; callers that share one across
// goroutines must serialize access.
package editor

import (
	"fmt"
	"strings"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/logging"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/probability"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/validate"
)

// maxIDAttempts bounds retries when a generated id is already taken.
const maxIDAttempts = 16

// Options configures a Session.
type Options struct {
	// IDs generates node and edge ids. Defaults to model.RandomIDs.
	IDs model.IDGenerator

	// RejectDuplicateEdges refuses a second edge with the same source and target.
	RejectDuplicateEdges bool

	// Seed starts the session with the sample graph instead of an empty one.
	Seed bool
}

// EdgeRequest describes an edge to add.
type EdgeRequest struct {
	Source      string
	Target      string
	Label       string   // Blank means unlabeled
	Probability *float64 // nil means no probability

	// AutoOrient swaps the endpoints when the source outranks the target
	// (event < decision < result).
	AutoOrient bool

	// Reverse swaps the endpoints after auto-orientation.
	Reverse bool
}

// Session is the editing context for a single decision tree.
type Session struct {
	graph   *model.Graph
	ids     model.IDGenerator
	options Options
}

// New creates a session.
func New(opts Options) *Session {
	if opts.IDs == nil {
		opts.IDs = model.RandomIDs{}
	}
	s := &Session{
		graph:   model.NewGraph(),
		ids:     opts.IDs,
		options: opts,
	}
	if opts.Seed {
		s.graph = model.SampleGraph()
	}
	return s
}

// Graph returns the live graph. Callers must not modify it.
func (s *Session) Graph() *model.Graph {
	return s.graph
}

// Snapshot returns a deep copy of the current graph.
func (s *Session) Snapshot() *model.Graph {
	return s.graph.Clone()
}

// AddNode appends a node. A blank label is rejected without changing the graph.
func (s *Session) AddNode(label string, kind model.NodeKind) (*model.Node, error) {
	if strings.TrimSpace(label) == "" {
		return nil, model.ErrBlankLabel
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownKind, kind)
	}

	id, err := s.freshID(s.ids.NodeID, func(id string) bool { return s.graph.Node(id) != nil })
	if err != nil {
		return nil, err
	}

	node := &model.Node{ID: id, Label: label, Kind: kind}
	s.graph.AddNode(node)
	logging.Debug("node added", "id", id, "kind", kind)
	return node, nil
}

// AddEdge appends an edge after applying auto-orientation and reversal. Self-loops,
// unknown endpoints, out-of-range probabilities and, when the policy is active,
// duplicate endpoints are rejected without changing the graph.
func (s *Session) AddEdge(req EdgeRequest) (*model.Edge, error) {
	from := s.graph.Node(req.Source)
	if from == nil {
		return nil, &model.UnknownNodeError{ID: req.Source}
	}
	to := s.graph.Node(req.Target)
	if to == nil {
		return nil, &model.UnknownNodeError{ID: req.Target}
	}
	if p := req.Probability; p != nil && !model.ValidProbability(*p) {
		return nil, fmt.Errorf("%w: got %g", model.ErrInvalidProbability, *p)
	}

	source, target := Orient(from, to, req.AutoOrient, req.Reverse)

	if source == target {
		return nil, &model.SelfLoopError{NodeID: source}
	}
	if s.options.RejectDuplicateEdges {
		if existing := s.graph.FindEdge(source, target); existing != nil {
			return nil, &model.DuplicateEdgeError{Source: source, Target: target, ExistingID: existing.ID}
		}
	}

	id, err := s.freshID(s.ids.EdgeID, func(id string) bool { return s.graph.Edge(id) != nil })
	if err != nil {
		return nil, err
	}

	edge := &model.Edge{ID: id, Source: source, Target: target}
	if strings.TrimSpace(req.Label) != "" {
		label := req.Label
		edge.Label = &label
	}
	if req.Probability != nil {
		p := *req.Probability
		edge.Probability = &p
	}

	s.graph.AddEdge(edge)
	logging.Debug("edge added", "id", id, "source", source, "target", target)
	return edge, nil
}

// Orient returns the edge endpoints after optional auto-orientation by kind rank
// and optional reversal. Reversal inverts whatever auto-orientation produced.
func Orient(from, to *model.Node, autoOrient, reverse bool) (source, target string) {
	source, target = from.ID, to.ID
	if autoOrient && from.Kind.Rank() > to.Kind.Rank() {
		source, target = target, source
	}
	if reverse {
		source, target = target, source
	}
	return source, target
}

// DeleteNode removes the node and every edge touching it. Returns false when the
// node does not exist.
func (s *Session) DeleteNode(id string) bool {
	index := -1
	for i, n := range s.graph.Nodes {
		if n.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return false
	}

	s.graph.Nodes = append(s.graph.Nodes[:index], s.graph.Nodes[index+1:]...)

	kept := make([]*model.Edge, 0, len(s.graph.Edges))
	removed := 0
	for _, e := range s.graph.Edges {
		if e.Source == id || e.Target == id {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.graph.Edges = kept

	logging.Debug("node deleted", "id", id, "edgesRemoved", removed)
	return true
}

// DeleteEdge removes a single edge. Returns false when the edge does not exist.
func (s *Session) DeleteEdge(id string) bool {
	for i, e := range s.graph.Edges {
		if e.ID == id {
			s.graph.Edges = append(s.graph.Edges[:i], s.graph.Edges[i+1:]...)
			logging.Debug("edge deleted", "id", id)
			return true
		}
	}
	return false
}

// Clear empties the graph.
func (s *Session) Clear() {
	s.graph = model.NewGraph()
}

// ResetToSample replaces the graph with the sample graph.
func (s *Session) ResetToSample() {
	s.graph = model.SampleGraph()
}

// Replace swaps in a whole graph, typically a freshly decoded document.
// A nil graph clears the session.
func (s *Session) Replace(g *model.Graph) {
	if g == nil {
		g = model.NewGraph()
	}
	s.graph = g
}

// AutoCompute distributes probabilities on decision nodes that have none.
// Returns the number of decision nodes updated.
func (s *Session) AutoCompute() int {
	return probability.AutoCompute(s.graph)
}

// Warnings validates the current graph.
func (s *Session) Warnings() []string {
	return validate.Graph(s.graph)
}

func (s *Session) freshID(next func() string, taken func(string) bool) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		if id := next(); !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique id after %d attempts", maxIDAttempts)
}
