package model

import (
	"encoding/json"
	"fmt"
)

// document is the on-disk and on-the-wire shape shared with the rendering frontend.
type document struct {
	Nodes *[]nodeDoc `json:"nodes"`
	Edges *[]edgeDoc `json:"edges"`
}

type nodeDoc struct {
	ID   string   `json:"id"`
	Data nodeData `json:"data"`
	Kind NodeKind `json:"kind"`
}

type nodeData struct {
	Label string `json:"label"`
}

type edgeDoc struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Target string    `json:"target"`
	Label  *string   `json:"label"`
	Data   *edgeData `json:"data,omitempty"`
}

// edgeData.Prob is omitted when unset so that "no probability" stays distinct from 0.
type edgeData struct {
	Prob *float64 `json:"prob,omitempty"`
}

// MarshalJSON encodes the graph in document shape.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(toDocument(g))
}

// Encode renders the graph as pretty-printed JSON with two-space indentation.
func Encode(g *Graph) ([]byte, error) {
	data, err := json.MarshalIndent(toDocument(g), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return append(data, '\n'), nil
}

func toDocument(g *Graph) document {
	nodes := make([]nodeDoc, 0)
	edges := make([]edgeDoc, 0)
	if g != nil {
		for _, n := range g.Nodes {
			nodes = append(nodes, nodeDoc{ID: n.ID, Data: nodeData{Label: n.Label}, Kind: n.Kind})
		}
		for _, e := range g.Edges {
			ed := edgeDoc{ID: e.ID, Source: e.Source, Target: e.Target, Label: e.Label}
			if e.Probability != nil {
				p := *e.Probability
				ed.Data = &edgeData{Prob: &p}
			}
			edges = append(edges, ed)
		}
	}
	return document{Nodes: &nodes, Edges: &edges}
}

// Decode parses a document. Any malformed input returns an empty graph together
// with a *MalformedGraphError so callers can carry on with an empty-equivalent graph.
func Decode(data []byte) (*Graph, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return NewGraph(), &MalformedGraphError{Msg: "invalid JSON document", Err: err}
	}
	if doc.Nodes == nil {
		return NewGraph(), &MalformedGraphError{Msg: `missing "nodes"`}
	}
	if doc.Edges == nil {
		return NewGraph(), &MalformedGraphError{Msg: `missing "edges"`}
	}

	g := NewGraph()
	for i, nd := range *doc.Nodes {
		if nd.ID == "" {
			return NewGraph(), &MalformedGraphError{Msg: fmt.Sprintf("node %d has no id", i)}
		}
		if g.Node(nd.ID) != nil {
			return NewGraph(), &MalformedGraphError{Msg: fmt.Sprintf("duplicate node id %q", nd.ID)}
		}
		kind := nd.Kind
		if kind == "" {
			kind = KindEvent
		}
		if !kind.Valid() {
			return NewGraph(), &MalformedGraphError{
				Msg: fmt.Sprintf("node %q", nd.ID),
				Err: fmt.Errorf("%w: %q", ErrUnknownKind, nd.Kind),
			}
		}
		g.AddNode(&Node{ID: nd.ID, Label: nd.Data.Label, Kind: kind})
	}

	seen := make(map[string]bool, len(*doc.Edges))
	for i, ed := range *doc.Edges {
		if ed.ID == "" {
			return NewGraph(), &MalformedGraphError{Msg: fmt.Sprintf("edge %d has no id", i)}
		}
		if seen[ed.ID] {
			return NewGraph(), &MalformedGraphError{Msg: fmt.Sprintf("duplicate edge id %q", ed.ID)}
		}
		seen[ed.ID] = true
		for _, end := range []string{ed.Source, ed.Target} {
			if g.Node(end) == nil {
				return NewGraph(), &MalformedGraphError{
					Msg: fmt.Sprintf("edge %q", ed.ID),
					Err: &UnknownNodeError{ID: end},
				}
			}
		}
		edge := &Edge{ID: ed.ID, Source: ed.Source, Target: ed.Target, Label: ed.Label}
		if ed.Data != nil && ed.Data.Prob != nil {
			p := *ed.Data.Prob
			if !ValidProbability(p) {
				return NewGraph(), &MalformedGraphError{
					Msg: fmt.Sprintf("edge %q", ed.ID),
					Err: fmt.Errorf("%w: got %g", ErrInvalidProbability, p),
				}
			}
			edge.Probability = &p
		}
		g.AddEdge(edge)
	}

	return g, nil
}
