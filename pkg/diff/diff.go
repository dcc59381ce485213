// Package diff compares two decision tree graphs by node and edge id.
package diff

import (
	"crypto/sha256"
	"fmt"
	"slices"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
)

// GraphDiff represents the difference between two graph states. Ids are sorted.
type GraphDiff struct {
	AddedNodes    []string `json:"addedNodes"`
	RemovedNodes  []string `json:"removedNodes"`
	ModifiedNodes []string `json:"modifiedNodes"` // Label or kind changed
	AddedEdges    []string `json:"addedEdges"`
	RemovedEdges  []string `json:"removedEdges"`
	ModifiedEdges []string `json:"modifiedEdges"` // Endpoints, label or probability changed
	Reordered     bool     `json:"reordered"`     // Same content, different display order
}

// Empty reports whether the graphs were identical.
func (d *GraphDiff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.ModifiedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0 && len(d.ModifiedEdges) == 0 &&
		!d.Reordered
}

// Hash returns a digest of the graph's serialized document.
func Hash(g *model.Graph) string {
	data, err := model.Encode(g)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// Compute computes the difference between two graphs. A nil graph counts as empty.
func Compute(oldGraph, newGraph *model.Graph) *GraphDiff {
	if oldGraph == nil {
		oldGraph = model.NewGraph()
	}
	if newGraph == nil {
		newGraph = model.NewGraph()
	}

	diff := &GraphDiff{
		AddedNodes:    make([]string, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]string, 0),
		AddedEdges:    make([]string, 0),
		RemovedEdges:  make([]string, 0),
		ModifiedEdges: make([]string, 0),
	}

	oldNodes := make(map[string]*model.Node, len(oldGraph.Nodes))
	for _, n := range oldGraph.Nodes {
		oldNodes[n.ID] = n
	}
	newNodes := make(map[string]*model.Node, len(newGraph.Nodes))
	for _, n := range newGraph.Nodes {
		newNodes[n.ID] = n
		old, exists := oldNodes[n.ID]
		switch {
		case !exists:
			diff.AddedNodes = append(diff.AddedNodes, n.ID)
		case !nodesEqual(old, n):
			diff.ModifiedNodes = append(diff.ModifiedNodes, n.ID)
		}
	}
	for id := range oldNodes {
		if _, exists := newNodes[id]; !exists {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}

	oldEdges := make(map[string]*model.Edge, len(oldGraph.Edges))
	for _, e := range oldGraph.Edges {
		oldEdges[e.ID] = e
	}
	newEdges := make(map[string]*model.Edge, len(newGraph.Edges))
	for _, e := range newGraph.Edges {
		newEdges[e.ID] = e
		old, exists := oldEdges[e.ID]
		switch {
		case !exists:
			diff.AddedEdges = append(diff.AddedEdges, e.ID)
		case !edgesEqual(old, e):
			diff.ModifiedEdges = append(diff.ModifiedEdges, e.ID)
		}
	}
	for id := range oldEdges {
		if _, exists := newEdges[id]; !exists {
			diff.RemovedEdges = append(diff.RemovedEdges, id)
		}
	}

	for _, ids := range [][]string{
		diff.AddedNodes, diff.RemovedNodes, diff.ModifiedNodes,
		diff.AddedEdges, diff.RemovedEdges, diff.ModifiedEdges,
	} {
		slices.Sort(ids)
	}

	if diff.Empty() {
		diff.Reordered = !slices.Equal(nodeOrder(oldGraph), nodeOrder(newGraph)) ||
			!slices.Equal(edgeOrder(oldGraph), edgeOrder(newGraph))
	}
	return diff
}

func nodesEqual(a, b *model.Node) bool {
	return a.Label == b.Label && a.Kind == b.Kind
}

func edgesEqual(a, b *model.Edge) bool {
	return a.Source == b.Source &&
		a.Target == b.Target &&
		ptrEqual(a.Label, b.Label) &&
		ptrEqual(a.Probability, b.Probability)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func nodeOrder(g *model.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func edgeOrder(g *model.Graph) []string {
	ids := make([]string, len(g.Edges))
	for i, e := range g.Edges {
		ids[i] = e.ID
	}
	return ids
}
