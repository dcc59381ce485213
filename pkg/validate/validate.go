// Package validate reports advisory warnings about a decision tree.
//
// Warnings never block editing: the caller decides how to surface them.
// Checks run in a fixed order (self-loops in edge order, probability sums in
// node order, then cycles), so validating the same graph twice yields the
// same sequence.
package validate

import (
	"fmt"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/cycles"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/probability"
)

// MalformedWarning is the only warning produced for a missing or malformed graph.
const MalformedWarning = "graph data missing or malformed"

// CycleWarning is appended once when the graph contains any cycle.
const CycleWarning = "graph contains cycles, which may cause logical errors"

// SelfLoopWarning formats the warning for a self-loop on the labeled node.
func SelfLoopWarning(label string) string {
	return fmt.Sprintf("self-loop detected on node '%s'", label)
}

// ProbabilityWarning formats the warning for a decision node whose probabilities do not sum to one.
func ProbabilityWarning(label string, sum float64) string {
	return fmt.Sprintf("decision node '%s' probabilities sum to %.2f, expected 1.0", label, sum)
}

// Graph validates g. A nil graph is treated as malformed.
func Graph(g *model.Graph) []string {
	if g == nil {
		return []string{MalformedWarning}
	}

	warnings := make([]string, 0)

	for _, e := range g.Edges {
		if e.Source == e.Target {
			warnings = append(warnings, SelfLoopWarning(g.LabelOf(e.Source)))
		}
	}

	for _, n := range g.Nodes {
		if n.Kind != model.KindDecision {
			continue
		}
		out := g.OutgoingEdges(n.ID)
		if len(out) == 0 || !probability.AnyExplicit(out) {
			continue
		}
		if sum := probability.Sum(out); !probability.WithinTolerance(sum) {
			warnings = append(warnings, ProbabilityWarning(n.Label, sum))
		}
	}

	if cycles.HasCycle(g) {
		warnings = append(warnings, CycleWarning)
	}

	return warnings
}

// Document decodes a serialized graph and validates it. Malformed documents
// produce exactly one warning and skip every other check.
func Document(data []byte) []string {
	g, err := model.Decode(data)
	if err != nil {
		return Graph(nil)
	}
	return Graph(g)
}
