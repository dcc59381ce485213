// Package probability distributes and checks probabilities on decision nodes.
package probability

import (
	"strconv"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
)

// Tolerance bounds the accepted sum of a decision node's outgoing probabilities.
const (
	MinSum = 0.99
	MaxSum = 1.01
)

// SharePrecision is the number of decimals an auto-computed share is rounded to.
const SharePrecision = 3

// AutoCompute gives every outgoing edge of a decision node an equal share when none
// of those edges carries a nonzero probability. Nodes with at least one nonzero
// probability are left alone. Returns the number of decision nodes updated.
func AutoCompute(g *model.Graph) int {
	if g == nil {
		return 0
	}

	updated := 0
	for _, node := range g.Nodes {
		if node.Kind != model.KindDecision {
			continue
		}

		out := g.OutgoingEdges(node.ID)
		if len(out) == 0 || !allUnset(out) {
			continue
		}

		share := Round(1.0/float64(len(out)), SharePrecision)
		for _, e := range out {
			p := share
			e.Probability = &p
		}
		updated++
	}

	return updated
}

// allUnset reports whether every edge has no probability or a probability of exactly zero.
func allUnset(edges []*model.Edge) bool {
	for _, e := range edges {
		if e.ProbabilityOrZero() != 0 {
			return false
		}
	}
	return true
}

// Sum adds up probabilities, counting unset ones as zero.
func Sum(edges []*model.Edge) float64 {
	total := 0.0
	for _, e := range edges {
		total += e.ProbabilityOrZero()
	}
	return total
}

// AnyExplicit reports whether at least one edge has a probability set, zero included.
func AnyExplicit(edges []*model.Edge) bool {
	for _, e := range edges {
		if e.HasProbability() {
			return true
		}
	}
	return false
}

// WithinTolerance reports whether sum lies in [MinSum, MaxSum].
func WithinTolerance(sum float64) bool {
	return sum >= MinSum && sum <= MaxSum
}

// Round rounds x to the given number of decimal places using the exact
// binary value of x, with exact ties going to the even digit.
func Round(x float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return r
}
