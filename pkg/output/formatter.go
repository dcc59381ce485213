package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/cycles"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
)

// Report is everything printed for one validated document.
type Report struct {
	Source   string // File path, or empty for the built-in sample
	Summary  model.Summary
	Warnings []string
	Cycles   []cycles.Cycle
	Updated  int // Decision nodes filled in by auto-compute
}

// PrintReport prints a nicely formatted validation report with colors
func PrintReport(w io.Writer, g *model.Graph, r Report) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Decision Tree - Validation Report")
	bold.Fprintln(w, "=================================")
	source := r.Source
	if source == "" {
		source = "(sample graph)"
	}
	fmt.Fprintf(w, "Document: %s\n", source)
	fmt.Fprintf(w, "Nodes: %d (event %d, decision %d, result %d)\n",
		r.Summary.TotalNodes,
		r.Summary.NodeKinds[model.KindEvent],
		r.Summary.NodeKinds[model.KindDecision],
		r.Summary.NodeKinds[model.KindResult])
	fmt.Fprintf(w, "Edges: %d\n", r.Summary.TotalEdges)
	if r.Updated > 0 {
		cyan.Fprintf(w, "Auto-computed probabilities on %d decision node(s)\n", r.Updated)
	}
	fmt.Fprintln(w)

	// Cycle membership
	if len(r.Cycles) > 0 {
		red.Fprintln(w, "CYCLES:")
		for _, c := range r.Cycles {
			labels := make([]string, len(c.NodeIDs))
			for i, id := range c.NodeIDs {
				labels[i] = g.LabelOf(id)
			}
			if c.SelfLoop {
				yellow.Fprintf(w, "  %s -> itself\n", labels[0])
				continue
			}
			yellow.Fprintf(w, "  %v\n", labels)
		}
		fmt.Fprintln(w)
	}

	// Summary with color based on warning count
	if len(r.Warnings) == 0 {
		green.Fprintln(w, "✓ No warnings")
		return
	}

	yellow.Fprintf(w, "WARNINGS (%d):\n", len(r.Warnings))
	for _, warning := range r.Warnings {
		yellow.Fprintf(w, "  ! %s\n", warning)
	}
}
