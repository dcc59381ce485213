package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/probability"
)

func decisionWith(probs ...*float64) *model.Graph {
	g := model.NewGraph()
	g.AddNode(&model.Node{ID: "d", Label: "Invest?", Kind: model.KindDecision})
	for i, p := range probs {
		id := string(rune('a' + i))
		g.AddNode(&model.Node{ID: id, Label: id, Kind: model.KindResult})
		g.AddEdge(&model.Edge{ID: "e" + id, Source: "d", Target: id, Probability: p})
	}
	return g
}

func TestGraph_Nil(t *testing.T) {
	assert.Equal(t, []string{MalformedWarning}, Graph(nil))
}

func TestGraph_SampleIsClean(t *testing.T) {
	assert.Empty(t, Graph(model.SampleGraph()))
	assert.Empty(t, Graph(model.NewGraph()))
}

func TestGraph_ProbabilityBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		probs []*float64
		want  []string
	}{
		{"sum 0.98", []*float64{model.Float64(0.49), model.Float64(0.49)}, []string{ProbabilityWarning("Invest?", 0.98)}},
		{"sum 1.0", []*float64{model.Float64(0.5), model.Float64(0.5)}, []string{}},
		{"sum 1.05", []*float64{model.Float64(0.55), model.Float64(0.5)}, []string{ProbabilityWarning("Invest?", 1.05)}},
		{"sum 0.99 inclusive", []*float64{model.Float64(0.99)}, []string{}},
		{"sum 1.01 inclusive", []*float64{model.Float64(1.0), model.Float64(0.01)}, []string{}},
		{"no explicit probabilities", []*float64{nil, nil}, []string{}},
		{"explicit zero counts", []*float64{model.Float64(0), nil}, []string{ProbabilityWarning("Invest?", 0)}},
		{"missing counts as zero", []*float64{model.Float64(0.5), nil}, []string{ProbabilityWarning("Invest?", 0.5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Graph(decisionWith(tt.probs...)))
		})
	}
}

func TestGraph_WarningText(t *testing.T) {
	g := decisionWith(model.Float64(0.55), model.Float64(0.5))
	assert.Equal(t, []string{"decision node 'Invest?' probabilities sum to 1.05, expected 1.0"}, Graph(g))
}

func TestGraph_AutoComputedSharesAreClean(t *testing.T) {
	g := decisionWith(nil, nil)
	probability.AutoCompute(g)
	assert.Empty(t, Graph(g))

	// A third unassigned edge keeps the sum at 1.0
	g.AddNode(&model.Node{ID: "z", Label: "z", Kind: model.KindResult})
	g.AddEdge(&model.Edge{ID: "ez", Source: "d", Target: "z"})
	assert.Equal(t, 0, probability.AutoCompute(g))
	assert.Empty(t, Graph(g))
}

func TestGraph_NonDecisionNodesIgnored(t *testing.T) {
	g := decisionWith(model.Float64(0.2))
	g.Nodes[0].Kind = model.KindEvent
	assert.Empty(t, Graph(g))
}

func TestGraph_OrderAndCycle(t *testing.T) {
	g := model.NewGraph()
	g.AddNode(&model.Node{ID: "s", Label: "Start", Kind: model.KindEvent})
	g.AddNode(&model.Node{ID: "d", Label: "Choose", Kind: model.KindDecision})
	g.AddEdge(&model.Edge{ID: "e1", Source: "s", Target: "d"})
	g.AddEdge(&model.Edge{ID: "e2", Source: "d", Target: "s", Probability: model.Float64(0.3)})
	g.AddEdge(&model.Edge{ID: "e3", Source: "d", Target: "d"})
	g.AddEdge(&model.Edge{ID: "e4", Source: "s", Target: "s"})

	want := []string{
		"self-loop detected on node 'Choose'",
		"self-loop detected on node 'Start'",
		"decision node 'Choose' probabilities sum to 0.30, expected 1.0",
		CycleWarning,
	}
	assert.Equal(t, want, Graph(g))
}

func TestGraph_Idempotent(t *testing.T) {
	g := decisionWith(model.Float64(0.3), model.Float64(0.3))
	g.AddEdge(&model.Edge{ID: "back", Source: "a", Target: "d"})

	first := Graph(g)
	second := Graph(g)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestDocument(t *testing.T) {
	assert.Equal(t, []string{MalformedWarning}, Document([]byte(`{"nodes": []}`)))
	assert.Equal(t, []string{MalformedWarning}, Document([]byte(`garbage`)))

	doc := `{"nodes":[{"id":"a","data":{"label":"Loop"},"kind":"event"}],
		"edges":[{"id":"e","source":"a","target":"a","label":null}]}`
	assert.Equal(t, []string{SelfLoopWarning("Loop"), CycleWarning}, Document([]byte(doc)))
}
