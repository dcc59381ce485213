package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	graphs := map[string]*Graph{
		"empty":  NewGraph(),
		"sample": SampleGraph(),
		"probabilities": {
			Nodes: []*Node{
				{ID: "d", Label: "Buy?", Kind: KindDecision},
				{ID: "y", Label: "Yes", Kind: KindResult},
				{ID: "n", Label: "No", Kind: KindResult},
			},
			Edges: []*Edge{
				{ID: "e_1", Source: "d", Target: "y", Probability: Float64(0.25)},
				{ID: "e_2", Source: "d", Target: "n", Label: String("otherwise"), Probability: Float64(0)},
				{ID: "e_3", Source: "y", Target: "n", Label: String("")},
			},
		},
	}

	for name, g := range graphs {
		t.Run(name, func(t *testing.T) {
			data, err := Encode(g)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(g, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncode_Shape(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{ID: "a", Label: "A", Kind: KindDecision})
	g.AddNode(&Node{ID: "b", Label: "B", Kind: KindResult})
	g.AddEdge(&Edge{ID: "e", Source: "a", Target: "b", Probability: Float64(0.5)})
	g.AddEdge(&Edge{ID: "f", Source: "b", Target: "a"})

	data, err := Encode(g)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := `{
  "nodes": [
    {
      "id": "a",
      "data": {
        "label": "A"
      },
      "kind": "decision"
    },
    {
      "id": "b",
      "data": {
        "label": "B"
      },
      "kind": "result"
    }
  ],
  "edges": [
    {
      "id": "e",
      "source": "a",
      "target": "b",
      "label": null,
      "data": {
        "prob": 0.5
      }
    },
    {
      "id": "f",
      "source": "b",
      "target": "a",
      "label": null
    }
  ]
}
`
	if string(data) != want {
		t.Errorf("unexpected encoding:\n%s", data)
	}
}

func TestDecode_MissingKeysYieldEmptyGraph(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"nodes": []}`,
		`{"edges": []}`,
		`{"nodes": null, "edges": []}`,
		`null`,
		`[]`,
		`not json`,
	}

	for _, in := range inputs {
		g, err := Decode([]byte(in))
		if err == nil {
			t.Errorf("Decode(%s): expected error", in)
			continue
		}
		if !errors.Is(err, ErrMalformedGraph) {
			t.Errorf("Decode(%s): expected ErrMalformedGraph, got %v", in, err)
		}
		var mErr *MalformedGraphError
		if !errors.As(err, &mErr) {
			t.Errorf("Decode(%s): expected *MalformedGraphError, got %T", in, err)
		}
		if g == nil || len(g.Nodes) != 0 || len(g.Edges) != 0 {
			t.Errorf("Decode(%s): expected empty graph, got %+v", in, g)
		}
	}
}

func TestDecode_RejectsInvalidContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		is    error
	}{
		{
			name:  "dangling edge",
			input: `{"nodes":[{"id":"a","data":{"label":"A"},"kind":"event"}],"edges":[{"id":"e","source":"a","target":"zz","label":null}]}`,
			is:    ErrUnknownNode,
		},
		{
			name:  "unknown kind",
			input: `{"nodes":[{"id":"a","data":{"label":"A"},"kind":"chance"}],"edges":[]}`,
			is:    ErrUnknownKind,
		},
		{
			name:  "probability out of range",
			input: `{"nodes":[{"id":"a","data":{"label":"A"},"kind":"decision"},{"id":"b","data":{"label":"B"},"kind":"result"}],"edges":[{"id":"e","source":"a","target":"b","label":null,"data":{"prob":1.5}}]}`,
			is:    ErrInvalidProbability,
		},
		{
			name:  "duplicate node id",
			input: `{"nodes":[{"id":"a","data":{"label":"A"}},{"id":"a","data":{"label":"B"}}],"edges":[]}`,
			is:    ErrMalformedGraph,
		},
		{
			name:  "duplicate edge id",
			input: `{"nodes":[{"id":"a","data":{"label":"A"}},{"id":"b","data":{"label":"B"}}],"edges":[{"id":"e","source":"a","target":"b"},{"id":"e","source":"b","target":"a"}]}`,
			is:    ErrMalformedGraph,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Decode([]byte(tt.input))
			if !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
			if !errors.Is(err, ErrMalformedGraph) {
				t.Errorf("expected ErrMalformedGraph in chain, got %v", err)
			}
			if len(g.Nodes) != 0 || len(g.Edges) != 0 {
				t.Errorf("expected empty graph on error")
			}
		})
	}
}

func TestDecode_DefaultsAndTolerance(t *testing.T) {
	input := `{
		"nodes": [{"id": "a", "data": {"label": "A"}}, {"id": "b", "data": {"label": "B"}, "kind": "result"}],
		"edges": [{"id": "e", "source": "a", "target": "b", "label": "go", "data": {}}, {"id": "s", "source": "a", "target": "a"}],
		"viewport": {"zoom": 2}
	}`

	g, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if g.Node("a").Kind != KindEvent {
		t.Errorf("Expected missing kind to default to event, got %q", g.Node("a").Kind)
	}
	e := g.Edge("e")
	if e.HasProbability() {
		t.Errorf("Expected empty data to mean no probability, got %v", *e.Probability)
	}
	if e.Label == nil || *e.Label != "go" {
		t.Errorf("Expected label 'go', got %v", e.Label)
	}
	if g.Edge("s") == nil {
		t.Error("Expected self-loop in a loaded document to be kept for the validator")
	}
}

func TestMalformedGraphError_Message(t *testing.T) {
	_, err := Decode([]byte(`{"nodes": []}`))
	if !strings.Contains(err.Error(), `missing "edges"`) {
		t.Errorf("unexpected message %q", err.Error())
	}
}
