package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
)

func TestObserveMutation(t *testing.T) {
	c := NewCollector()

	c.ObserveMutation("add_node")
	c.ObserveMutation("add_node")
	c.ObserveMutation("clear")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.mutations.WithLabelValues("add_node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mutations.WithLabelValues("clear")))
}

func TestObserveRejection(t *testing.T) {
	c := NewCollector()

	c.ObserveRejection("add_edge", &model.SelfLoopError{NodeID: "a"})
	c.ObserveRejection("add_edge", &model.DuplicateEdgeError{Source: "a", Target: "b"})
	c.ObserveRejection("add_edge", fmt.Errorf("wrapped: %w", &model.SelfLoopError{NodeID: "b"}))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.rejected.WithLabelValues("add_edge", ReasonSelfLoop)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejected.WithLabelValues("add_edge", ReasonDuplicateEdge)))
}

func TestReason(t *testing.T) {
	assert.Equal(t, ReasonUnknownNode, Reason(&model.UnknownNodeError{ID: "x"}))
	assert.Equal(t, ReasonBlankLabel, Reason(model.ErrBlankLabel))
	assert.Equal(t, ReasonMalformed, Reason(&model.MalformedGraphError{}))
	assert.Equal(t, ReasonInvalid, Reason(model.ErrInvalidProbability))
}

func TestObserveGraph(t *testing.T) {
	c := NewCollector()

	c.ObserveGraph(model.SampleGraph(), 4)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.nodes.WithLabelValues("decision")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.edges))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.warnings))
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.ObserveMutation("add_node")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `decision_tree_mutations_total{operation="add_node"} 1`)
}
