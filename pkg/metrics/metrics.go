package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
)

const (
	LabelOperation = "operation"
	LabelReason    = "reason"
)

// Rejection reasons reported on the rejected-mutations counter.
const (
	ReasonSelfLoop      = "self_loop"
	ReasonDuplicateEdge = "duplicate_edge"
	ReasonUnknownNode   = "unknown_node"
	ReasonBlankLabel    = "blank_label"
	ReasonInvalid       = "invalid"
	ReasonMalformed     = "malformed"
)

// Collector owns the editor's Prometheus metrics.
type Collector struct {
	registry  *prometheus.Registry
	mutations *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	warnings  prometheus.Gauge
	nodes     *prometheus.GaugeVec
	edges     prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decision_tree_mutations_total",
			Help: "Graph mutations applied, by operation",
		}, []string{LabelOperation}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decision_tree_mutations_rejected_total",
			Help: "Graph mutations rejected without changing the graph",
		}, []string{LabelOperation, LabelReason}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "decision_tree_validation_warnings",
			Help: "Warnings reported by the most recent validation",
		}),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "decision_tree_nodes",
			Help: "Nodes in the current graph, by kind",
		}, []string{"kind"}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "decision_tree_edges",
			Help: "Edges in the current graph",
		}),
	}

	registry.MustRegister(
		c.mutations,
		c.rejected,
		c.warnings,
		c.nodes,
		c.edges,
		collectors.NewGoCollector(),
	)
	return c
}

// ObserveMutation counts an applied mutation.
func (c *Collector) ObserveMutation(operation string) {
	c.mutations.WithLabelValues(operation).Inc()
}

// ObserveRejection counts a rejected mutation, classifying err into a reason.
func (c *Collector) ObserveRejection(operation string, err error) {
	c.rejected.WithLabelValues(operation, Reason(err)).Inc()
}

// ObserveGraph records the size of the graph and its warning count.
func (c *Collector) ObserveGraph(g *model.Graph, warnings int) {
	summary := model.Summarize(g)
	for _, k := range model.Kinds {
		c.nodes.WithLabelValues(string(k)).Set(float64(summary.NodeKinds[k]))
	}
	c.edges.Set(float64(summary.TotalEdges))
	c.warnings.Set(float64(warnings))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Reason maps a mutation error to a rejection reason label.
func Reason(err error) string {
	switch {
	case errors.Is(err, model.ErrSelfLoop):
		return ReasonSelfLoop
	case errors.Is(err, model.ErrDuplicateEdge):
		return ReasonDuplicateEdge
	case errors.Is(err, model.ErrUnknownNode):
		return ReasonUnknownNode
	case errors.Is(err, model.ErrBlankLabel):
		return ReasonBlankLabel
	case errors.Is(err, model.ErrMalformedGraph):
		return ReasonMalformed
	default:
		return ReasonInvalid
	}
}
