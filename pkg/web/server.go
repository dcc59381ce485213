package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/cycles"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/diff"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/editor"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/logging"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/metrics"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/pubsub"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/store"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/validate"
)

//go:embed static/*
var staticFiles embed.FS

// ExportFilename is the attachment name used by the export endpoint.
const ExportFilename = "decision_tree.json"

// maxBodySize caps request bodies, including uploaded documents.
const maxBodySize = 16 << 20

// NodeRequest is the body of POST /api/nodes.
type NodeRequest struct {
	Label string `json:"label"`
	Kind  string `json:"kind"` // Empty means event
}

// EdgeRequest is the body of POST /api/edges.
type EdgeRequest struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Label      string   `json:"label"`
	Prob       *float64 `json:"prob"`
	AutoOrient bool     `json:"autoOrient"`
	Reverse    bool     `json:"reverse"`
}

// GraphResponse is returned by every mutation and by GET /api/graph.
type GraphResponse struct {
	Graph    *model.Graph `json:"graph"`
	Warnings []string     `json:"warnings"`
}

// CyclesResponse is returned by GET /api/cycles.
type CyclesResponse struct {
	HasCycle bool           `json:"hasCycle"`
	Cycles   []cycles.Cycle `json:"cycles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the editor API. All access to the session goes through mu,
// so the session itself never sees concurrent calls.
type Server struct {
	router    *mux.Router
	mu        sync.Mutex
	session   *editor.Session
	publisher *pubsub.SSEPublisher
	metrics   *metrics.Collector
	log       *slog.Logger

	// malformed is set while the current graph came from a document that
	// could not be parsed; the next successful edit clears it.
	malformed bool
}

// NewServer creates a server around an editing session. A nil collector gets a
// fresh one.
func NewServer(session *editor.Session, collector *metrics.Collector) *Server {
	if collector == nil {
		collector = metrics.NewCollector()
	}

	ssePublisher := pubsub.NewSSEPublisher()

	// graph: every event carries the whole graph, so late subscribers only
	// need the most recent one
	ssePublisher.RetainLatest(pubsub.TopicGraph)

	s := &Server{
		router:    mux.NewRouter(),
		session:   session,
		publisher: ssePublisher,
		metrics:   collector,
		log:       logging.New("web"),
	}
	s.setupRoutes()

	s.mu.Lock()
	s.publishLocked(pubsub.EventSnapshot)
	s.mu.Unlock()
	return s
}

// Handler returns the router wrapped in the request logging middleware.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// Reload swaps in a graph read from disk and notifies subscribers. A malformed
// document arrives here as an empty graph with malformed set. Reloading an
// identical graph is a no-op.
func (s *Server) Reload(g *model.Graph, malformed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if malformed == s.malformed && sameDocument(s.session.Graph(), g) {
		s.log.Debug("reloaded document is unchanged")
		return
	}

	d := diff.Compute(s.session.Graph(), g)
	s.log.Info("applying reloaded document",
		"nodesAdded", len(d.AddedNodes),
		"nodesRemoved", len(d.RemovedNodes),
		"nodesModified", len(d.ModifiedNodes),
		"edgesAdded", len(d.AddedEdges),
		"edgesRemoved", len(d.RemovedEdges),
		"edgesModified", len(d.ModifiedEdges),
		"malformed", malformed,
	)

	s.session.Replace(g)
	s.malformed = malformed
	s.metrics.ObserveMutation("reload")
	s.publishLocked(pubsub.EventReloaded)
}

// sameDocument reports whether a and b serialize identically.
func sameDocument(a, b *model.Graph) bool {
	ha := diff.Hash(a)
	return ha != "" && ha == diff.Hash(b)
}

// Snapshot returns a copy of the current graph.
func (s *Server) Snapshot() *model.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Snapshot()
}

// Close shuts down the change feed.
func (s *Server) Close() error {
	return s.publisher.Close()
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/graph", s.handleSubscribeGraph).Methods("GET")

	// API routes - more specific routes must come first
	s.router.HandleFunc("/api/graph/sample", s.handleSample).Methods("POST")
	s.router.HandleFunc("/api/graph/export", s.handleExport).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleGetGraph).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleReplaceGraph).Methods("PUT")
	s.router.HandleFunc("/api/graph", s.handleClearGraph).Methods("DELETE")
	s.router.HandleFunc("/api/nodes", s.handleAddNode).Methods("POST")
	s.router.HandleFunc("/api/nodes/{id}", s.handleDeleteNode).Methods("DELETE")
	s.router.HandleFunc("/api/edges", s.handleAddEdge).Methods("POST")
	s.router.HandleFunc("/api/edges/{id}", s.handleDeleteEdge).Methods("DELETE")
	s.router.HandleFunc("/api/auto-compute", s.handleAutoCompute).Methods("POST")
	s.router.HandleFunc("/api/warnings", s.handleWarnings).Methods("GET")
	s.router.HandleFunc("/api/summary", s.handleSummary).Methods("GET")
	s.router.HandleFunc("/api/cycles", s.handleCycles).Methods("GET")

	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	// Serve static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logging.Fatal("failed to load embedded static files", "error", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

func (s *Server) handleSubscribeGraph(w http.ResponseWriter, r *http.Request) {
	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicGraph)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.DebugContext(r.Context(), "SSE client went away", "error", err)
			return
		}
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.responseLocked())
}

func (s *Server) handleReplaceGraph(w http.ResponseWriter, r *http.Request) {
	g, err := store.Read(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil && !store.IsMalformed(err) {
		s.metrics.ObserveRejection("replace", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		// A malformed upload still replaces the graph and is reported as a warning
		logging.WarnContext(r.Context(), "uploaded document is malformed", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.Replace(g)
	s.malformed = err != nil
	s.metrics.ObserveMutation("replace")
	resp := s.publishLocked(pubsub.EventReplaced)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearGraph(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, "clear", pubsub.EventCleared, http.StatusOK, func() error {
		s.session.Clear()
		return nil
	})
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, "sample", pubsub.EventReplaced, http.StatusOK, func() error {
		s.session.ResetToSample()
		return nil
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, err := model.Encode(s.session.Graph())
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename))
	_, _ = w.Write(data)
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.metrics.ObserveRejection("add_node", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	kind := model.KindEvent
	if req.Kind != "" {
		k, err := model.ParseKind(req.Kind)
		if err != nil {
			s.metrics.ObserveRejection("add_node", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		kind = k
	}

	s.mutate(w, "add_node", pubsub.EventNodeAdded, http.StatusCreated, func() error {
		_, err := s.session.AddNode(req.Label, kind)
		return err
	})
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mutate(w, "delete_node", pubsub.EventNodeDeleted, http.StatusOK, func() error {
		if !s.session.DeleteNode(id) {
			return &model.UnknownNodeError{ID: id}
		}
		return nil
	})
}

func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	var req EdgeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.metrics.ObserveRejection("add_edge", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mutate(w, "add_edge", pubsub.EventEdgeAdded, http.StatusCreated, func() error {
		_, err := s.session.AddEdge(editor.EdgeRequest{
			Source:      req.Source,
			Target:      req.Target,
			Label:       req.Label,
			Probability: req.Prob,
			AutoOrient:  req.AutoOrient,
			Reverse:     req.Reverse,
		})
		return err
	})
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mutate(w, "delete_edge", pubsub.EventEdgeDeleted, http.StatusOK, func() error {
		if !s.session.DeleteEdge(id) {
			return errEdgeNotFound
		}
		return nil
	})
}

func (s *Server) handleAutoCompute(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, "auto_compute", pubsub.EventAutoCompute, http.StatusOK, func() error {
		updated := s.session.AutoCompute()
		logging.InfoContext(r.Context(), "auto-computed probabilities", "decisionNodes", updated)
		return nil
	})
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	warnings := s.warningsLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, warnings)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	summary := model.Summarize(s.session.Graph())
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	g := s.session.Graph()
	resp := CyclesResponse{HasCycle: cycles.HasCycle(g), Cycles: cycles.FindCycles(g)}
	s.mu.Unlock()

	if resp.Cycles == nil {
		resp.Cycles = []cycles.Cycle{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// errEdgeNotFound reports a delete of an edge id that does not exist.
var errEdgeNotFound = errors.New("edge not found")

// mutate runs op under the session lock. On success the new graph is published
// and returned; on failure the graph is untouched and the error is mapped to a
// status code.
func (s *Server) mutate(w http.ResponseWriter, operation, eventType string, status int, op func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := op(); err != nil {
		s.metrics.ObserveRejection(operation, err)
		s.log.Debug("mutation rejected", "operation", operation, "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	s.malformed = false
	s.metrics.ObserveMutation(operation)
	resp := s.publishLocked(eventType)
	writeJSON(w, status, resp)
}

// publishLocked validates the graph, records it in metrics and sends it to
// subscribers. Callers hold mu.
func (s *Server) publishLocked(eventType string) GraphResponse {
	resp := s.responseLocked()
	s.metrics.ObserveGraph(resp.Graph, len(resp.Warnings))

	update := pubsub.GraphUpdate{Graph: resp.Graph, Warnings: resp.Warnings}
	if err := s.publisher.Publish(pubsub.TopicGraph, eventType, update); err != nil {
		s.log.Warn("failed to publish graph update", "event", eventType, "error", err)
	}
	return resp
}

func (s *Server) responseLocked() GraphResponse {
	return GraphResponse{
		Graph:    s.session.Snapshot(),
		Warnings: s.warningsLocked(),
	}
}

// warningsLocked reports the malformed-document warning in place of the
// validator's findings while the graph came from an unparseable document.
func (s *Server) warningsLocked() []string {
	if s.malformed {
		return []string{validate.MalformedWarning}
	}
	return s.session.Warnings()
}

// statusFor maps editor errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrSelfLoop):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrDuplicateEdge):
		return http.StatusConflict
	case errors.Is(err, model.ErrUnknownNode), errors.Is(err, errEdgeNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrBlankLabel),
		errors.Is(err, model.ErrUnknownKind),
		errors.Is(err, model.ErrInvalidProbability):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// Start serves the API on port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Info("shutting down web server")
	// Close the change feed first so streaming handlers return
	_ = s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	return nil
}
