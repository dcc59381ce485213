package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic checking via errors.Is().
var (
	// ErrSelfLoop indicates an edge whose source equals its target.
	ErrSelfLoop = errors.New("self-loop")

	// ErrDuplicateEdge indicates an edge repeating an existing (source, target) pair.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrMalformedGraph indicates a document that does not have the expected shape.
	ErrMalformedGraph = errors.New("malformed graph")

	// ErrUnknownNode indicates a reference to a node id that is not in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownKind indicates a node kind other than event, decision or result.
	ErrUnknownKind = errors.New("unknown node kind")

	ErrBlankLabel         = errors.New("label must not be blank")
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
)

// SelfLoopError is returned when an edge would connect a node to itself.
type SelfLoopError struct {
	NodeID string
}

func (e *SelfLoopError) Error() string {
	return fmt.Sprintf("%s: cannot connect node %q to itself", ErrSelfLoop, e.NodeID)
}

func (e *SelfLoopError) Unwrap() error { return ErrSelfLoop }

// DuplicateEdgeError is returned when an edge with the same endpoints already exists.
type DuplicateEdgeError struct {
	Source     string
	Target     string
	ExistingID string
}

func (e *DuplicateEdgeError) Error() string {
	return fmt.Sprintf("%s: %q -> %q already exists as %q", ErrDuplicateEdge, e.Source, e.Target, e.ExistingID)
}

func (e *DuplicateEdgeError) Unwrap() error { return ErrDuplicateEdge }

// UnknownNodeError is returned when an operation names a node that does not exist.
type UnknownNodeError struct {
	ID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownNode, e.ID)
}

func (e *UnknownNodeError) Unwrap() error { return ErrUnknownNode }

// MalformedGraphError is non-fatal: the decoder returns it together with an empty graph.
type MalformedGraphError struct {
	Msg string // Deterministic message
	Err error  // Optional underlying error (e.g., from json.Unmarshal)
}

func (e *MalformedGraphError) Error() string {
	if e.Msg == "" && e.Err == nil {
		return ErrMalformedGraph.Error()
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrMalformedGraph, e.Msg)
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", ErrMalformedGraph, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformedGraph, e.Msg, e.Err)
}

func (e *MalformedGraphError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedGraph}
	}
	return []error{ErrMalformedGraph, e.Err}
}
