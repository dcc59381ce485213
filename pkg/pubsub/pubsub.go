package pubsub

import (
	"context"
	"encoding/json"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
)

// Topics published by the editor.
const (
	// TopicGraph carries the full graph and its warnings after every change.
	TopicGraph = "graph"
)

// Event types on TopicGraph, named after the change that produced them.
const (
	EventSnapshot    = "snapshot"
	EventNodeAdded   = "node_added"
	EventNodeDeleted = "node_deleted"
	EventEdgeAdded   = "edge_added"
	EventEdgeDeleted = "edge_deleted"
	EventCleared     = "cleared"
	EventReplaced    = "replaced"
	EventReloaded    = "reloaded"
	EventAutoCompute = "auto_computed"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "graph")
	Type    string          `json:"type"`    // Event type (e.g., "node_added", "reloaded")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// GraphUpdate is the payload of every TopicGraph event.
type GraphUpdate struct {
	Graph    *model.Graph `json:"graph"`
	Warnings []string     `json:"warnings"`
}
