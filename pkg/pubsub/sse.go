package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/logging"
)

// subscriberBuffer is the per-subscription channel capacity. Publish never
// blocks; a subscriber that falls this far behind loses events.
const subscriberBuffer = 100

// ErrClosed is returned by Subscribe and Publish after Close.
var ErrClosed = errors.New("publisher is closed")

// SSEPublisher implements Publisher for Server-Sent Events streams. Topics
// registered with RetainLatest keep their most recent event and hand it to
// every new subscriber, so a client connecting late starts from current state.
type SSEPublisher struct {
	mu            sync.Mutex
	subscriptions map[string]map[*sseSubscription]struct{} // topic -> subscriptions
	version       map[string]int                           // topic -> last version published
	retained      map[string]*Event                        // topic -> latest event, nil until first publish
	closed        bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		subscriptions: make(map[string]map[*sseSubscription]struct{}),
		version:       make(map[string]int),
		retained:      make(map[string]*Event),
	}
}

// RetainLatest makes topic replay its latest event to new subscribers.
func (p *SSEPublisher) RetainLatest(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.retained[topic]; !ok {
		p.retained[topic] = nil
	}
}

// Subscribe creates a new subscription to a topic. The retained event, if any,
// is queued before the subscription becomes visible to Publish, so the
// subscriber always sees versions in increasing order.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberBuffer),
		done:      make(chan struct{}),
		publisher: p,
	}

	if latest := p.retained[topic]; latest != nil {
		// Fresh channel, cannot be full
		sub.events <- *latest
		logging.Debug("replayed latest event to new subscriber", "topic", topic, "version", latest.Version)
	}

	if p.subscriptions[topic] == nil {
		p.subscriptions[topic] = make(map[*sseSubscription]struct{})
	}
	p.subscriptions[topic][sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic
func (p *SSEPublisher) Publish(topic string, eventType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.version[topic]++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    jsonData,
		Version: p.version[topic],
	}

	if _, ok := p.retained[topic]; ok {
		p.retained[topic] = &event
	}

	for sub := range p.subscriptions[topic] {
		select {
		case sub.events <- event:
		default:
			logging.Warn("subscription channel full, dropping event", "topic", topic, "version", event.Version)
		}
	}

	return nil
}

// Close shuts down the publisher and ends every subscription
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, subs := range p.subscriptions {
		for sub := range subs {
			sub.closeEvents()
		}
	}
	p.subscriptions = make(map[string]map[*sseSubscription]struct{})

	return nil
}

// unsubscribe removes a subscription and closes its channel. Holding mu keeps
// Publish from sending on the channel while it closes.
func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if subs := p.subscriptions[sub.topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(p.subscriptions, sub.topic)
		}
	}
	sub.closeEvents()
}

// sseSubscription implements Subscription
type sseSubscription struct {
	topic     string
	events    chan Event
	done      chan struct{}
	publisher *SSEPublisher
	closeOnce sync.Once
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close ends the subscription. Safe to call more than once.
func (s *sseSubscription) Close() error {
	s.publisher.unsubscribe(s)
	return nil
}

func (s *sseSubscription) closeEvents() {
	s.closeOnce.Do(func() {
		close(s.events)
		close(s.done)
	})
}

// WriteSSE writes an event to an SSE response writer
// Format: "data: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", jsonData)
	return err
}
