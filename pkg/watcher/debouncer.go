package watcher

import (
	"context"
	"time"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/logging"
)

// Debouncer batches rapid file system events so that a burst of saves causes a
// single reload
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. A batch is flushed once no event
// has arrived for quietPeriod, or maxWait after its first event.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run processes events and applies debouncing logic. The last change type in a
// batch wins, since it describes the file's current state.
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet      <-chan time.Time
		deadline   <-chan time.Time
		quietTimer *time.Timer
		maxTimer   *time.Timer
		paths      []string
		seen       = make(map[string]bool)
		lastType   ChangeType
		eventCount int
	)

	flush := func() {
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount, "type", lastType)

		select {
		case d.output <- ChangeEvent{Type: lastType, Paths: paths, Timestamp: time.Now()}:
		case <-ctx.Done():
		}

		// Reset accumulators
		paths = nil
		seen = make(map[string]bool)
		eventCount = 0

		// Stop timers
		if quietTimer != nil {
			quietTimer.Stop()
		}
		if maxTimer != nil {
			maxTimer.Stop()
		}
		quiet, deadline = nil, nil
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			// Accumulate event
			for _, p := range event.Paths {
				if !seen[p] {
					seen[p] = true
					paths = append(paths, p)
				}
			}
			lastType = event.Type
			eventCount++

			// Reset quiet period timer
			if quietTimer == nil {
				quietTimer = time.NewTimer(d.quietPeriod)
			} else {
				quietTimer.Reset(d.quietPeriod)
			}
			quiet = quietTimer.C

			// Start max wait timer on first event of a batch
			if deadline == nil {
				if maxTimer == nil {
					maxTimer = time.NewTimer(d.maxWait)
				} else {
					maxTimer.Reset(d.maxWait)
				}
				deadline = maxTimer.C
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
