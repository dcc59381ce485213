package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeWritten covers creates and writes, including an editor
	// replacing the file by rename.
	ChangeTypeWritten ChangeType = iota
	ChangeTypeRemoved
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeWritten:
		return "written"
	case ChangeTypeRemoved:
		return "removed"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchWindow groups raw fsnotify events before they are sent on.
const batchWindow = 100 * time.Millisecond

// FileWatcher watches a single document file. The parent directory is watched
// so that files replaced by rename keep being tracked.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	events   chan ChangeEvent
	stopOnce sync.Once
}

// NewFileWatcher creates a new file system watcher for the document at path
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		path:    abs,
		events:  make(chan ChangeEvent, 100),
	}

	return fw, nil
}

// Path returns the absolute path of the watched document.
func (fw *FileWatcher) Path() string {
	return fw.path
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Info("started watching document", "path", fw.path)

	// Process events
	go fw.processEvents(ctx)

	return nil
}

// classify maps an fsnotify event on the document to a change type. Events on
// other files in the directory are ignored.
func (fw *FileWatcher) classify(event fsnotify.Event) (ChangeType, bool) {
	if filepath.Clean(event.Name) != fw.path {
		return 0, false
	}
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return ChangeTypeWritten, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return ChangeTypeRemoved, true
	default:
		// Chmod
		return 0, false
	}
}

// processEvents batches file system events and forwards the last state seen
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)

	var (
		pending  bool
		lastType ChangeType
	)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		if !pending {
			return
		}
		select {
		case fw.events <- ChangeEvent{Type: lastType, Paths: []string{fw.path}, Timestamp: time.Now()}:
		case <-ctx.Done():
		}
		pending = false
	}

	for {
		select {
		case <-ctx.Done():
			_ = fw.Stop()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				flush()
				return
			}

			changeType, relevant := fw.classify(event)
			if !relevant {
				continue
			}
			logging.Trace("document event", "op", event.Op.String(), "path", event.Name)

			pending = true
			lastType = changeType
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. It is closed when the watcher
// stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}
