package watcher

import (
	"context"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/logging"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/store"
)

// ReloadFunc receives the graph loaded after the document changed. malformed
// reports that the document could not be parsed and g is empty.
type ReloadFunc func(g *model.Graph, malformed bool)

// Follow reloads the document at path for every written event until events is
// closed or ctx is cancelled. A malformed document is passed on as an empty
// graph with malformed set. Removals and unreadable files leave the current graph alone.
func Follow(ctx context.Context, events <-chan ChangeEvent, path string, reload ReloadFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			handleChange(event, path, reload)
		}
	}
}

func handleChange(event ChangeEvent, path string, reload ReloadFunc) {
	if event.Type == ChangeTypeRemoved {
		logging.Warn("document removed, keeping current graph", "path", path)
		return
	}

	g, err := store.Load(path)
	switch {
	case err == nil:
		logging.Info("document reloaded", "path", path, "nodes", len(g.Nodes), "edges", len(g.Edges))
	case store.IsMalformed(err):
		logging.Warn("reloaded document is malformed", "path", path, "error", err)
	default:
		logging.Error("failed to reload document", "path", path, "error", err)
		return
	}
	reload(g, err != nil)
}
