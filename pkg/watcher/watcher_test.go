package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
	"github.com/j-w-matlock/Decision-Tree-2/pkg/store"
)

func receive(t *testing.T, ch <-chan ChangeEvent, timeout time.Duration) ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(timeout):
		t.Fatal("timeout waiting for event")
		return ChangeEvent{}
	}
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, 30*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeWritten, Paths: []string{"a.json"}}
	input <- ChangeEvent{Type: ChangeTypeRemoved, Paths: []string{"a.json"}}
	input <- ChangeEvent{Type: ChangeTypeWritten, Paths: []string{"a.json"}}

	event := receive(t, d.Output(), time.Second)
	assert.Equal(t, ChangeTypeWritten, event.Type, "last change wins")
	assert.Equal(t, []string{"a.json"}, event.Paths)

	select {
	case extra := <-d.Output():
		t.Fatalf("unexpected second event: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_MaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	d := NewDebouncer(input, time.Hour, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeRemoved, Paths: []string{"a.json"}}

	event := receive(t, d.Output(), time.Second)
	assert.Equal(t, ChangeTypeRemoved, event.Type)
}

func TestDebouncer_FlushesOnInputClose(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := NewDebouncer(input, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeWritten, Paths: []string{"a.json"}}
	close(input)

	event := receive(t, d.Output(), time.Second)
	assert.Equal(t, ChangeTypeWritten, event.Type)

	_, ok := <-d.Output()
	assert.False(t, ok, "output should close after input closes")
}

func TestFileWatcher_DetectsSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.json")
	require.NoError(t, store.Save(path, model.NewGraph()))

	fw, err := NewFileWatcher(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	// Unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, store.Save(path, model.SampleGraph()))

	event := receive(t, fw.Events(), 2*time.Second)
	assert.Equal(t, ChangeTypeWritten, event.Type)
	assert.Equal(t, []string{fw.Path()}, event.Paths)

	require.NoError(t, os.Remove(path))
	event = receive(t, fw.Events(), 2*time.Second)
	assert.Equal(t, ChangeTypeRemoved, event.Type)

	cancel()
	select {
	case _, ok := <-fw.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}

func TestHandleChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")

	var reloaded []*model.Graph
	var malformed []bool
	reload := func(g *model.Graph, bad bool) {
		reloaded = append(reloaded, g)
		malformed = append(malformed, bad)
	}
	written := ChangeEvent{Type: ChangeTypeWritten, Paths: []string{path}}

	// Missing file: nothing reloaded
	handleChange(written, path, reload)
	assert.Empty(t, reloaded)

	require.NoError(t, store.Save(path, model.SampleGraph()))
	handleChange(written, path, reload)

	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": 5}`), 0o644))
	handleChange(written, path, reload)

	handleChange(ChangeEvent{Type: ChangeTypeRemoved, Paths: []string{path}}, path, reload)

	require.Len(t, reloaded, 2)
	assert.Len(t, reloaded[0].Nodes, 3)
	assert.Empty(t, reloaded[1].Nodes, "malformed document reloads as empty graph")
	assert.Equal(t, []bool{false, true}, malformed)
}

func TestFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, store.Save(path, model.SampleGraph()))

	events := make(chan ChangeEvent, 1)
	events <- ChangeEvent{Type: ChangeTypeWritten, Paths: []string{path}}
	close(events)

	var got *model.Graph
	Follow(context.Background(), events, path, func(g *model.Graph, _ bool) { got = g })

	require.NotNil(t, got)
	assert.Equal(t, model.SampleGraph(), got)
}

func TestFollow_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		Follow(ctx, make(chan ChangeEvent), "unused.json", func(*model.Graph, bool) {
			t.Error("unexpected reload")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "written", ChangeTypeWritten.String())
	assert.Equal(t, "removed", ChangeTypeRemoved.String())
	assert.Equal(t, "ChangeType(7)", ChangeType(7).String())
}
