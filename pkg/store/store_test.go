package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-w-matlock/Decision-Tree-2/pkg/model"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decision_tree.json")
	g := model.SampleGraph()
	g.Edges[1].Probability = model.Float64(1)

	require.NoError(t, Save(path, g))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(g, got))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"nodes\": ["), "expected two-space indentation")
}

func TestSave_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, Save(path, model.NewGraph()))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, got.Nodes)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestSave_MissingDirectory(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "nope", "tree.json"), model.NewGraph())
	assert.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	g, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.False(t, IsMalformed(err))
	assert.Nil(t, g)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"edges": []}`), 0o644))

	g, err := Load(path)
	assert.True(t, IsMalformed(err))
	require.NotNil(t, g)
	assert.Empty(t, g.Nodes)
}

func TestRead_TooLarge(t *testing.T) {
	big := strings.NewReader(strings.Repeat(" ", maxDocumentSize+1))
	_, err := Read(big)
	assert.Error(t, err)
	assert.False(t, IsMalformed(err))
}
