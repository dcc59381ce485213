package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("decision-tree", pflag.ContinueOnError)
	RegisterFlags(f)
	require.NoError(t, f.Parse(args))
	return f
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"), newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.OpenBrowser)
	assert.True(t, cfg.RejectDuplicates)
	assert.False(t, cfg.WebMode)
	assert.Equal(t, "compact", cfg.LogFormat)
	assert.Empty(t, cfg.File)
}

func TestLoad_NilFlagSet(t *testing.T) {
	cfg, err := LoadFrom("", nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_Layering(t *testing.T) {
	path := writeConfig(t, `
port = 7000
file = "from-file.json"
reject-duplicates = false
auto-compute = true
`)
	t.Setenv("DECISION_TREE_PORT", "7100")
	t.Setenv("DECISION_TREE_LOG_FORMAT", "json")

	cfg, err := LoadFrom(path, newFlags(t, "--file", "from-flag.json", "-vv"))
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Port, "env should override file")
	assert.Equal(t, "from-flag.json", cfg.File, "flag should override file")
	assert.False(t, cfg.RejectDuplicates, "file should override default")
	assert.True(t, cfg.AutoCompute)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 2, cfg.VerboseCnt)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	path := writeConfig(t, "port = 9000\n")

	cfg, err := LoadFrom(path, newFlags(t, "--web"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.WebMode)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := LoadFrom("", newFlags(t, "--port", "0"))
	assert.Error(t, err)

	_, err = LoadFrom("", newFlags(t, "--log-format", "xml"))
	assert.Error(t, err)
}
