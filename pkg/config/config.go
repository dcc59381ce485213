package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is the optional config file read from the working directory.
	DefaultFile = "decision-tree.toml"

	// EnvPrefix prefixes environment overrides (e.g., DECISION_TREE_PORT=9090).
	EnvPrefix = "DECISION_TREE_"
)

// Config holds all configuration for the application
type Config struct {
	File             string `koanf:"file"`
	WebMode          bool   `koanf:"web"`
	Port             int    `koanf:"port"`
	OpenBrowser      bool   `koanf:"open"`
	Watch            bool   `koanf:"watch"`
	AutoCompute      bool   `koanf:"auto-compute"`
	Save             bool   `koanf:"save"`
	Sample           bool   `koanf:"sample"`
	RejectDuplicates bool   `koanf:"reject-duplicates"`
	Verbosity        string `koanf:"verbosity"`
	VerboseCnt       int    `koanf:"verbose"`
	LogFormat        string `koanf:"log-format"`
}

// Defaults returns the built-in configuration values keyed by koanf path.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"file":              "",
		"web":               false,
		"port":              8080,
		"open":              true,
		"watch":             false,
		"auto-compute":      false,
		"save":              false,
		"sample":            false,
		"reject-duplicates": true,
		"verbosity":         "",
		"verbose":           0,
		"log-format":        "compact",
	}
}

// RegisterFlags declares the command-line flags that mirror Config.
func RegisterFlags(f *pflag.FlagSet) {
	f.String("file", "", "Decision tree JSON document to open")
	f.Bool("web", false, "Start the editor web server")
	f.Int("port", 8080, "Port for the web server (only used with --web)")
	f.Bool("open", true, "Open a browser when the web server starts")
	f.Bool("watch", false, "Reload --file when it changes on disk")
	f.Bool("auto-compute", false, "Distribute probabilities on decision nodes that have none")
	f.Bool("save", false, "Write the (auto-computed) graph back to --file")
	f.Bool("sample", false, "Start from the sample graph when no --file is given")
	f.Bool("reject-duplicates", true, "Reject edges repeating an existing source/target pair")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.String("log-format", "compact", "Log format: compact or json")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFrom(DefaultFile, f)
}

// LoadFrom is Load with an explicit config file path. A missing file is ignored.
func LoadFrom(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file (optional)
	if path != "" {
		_ = k.Load(file.Provider(path), toml.Parser())
	}

	// 3. Environment variables: DECISION_TREE_AUTO_COMPUTE -> auto-compute
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (only those explicitly set override lower layers)
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	switch cfg.LogFormat {
	case "compact", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}

	return &cfg, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
