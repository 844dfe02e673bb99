// Package config loads Nexo interpreter settings from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/nexo/go/pkg/evaluator"
)

const (
	// ProjectFile is looked up in the project directory.
	ProjectFile = ".nexo.yaml"
	// UserFile is looked up under the user's home directory.
	UserFile = ".nexo/config.yaml"
)

// Config holds interpreter and CLI settings.
type Config struct {
	Entry       string   `yaml:"entry"`
	ModulePaths []string `yaml:"module_paths"`
	Prompt      string   `yaml:"prompt"`
	HistoryFile string   `yaml:"history_file"`
	LogLevel    string   `yaml:"log_level"`
	Limits      Limits   `yaml:"limits"`

	// Source is the file the settings came from, empty for defaults.
	Source string `yaml:"-"`
}

// Limits bounds evaluation.
type Limits struct {
	MaxCallDepth  int   `yaml:"max_call_depth"`
	MaxIterations int64 `yaml:"max_iterations"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Entry:       "mn",
		Prompt:      "nexo> ",
		HistoryFile: "~/.nexo_history",
		LogLevel:    "warn",
		Limits: Limits{
			MaxCallDepth: evaluator.DefaultMaxCallDepth,
		},
	}
}

// Load resolves settings with precedence: the explicit path (which must
// exist), then .nexo.yaml in projectDir, then ~/.nexo/config.yaml, then
// defaults. Only the first file found is read; unset fields keep their
// defaults.
func Load(explicitPath, projectDir string) (*Config, error) {
	if explicitPath != "" {
		return LoadFile(explicitPath)
	}

	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, UserFile))
	}
	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

// LoadFile reads a single config file over the defaults. Unknown keys are
// rejected.
func LoadFile(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", abs, err)
	}
	cfg.Source = abs
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", abs, err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Entry == "" {
		return errors.New("entry must not be empty")
	}
	if c.Limits.MaxCallDepth < 0 {
		return fmt.Errorf("limits.max_call_depth must be >= 0, got %d", c.Limits.MaxCallDepth)
	}
	if c.Limits.MaxIterations < 0 {
		return fmt.Errorf("limits.max_iterations must be >= 0, got %d", c.Limits.MaxIterations)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// EvalLimits converts the limits for the interpreter.
func (c *Config) EvalLimits() evaluator.Limits {
	return evaluator.Limits{
		MaxCallDepth:  c.Limits.MaxCallDepth,
		MaxIterations: c.Limits.MaxIterations,
	}
}

// HistoryPath expands a leading ~ in HistoryFile. Empty disables history.
func (c *Config) HistoryPath() string {
	p := c.HistoryFile
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	return p
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
