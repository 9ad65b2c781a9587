// Package config loads the gridmux YAML configuration with defaults and
// validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Grid configures the unit system of the layout canvas.
type Grid struct {
	UnitsX int `yaml:"units_x"`
	UnitsY int `yaml:"units_y"`
	Gap    int `yaml:"gap"`
}

// Logging configures the rotating action log.
type Logging struct {
	Enabled   bool   `yaml:"enabled"`
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// Config is the full gridmux configuration.
type Config struct {
	// Shell spawned for every new session. Defaults to $SHELL, then
	// /bin/sh.
	Shell string `yaml:"shell"`
	// StatePath overrides the layout blob location.
	StatePath string  `yaml:"state_path"`
	Grid      Grid    `yaml:"grid"`
	Logging   Logging `yaml:"logging"`
}

// DefaultPath returns the config file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "gridmux", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Config{
		Shell: shell,
		Grid:  Grid{UnitsX: 12, UnitsY: 12, Gap: 1},
		Logging: Logging{
			Enabled:   false,
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// Load reads the config at path, applying defaults for missing fields. A
// missing file yields the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Shell == "" {
		return fmt.Errorf("shell must not be empty")
	}
	if c.Grid.UnitsX < 1 || c.Grid.UnitsY < 1 {
		return fmt.Errorf("grid units must be positive, got %dx%d", c.Grid.UnitsX, c.Grid.UnitsY)
	}
	if c.Grid.Gap < 0 {
		return fmt.Errorf("grid gap must not be negative, got %d", c.Grid.Gap)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// LogFile resolves the action log path, defaulting under the config dir.
func (c *Config) LogFile() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "gridmux", "actions.log"), nil
}
