// Package config loads the CLI configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Persist configures the persistent mount.
type Persist struct {
	// Store is "host" or "local". Empty selects by environment.
	Store    string        `yaml:"store"`
	DataDir  string        `yaml:"data_dir"`
	Debounce time.Duration `yaml:"debounce"`
}

// Config holds every setting the CLI reads from its file.
type Config struct {
	LogLevel   string        `yaml:"log_level"`
	LogFormat  string        `yaml:"log_format"`
	CacheDir   string        `yaml:"cache_dir"`
	NoCache    bool          `yaml:"no_cache"`
	Memory     uint32        `yaml:"memory_pages"`
	Timeout    time.Duration `yaml:"timeout"`
	AllowHosts []string      `yaml:"allow_hosts"`
	Persist    Persist       `yaml:"persist"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  "warn",
		LogFormat: "console",
		Persist: Persist{
			Debounce: 250 * time.Millisecond,
		},
	}
}

// DefaultPath is ~/.config/headless/config.yaml, or "" if there is no home.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "headless", "config.yaml")
	}
	return ""
}

// Load reads the file at path over the defaults. An empty path falls back to
// DefaultPath. A missing file returns defaults; invalid YAML is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
