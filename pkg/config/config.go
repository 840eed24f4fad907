// Package config loads facet configuration from TOML, YAML, or JSON
// files, falling back to defaults when no file is found.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for facet.
type Config struct {
	// Report settings: which metrics to generate and how to color them.
	Report ReportConfig `koanf:"report"`

	// Cache settings
	Cache CacheConfig `koanf:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output"`
}

// ReportConfig controls report generation.
type ReportConfig struct {
	// Metrics lists the metric names to generate. Empty means all
	// built-in metrics.
	Metrics []string `koanf:"metrics"`

	// Mean and Sigma derive the color thresholds low=mean-sigma and
	// high=mean+sigma.
	Mean  float64 `koanf:"mean"`
	Sigma float64 `koanf:"sigma"`

	// Output is the directory report artifacts are written into.
	Output string `koanf:"output"`

	// Params are passed through to the computation capability.
	Params map[string]any `koanf:"params"`
}

// CacheConfig controls measurement-tree caching.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
	TTL     int    `koanf:"ttl"` // TTL in hours
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, toon, markdown
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Report: ReportConfig{
			Mean:   0.5,
			Sigma:  0.1,
			Output: "facet-report",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".facet/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// Load loads configuration from a file, layering it over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or
// returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"facet.toml",
		"facet.yaml",
		"facet.yml",
		"facet.json",
		".facet.toml",
		".facet.yaml",
		".facet.yml",
		".facet.json",
	}

	searchDirs := []string{".", ".facet"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := Load(path)
				if err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// Validate rejects settings the report pipeline cannot work with.
func (c *Config) Validate() error {
	if c.Report.Sigma <= 0 {
		return fmt.Errorf("report.sigma must be positive, got %v", c.Report.Sigma)
	}
	if c.Report.Output == "" {
		return fmt.Errorf("report.output must not be empty")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %d", c.Cache.TTL)
	}
	return nil
}
