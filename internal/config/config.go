// Package config loads the user settings file, settings.yaml in the tcm
// home directory.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures user settings.
type Config struct {
	LogLevel       slog.Level    `yaml:"log_level"`
	MarkerFile     string        `yaml:"marker_file"`
	ProjectMarkers []string      `yaml:"project_markers"`
	Lock           LockConfig    `yaml:"lock"`
	Catalog        CatalogConfig `yaml:"catalog"`
}

// LockConfig tunes waiting on the state lock.
type LockConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ReclaimStale *bool         `yaml:"reclaim_stale,omitempty"`
}

// ReclaimStaleValue returns the effective reclaim flag applying defaults.
func (l LockConfig) ReclaimStaleValue() bool {
	if l.ReclaimStale == nil {
		return true
	}
	return *l.ReclaimStale
}

// CatalogConfig points at the remote toolchain catalog.
type CatalogConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Default returns the baseline settings.
func Default() Config {
	return Config{
		LogLevel:       slog.LevelInfo,
		MarkerFile:     ".swift-version",
		ProjectMarkers: []string{".git"},
		Lock: LockConfig{
			Timeout:      300 * time.Second,
			PollInterval: time.Second,
			ReclaimStale: boolPtr(true),
		},
		Catalog: CatalogConfig{
			BaseURL:  "https://download.swift.org/catalog",
			Timeout:  30 * time.Second,
			CacheTTL: time.Hour,
		},
	}
}

// Load reads the YAML settings from disk if they exist, otherwise returns
// the defaults. ${VAR} references are expanded from the environment and the
// TCM_* overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	contents, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read settings: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(contents))), &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyDefaults fills fields the YAML left empty.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.MarkerFile == "" {
		c.MarkerFile = defaults.MarkerFile
	}
	if c.ProjectMarkers == nil {
		c.ProjectMarkers = defaults.ProjectMarkers
	}
	if c.Lock.Timeout == 0 {
		c.Lock.Timeout = defaults.Lock.Timeout
	}
	if c.Lock.PollInterval == 0 {
		c.Lock.PollInterval = defaults.Lock.PollInterval
	}
	if c.Lock.ReclaimStale == nil {
		c.Lock.ReclaimStale = boolPtr(true)
	}
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaults.Catalog.BaseURL
	}
	if c.Catalog.Timeout == 0 {
		c.Catalog.Timeout = defaults.Catalog.Timeout
	}
	if c.Catalog.CacheTTL == 0 {
		c.Catalog.CacheTTL = defaults.Catalog.CacheTTL
	}
}

// Marshal returns the YAML encoding of the settings.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}
