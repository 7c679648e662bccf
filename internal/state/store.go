package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNotInitialized is returned by Load when no record exists yet.
var ErrNotInitialized = errors.New("toolchain manager is not initialized; run `tcm init`")

// CorruptionError reports a record that exists but cannot be decoded.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("state file %s is corrupt: %v; fix or remove it and run `tcm init`", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// Store loads and saves the record at a fixed path. It does not lock:
// callers that read, modify and write must hold the state lock.
type Store struct {
	path        string
	toolVersion string
	logger      *slog.Logger
}

// NewStore returns a store for the record at path. toolVersion is stamped
// into every saved record.
func NewStore(path, toolVersion string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: path, toolVersion: toolVersion, logger: logger}
}

// Path returns the record location.
func (s *Store) Path() string { return s.path }

// Exists reports whether a record has been written.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the record.
func (s *Store) Load() (*Config, error) {
	contents, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(contents, &cfg); err != nil {
		return nil, &CorruptionError{Path: s.path, Err: err}
	}
	if cfg.InstalledToolchains == nil {
		cfg.InstalledToolchains = Set{}
	}
	if cfg.InUse != nil && !cfg.IsInstalled(*cfg.InUse) {
		s.logger.Warn("state: default toolchain not in installed set", slog.String("in_use", cfg.InUse.Name()))
	}
	if olderSchema(cfg.Version, s.toolVersion) {
		s.logger.Info("state: record will be upgraded", slog.String("from", cfg.Version), slog.String("to", s.toolVersion))
	}
	return &cfg, nil
}

// Save writes cfg atomically, stamping the current tool version.
func (s *Store) Save(cfg *Config) error {
	if cfg == nil {
		return errors.New("save state: nil config")
	}
	if s.toolVersion != "" {
		cfg.Version = s.toolVersion
	}
	if cfg.InstalledToolchains == nil {
		cfg.InstalledToolchains = Set{}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("prepare state directory: %w", err)
	}

	buf, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "config-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write state temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Update loads the record, applies mutate and saves the result. Nothing is
// written when mutate fails.
func (s *Store) Update(mutate func(*Config) error) (*Config, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := mutate(cfg); err != nil {
		return nil, err
	}
	if err := s.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an empty record for platform unless one already exists. It
// returns the record and whether it was created.
func (s *Store) Init(platform PlatformDefinition) (*Config, bool, error) {
	if s.Exists() {
		cfg, err := s.Load()
		return cfg, false, err
	}
	cfg := New(platform)
	if err := s.Save(cfg); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// olderSchema reports whether recorded predates current. Empty recorded
// versions come from records written before stamping existed.
func olderSchema(recorded, current string) bool {
	if current == "" {
		return false
	}
	if recorded == "" {
		return true
	}

	rParts := numericParts(recorded)
	cParts := numericParts(current)
	for len(rParts) < len(cParts) {
		rParts = append(rParts, 0)
	}
	for len(cParts) < len(rParts) {
		cParts = append(cParts, 0)
	}
	for i := range rParts {
		if rParts[i] != cParts[i] {
			return rParts[i] < cParts[i]
		}
	}
	return false
}

func numericParts(version string) []int {
	var parts []int
	current := strings.Builder{}
	flush := func() {
		if current.Len() > 0 {
			val, _ := strconv.Atoi(current.String())
			parts = append(parts, val)
			current.Reset()
		}
	}
	for _, r := range version {
		if r >= '0' && r <= '9' {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return parts
}
