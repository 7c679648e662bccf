package tools

import (
	"context"

	"tcm/internal/resolve"
	"tcm/internal/state"
	"tcm/internal/toolchain"
)

// UseOptions configures Use.
type UseOptions struct {
	// Global sets the global default even when a version marker applies.
	Global bool
	// Dir is the working directory whose version marker may be updated.
	Dir string
}

// UseResult describes what Use changed.
type UseResult struct {
	Version    toolchain.Version
	Previous   *toolchain.Version
	MarkerPath string
	Unchanged  bool
}

// Use selects the newest installed toolchain matching sel. Unless Global is
// set, an applicable version marker is rewritten (or created at the project
// root) instead of the global default.
func (m *Manager) Use(ctx context.Context, sel toolchain.Selector, opts UseOptions) (UseResult, error) {
	var result UseResult
	err := m.withLock(ctx, func() error {
		cfg, err := m.store.Load()
		if err != nil {
			return err
		}
		v, ok := resolve.Best(cfg, sel)
		if !ok {
			return &resolve.NotInstalledError{Selector: sel}
		}
		result.Version = v

		if !opts.Global && opts.Dir != "" {
			if path, exists, ok := m.resolver.MarkerTarget(opts.Dir); ok {
				return m.useMarker(cfg, v, path, exists, &result)
			}
		}

		if cfg.InUse != nil {
			previous := *cfg.InUse
			result.Previous = &previous
		}
		if cfg.IsInUse(v) {
			result.Unchanged = true
			return nil
		}
		cfg.SetInUse(&v)
		return m.store.Save(cfg)
	})
	if err != nil {
		return UseResult{}, err
	}
	return result, nil
}

func (m *Manager) useMarker(cfg *state.Config, v toolchain.Version, path string, exists bool, result *UseResult) error {
	result.MarkerPath = path
	if exists {
		if current, err := resolve.ReadMarker(path); err == nil {
			if previous, ok := resolve.Best(cfg, current); ok {
				result.Previous = &previous
				if previous == v {
					result.Unchanged = true
					return nil
				}
			}
		}
	}
	return resolve.WriteMarker(path, v)
}
