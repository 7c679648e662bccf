package tools

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"tcm/internal/resolve"
	"tcm/internal/state"
	"tcm/internal/toolchain"
)

// UninstallOptions configures Uninstall.
type UninstallOptions struct {
	AssumeYes bool
}

// UninstallResult describes what Uninstall removed.
type UninstallResult struct {
	Matched []toolchain.Version
	Removed []toolchain.Version
	// DefaultChanged is set when a removed toolchain was the global
	// default; Default is its replacement, nil when none remained.
	DefaultChanged bool
	Default        *toolchain.Version
}

// Uninstall removes every installed toolchain matching sel, or all of them
// when sel is nil, after confirming the exact set. Each toolchain is removed
// in its own locked transition; failures are collected and the rest still
// proceed.
func (m *Manager) Uninstall(ctx context.Context, sel *toolchain.Selector, opts UninstallOptions) (UninstallResult, error) {
	cfg, err := m.store.Load()
	if err != nil {
		return UninstallResult{}, err
	}

	matched := resolve.Targets(cfg, sel)
	result := UninstallResult{Matched: matched}
	if len(matched) == 0 {
		return result, nil
	}

	var prompt strings.Builder
	prompt.WriteString("The following toolchains will be uninstalled:\n")
	for _, v := range matched {
		prompt.WriteString("  " + v.Name() + "\n")
	}
	prompt.WriteString("Proceed?")
	ok, err := m.confirm(prompt.String(), opts.AssumeYes)
	if err != nil {
		return result, err
	}
	if !ok {
		return result, ErrAborted
	}

	var errs []error
	for i := len(matched) - 1; i >= 0; i-- {
		v := matched[i]
		change, err := m.removeOne(ctx, v.Name(), v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		result.Removed = append(result.Removed, v)
		if change.changed {
			result.DefaultChanged = true
			result.Default = change.next
		}
	}
	return result, errors.Join(errs...)
}

type defaultChange struct {
	changed bool
	next    *toolchain.Version
}

// removeOne uninstalls v and drops it from the record, moving the global
// default when v held it.
func (m *Manager) removeOne(ctx context.Context, key string, v toolchain.Version) (defaultChange, error) {
	var change defaultChange
	err := m.withLock(ctx, func() error {
		cfg, err := m.store.Load()
		if err != nil {
			return err
		}
		if !cfg.IsInstalled(v) {
			m.reporter.Step(key, StatusSkipped, v.Name()+" not installed")
			return nil
		}

		m.reporter.Step(key, StatusRemoving, v.Name())
		if err := m.platform.Uninstall(ctx, v); err != nil {
			return &ExternalError{Op: "uninstall", Version: v.Name(), Err: err}
		}
		cfg.RemoveInstalled(v)
		if cfg.IsInUse(v) {
			change.changed = true
			change.next = NextDefault(cfg, v)
			cfg.SetInUse(change.next)
		}
		if err := m.store.Save(cfg); err != nil {
			return err
		}
		m.logger.Info("uninstall: committed", slog.String("version", v.Name()))
		m.reporter.Step(key, StatusRemoved, v.Name())
		return nil
	})
	if err != nil {
		m.reporter.Step(key, StatusError, err.Error())
	}
	return change, err
}

// NextDefault picks the replacement default after removed is uninstalled.
// It prefers the newest remaining toolchain of the same release (major.minor
// for stable, branch for snapshots), then the newest stable release, then
// the newest of anything left. It returns nil when nothing remains.
func NextDefault(cfg *state.Config, removed toolchain.Version) *toolchain.Version {
	remaining := cfg.Installed()
	tiers := []func(toolchain.Version) bool{
		func(v toolchain.Version) bool { return sameRelease(v, removed) },
		toolchain.Version.IsStable,
		func(toolchain.Version) bool { return true },
	}
	for _, keep := range tiers {
		var candidates []toolchain.Version
		for _, v := range remaining {
			if keep(v) {
				candidates = append(candidates, v)
			}
		}
		if best, ok := toolchain.Max(candidates); ok {
			return &best
		}
	}
	return nil
}

func sameRelease(a, b toolchain.Version) bool {
	if !toolchain.SameLine(a, b) {
		return false
	}
	if a.IsStable() {
		return a.Major == b.Major && a.Minor == b.Minor
	}
	return true
}
