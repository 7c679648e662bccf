package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"tcm/internal/catalog"
	"tcm/internal/toolchain"
)

// InstallOptions configures Install.
type InstallOptions struct {
	// Use makes the installed toolchain the global default.
	Use bool
}

// InstallResult describes what Install did.
type InstallResult struct {
	Version          toolchain.Version
	AlreadyInstalled bool
	InUse            bool
}

// Install resolves sel against the catalog and installs the newest match.
// Installing a toolchain that is already present changes nothing. The first
// toolchain ever installed becomes the global default.
func (m *Manager) Install(ctx context.Context, sel toolchain.Selector, opts InstallOptions) (InstallResult, error) {
	key := sel.String()
	m.reporter.Step(key, StatusResolving, "")

	cfg, err := m.store.Load()
	if err != nil {
		m.reporter.Step(key, StatusError, err.Error())
		return InstallResult{}, err
	}

	if v, ok := sel.Version(); ok && cfg.IsInstalled(v) {
		return m.alreadyInstalled(ctx, key, v, opts.Use)
	}

	entry, err := m.catalog.Latest(ctx, sel)
	if err != nil {
		m.reporter.Step(key, StatusError, err.Error())
		return InstallResult{}, &ExternalError{Op: "resolve", Version: key, Err: err}
	}
	if cfg.IsInstalled(entry.Version) {
		return m.alreadyInstalled(ctx, key, entry.Version, opts.Use)
	}
	return m.installEntry(ctx, key, entry, opts.Use)
}

func (m *Manager) alreadyInstalled(ctx context.Context, key string, v toolchain.Version, use bool) (InstallResult, error) {
	result := InstallResult{Version: v, AlreadyInstalled: true}
	if use {
		err := m.withLock(ctx, func() error {
			cfg, err := m.store.Load()
			if err != nil {
				return err
			}
			if cfg.IsInUse(v) {
				return nil
			}
			cfg.SetInUse(&v)
			if err := m.store.Save(cfg); err != nil {
				return err
			}
			result.InUse = true
			return nil
		})
		if err != nil {
			m.reporter.Step(key, StatusError, err.Error())
			return InstallResult{}, err
		}
	}
	m.reporter.Step(key, StatusSkipped, v.Name()+" already installed")
	return result, nil
}

// installEntry downloads outside the lock, then installs and records the
// toolchain while holding it. The record only gains v after the platform
// install succeeded, and the payload is removed again if the record cannot
// be saved.
func (m *Manager) installEntry(ctx context.Context, key string, entry catalog.Entry, use bool) (InstallResult, error) {
	v := entry.Version
	m.reporter.Step(key, StatusDownloading, v.Name())

	archive, err := m.catalog.Download(ctx, entry, m.downloadDir)
	if err != nil {
		m.reporter.Step(key, StatusError, err.Error())
		return InstallResult{}, &ExternalError{Op: "download", Version: v.Name(), Err: err}
	}

	result := InstallResult{Version: v}
	err = m.withLock(ctx, func() error {
		cfg, err := m.store.Load()
		if err != nil {
			return err
		}
		if cfg.IsInstalled(v) {
			// Another invocation won the race.
			result.AlreadyInstalled = true
			if use && !cfg.IsInUse(v) {
				cfg.SetInUse(&v)
				result.InUse = true
				return m.store.Save(cfg)
			}
			return nil
		}

		m.reporter.Step(key, StatusInstalling, v.Name())
		if err := m.platform.Install(ctx, v, archive); err != nil {
			return &ExternalError{Op: "install", Version: v.Name(), Err: err}
		}

		cfg.AddInstalled(v)
		if cfg.InUse == nil || use {
			cfg.SetInUse(&v)
			result.InUse = true
		}
		if err := m.store.Save(cfg); err != nil {
			if uerr := m.platform.Uninstall(ctx, v); uerr != nil {
				m.logger.Error("install: rollback failed", slog.String("version", v.Name()), slog.String("error", uerr.Error()))
			}
			return fmt.Errorf("record install of %s: %w", v.Name(), err)
		}
		m.logger.Info("install: committed", slog.String("version", v.Name()), slog.Bool("in_use", result.InUse))
		return nil
	})
	if err != nil {
		m.reporter.Step(key, StatusError, err.Error())
		return InstallResult{}, err
	}

	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("install: archive cleanup", slog.String("path", archive), slog.String("error", err.Error()))
	}
	if result.AlreadyInstalled {
		m.reporter.Step(key, StatusSkipped, v.Name()+" already installed")
	} else {
		m.reporter.Step(key, StatusInstalled, v.Name())
	}
	return result, nil
}
