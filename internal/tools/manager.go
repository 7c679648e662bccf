// Package tools drives toolchain installation state: install, use, update
// and uninstall, each committed through the state store under the state
// lock.
package tools

import (
	"context"
	"log/slog"

	"tcm/internal/catalog"
	"tcm/internal/lockfile"
	"tcm/internal/platform"
	"tcm/internal/resolve"
	"tcm/internal/state"
	"tcm/internal/toolchain"
)

// Catalog discovers and downloads installable toolchains.
type Catalog interface {
	Latest(ctx context.Context, sel toolchain.Selector) (catalog.Entry, error)
	Download(ctx context.Context, entry catalog.Entry, dir string) (string, error)
}

// Confirmer asks the user to approve a destructive or long-running step.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Status is a progress step reported for one toolchain.
type Status string

const (
	StatusResolving   Status = "resolving"
	StatusDownloading Status = "downloading"
	StatusInstalling  Status = "installing"
	StatusInstalled   Status = "installed"
	StatusRemoving    Status = "removing"
	StatusRemoved     Status = "removed"
	StatusSkipped     Status = "skipped"
	StatusError       Status = "error"
)

// Reporter receives progress events. Key identifies the row: the selector
// text until a version is known, then the version name.
type Reporter interface {
	Step(key string, status Status, detail string)
}

type nopReporter struct{}

func (nopReporter) Step(string, Status, string) {}

// Deps are the collaborators a Manager works through.
type Deps struct {
	Store       *state.Store
	Platform    platform.Platform
	Catalog     Catalog
	Resolver    *resolve.Resolver
	LockPath    string
	LockOptions lockfile.Options
	DownloadDir string
	Reporter    Reporter
	Confirmer   Confirmer
	Logger      *slog.Logger
}

// Manager performs toolchain state transitions.
type Manager struct {
	store       *state.Store
	platform    platform.Platform
	catalog     Catalog
	resolver    *resolve.Resolver
	lockPath    string
	lockOptions lockfile.Options
	downloadDir string
	reporter    Reporter
	confirmer   Confirmer
	logger      *slog.Logger
}

// NewManager wires a Manager.
func NewManager(d Deps) *Manager {
	if d.Reporter == nil {
		d.Reporter = nopReporter{}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Resolver == nil {
		d.Resolver = &resolve.Resolver{}
	}
	if d.LockOptions.Logger == nil {
		d.LockOptions.Logger = d.Logger
	}
	return &Manager{
		store:       d.Store,
		platform:    d.Platform,
		catalog:     d.Catalog,
		resolver:    d.Resolver,
		lockPath:    d.LockPath,
		lockOptions: d.LockOptions,
		downloadDir: d.DownloadDir,
		reporter:    d.Reporter,
		confirmer:   d.Confirmer,
		logger:      d.Logger,
	}
}

// withLock runs fn while holding the state lock.
func (m *Manager) withLock(ctx context.Context, fn func() error) error {
	return lockfile.Do(ctx, m.lockPath, m.lockOptions, fn)
}

func (m *Manager) confirm(prompt string, assumeYes bool) (bool, error) {
	if assumeYes || m.confirmer == nil {
		return true, nil
	}
	return m.confirmer.Confirm(prompt)
}

// Config loads the record without locking, for display.
func (m *Manager) Config() (*state.Config, error) {
	return m.store.Load()
}

// Active resolves the toolchain in effect for dir, honouring override.
func (m *Manager) Active(dir string, override *toolchain.Selector) (resolve.Result, error) {
	cfg, err := m.store.Load()
	if err != nil {
		return resolve.Result{}, err
	}
	return m.resolver.Active(resolve.Request{Override: override, Dir: dir, Config: cfg})
}

// Location returns the install directory of v.
func (m *Manager) Location(v toolchain.Version) string {
	return m.platform.ToolchainDir(v)
}
