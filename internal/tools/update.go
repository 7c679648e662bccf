package tools

import (
	"context"
	"errors"
	"fmt"

	"tcm/internal/catalog"
	"tcm/internal/resolve"
	"tcm/internal/toolchain"
)

// UpdateOptions configures Update.
type UpdateOptions struct {
	AssumeYes bool
}

// UpdateResult describes an update. To is zero when nothing newer exists.
type UpdateResult struct {
	From             toolchain.Version
	To               toolchain.Version
	UpToDate         bool
	AlreadyInstalled bool
}

// UpdateTarget is the selector for toolchains that may replace old. Stable
// releases stay on their major.minor line unless sel widens it to the major
// (5) or to every release (latest); snapshots stay on their branch.
func UpdateTarget(old toolchain.Version, sel *toolchain.Selector) toolchain.Selector {
	if old.IsSnapshot() {
		return toolchain.SnapshotSelector(old.Branch, "")
	}
	if sel != nil {
		switch {
		case sel.Kind == toolchain.SelectLatest:
			return toolchain.Latest()
		case sel.Kind == toolchain.SelectStable && sel.Minor == nil:
			return toolchain.StableSelector(old.Major, nil, nil)
		}
	}
	minor := old.Minor
	return toolchain.StableSelector(old.Major, &minor, nil)
}

// Update replaces a toolchain with the newest compatible one: the best
// installed match for sel, or the global default. It installs the new
// toolchain, then uninstalls the old one. A failure reports its phase as a
// *PhaseError and nothing is rolled back.
func (m *Manager) Update(ctx context.Context, sel *toolchain.Selector, opts UpdateOptions) (UpdateResult, error) {
	cfg, err := m.store.Load()
	if err != nil {
		return UpdateResult{}, err
	}

	var old toolchain.Version
	if sel != nil {
		v, ok := resolve.Best(cfg, *sel)
		if !ok {
			return UpdateResult{}, &resolve.NotInstalledError{Selector: *sel}
		}
		old = v
	} else {
		if cfg.InUse == nil {
			return UpdateResult{}, resolve.ErrNoActiveToolchain
		}
		old = *cfg.InUse
	}

	key := old.Name()
	target := UpdateTarget(old, sel)
	m.reporter.Step(key, StatusResolving, target.String())

	result := UpdateResult{From: old}
	entry, err := m.catalog.Latest(ctx, target)
	if errors.Is(err, catalog.ErrNotFound) {
		result.UpToDate = true
		m.reporter.Step(key, StatusSkipped, "already up to date")
		return result, nil
	}
	if err != nil {
		m.reporter.Step(key, StatusError, err.Error())
		return result, &ExternalError{Op: "check updates for", Version: key, Err: err}
	}

	newer := entry.Version
	if !toolchain.Less(old, newer) {
		result.UpToDate = true
		m.reporter.Step(key, StatusSkipped, "already up to date")
		return result, nil
	}
	result.To = newer
	if cfg.IsInstalled(newer) {
		result.AlreadyInstalled = true
		m.reporter.Step(key, StatusSkipped, newer.Name()+" already installed")
		return result, nil
	}

	ok, err := m.confirm(fmt.Sprintf("Update %s -> %s?", old.Name(), newer.Name()), opts.AssumeYes)
	if err != nil {
		return result, err
	}
	if !ok {
		return result, ErrAborted
	}

	if _, err := m.installEntry(ctx, key, entry, cfg.IsInUse(old)); err != nil {
		return result, &PhaseError{Phase: PhaseInstall, From: old, To: newer, Err: err}
	}
	if _, err := m.removeOne(ctx, key, old); err != nil {
		return result, &PhaseError{Phase: PhaseUninstall, From: old, To: newer, Err: err}
	}
	m.reporter.Step(key, StatusInstalled, newer.Name())
	return result, nil
}
