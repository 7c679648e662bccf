// Package resolve selects installed toolchains: the matches for a selector,
// the best match, and the toolchain that is active for a working directory.
package resolve

import (
	"errors"
	"fmt"
	"slices"

	"tcm/internal/state"
	"tcm/internal/toolchain"
)

// ErrNoActiveToolchain means no override, marker or global default applies.
var ErrNoActiveToolchain = errors.New("no toolchain is in use; install one with `tcm install latest` or pick one with `tcm use <version>`")

// NotInstalledError reports a selector that matched nothing installed.
type NotInstalledError struct {
	Selector toolchain.Selector
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("no installed toolchain matches %q; install it with `tcm install %s`", e.Selector.String(), e.Selector.String())
}

// ListInstalled returns the installed toolchains selected by sel in ascending
// order. A nil selector returns everything. latest yields at most the newest
// stable release, and a stable selector without a patch yields the newest
// patch of each matching major.minor line.
func ListInstalled(cfg *state.Config, sel *toolchain.Selector) []toolchain.Version {
	if sel == nil {
		return cfg.Installed()
	}
	matches := Matching(cfg, *sel)

	switch {
	case sel.Kind == toolchain.SelectLatest:
		if best, ok := toolchain.Max(matches); ok {
			return []toolchain.Version{best}
		}
		return nil
	case sel.Kind == toolchain.SelectStable && sel.Patch == nil:
		return newestPerLine(matches)
	default:
		return matches
	}
}

// Matching returns every installed toolchain sel matches, in ascending order.
func Matching(cfg *state.Config, sel toolchain.Selector) []toolchain.Version {
	var out []toolchain.Version
	for _, v := range cfg.Installed() {
		if sel.Matches(v) {
			out = append(out, v)
		}
	}
	return out
}

// Targets returns the installed toolchains a command acting on sel applies
// to: all of them for a nil selector, at most the newest stable release for
// latest, and every match otherwise.
func Targets(cfg *state.Config, sel *toolchain.Selector) []toolchain.Version {
	switch {
	case sel == nil:
		return cfg.Installed()
	case sel.Kind == toolchain.SelectLatest:
		if best, ok := Best(cfg, *sel); ok {
			return []toolchain.Version{best}
		}
		return nil
	default:
		return Matching(cfg, *sel)
	}
}

// Best returns the greatest installed toolchain matching sel.
func Best(cfg *state.Config, sel toolchain.Selector) (toolchain.Version, bool) {
	return toolchain.Max(Matching(cfg, sel))
}

// newestPerLine keeps the highest patch of each (major, minor) pair. vs must
// be sorted ascending and stable only.
func newestPerLine(vs []toolchain.Version) []toolchain.Version {
	var out []toolchain.Version
	for i, v := range vs {
		if i+1 < len(vs) && vs[i+1].Major == v.Major && vs[i+1].Minor == v.Minor {
			continue
		}
		out = append(out, v)
	}
	return slices.Clip(out)
}
