package resolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tcm/internal/state"
	"tcm/internal/toolchain"
)

// DefaultMarkerFile is the per-directory version marker name.
const DefaultMarkerFile = ".swift-version"

// Source says which layer decided the active toolchain.
type Source int

const (
	SourceOverride Source = iota + 1
	SourceMarker
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "override"
	case SourceMarker:
		return "marker"
	case SourceDefault:
		return "default"
	default:
		return "unknown"
	}
}

// MarkerError reports a version marker that stopped the search but could
// not be used.
type MarkerError struct {
	Path string
	Err  error
}

func (e *MarkerError) Error() string {
	return fmt.Sprintf("version marker %s: %v", e.Path, e.Err)
}

func (e *MarkerError) Unwrap() error { return e.Err }

// ErrEmptyMarker is wrapped by MarkerError for blank marker files.
var ErrEmptyMarker = errors.New("file is empty")

// Resolver finds version markers and resolves the active toolchain.
type Resolver struct {
	// MarkerFile is the marker name searched for; empty means DefaultMarkerFile.
	MarkerFile string
	// ProjectMarkers are entries whose presence makes a directory a project
	// root, such as ".git".
	ProjectMarkers []string
}

// Request is the context of one resolution.
type Request struct {
	Override *toolchain.Selector
	Dir      string
	Config   *state.Config
}

// Result is the active toolchain and where it came from.
type Result struct {
	Version    toolchain.Version
	Source     Source
	Selector   *toolchain.Selector
	MarkerPath string
}

// Describe renders the source for humans.
func (r Result) Describe() string {
	switch r.Source {
	case SourceOverride:
		return "(set by +" + r.Selector.String() + ")"
	case SourceMarker:
		return "(set by " + r.MarkerPath + ")"
	default:
		return "(default)"
	}
}

func (r *Resolver) markerName() string {
	if r.MarkerFile == "" {
		return DefaultMarkerFile
	}
	return r.MarkerFile
}

// Active resolves the toolchain for req. An override selector wins, then the
// nearest version marker at or above req.Dir, then the global default.
func (r *Resolver) Active(req Request) (Result, error) {
	if req.Override != nil {
		v, ok := Best(req.Config, *req.Override)
		if !ok {
			return Result{Source: SourceOverride, Selector: req.Override}, &NotInstalledError{Selector: *req.Override}
		}
		return Result{Version: v, Source: SourceOverride, Selector: req.Override}, nil
	}

	if req.Dir != "" {
		markerPath, found := r.FindMarker(req.Dir)
		if found {
			res := Result{Source: SourceMarker, MarkerPath: markerPath}
			sel, err := ReadMarker(markerPath)
			if err != nil {
				return res, err
			}
			res.Selector = &sel
			v, ok := Best(req.Config, sel)
			if !ok {
				return res, &MarkerError{Path: markerPath, Err: &NotInstalledError{Selector: sel}}
			}
			res.Version = v
			return res, nil
		}
	}

	if req.Config.InUse != nil {
		return Result{Version: *req.Config.InUse, Source: SourceDefault}, nil
	}
	return Result{}, ErrNoActiveToolchain
}

// FindMarker walks from dir to the filesystem root and returns the first
// version marker found. Presence alone ends the walk.
func (r *Resolver) FindMarker(dir string) (string, bool) {
	name := r.markerName()
	current := filepath.Clean(dir)
	for {
		candidate := filepath.Join(current, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			// Unreadable but present still counts.
			if _, lerr := os.Lstat(candidate); lerr == nil {
				return candidate, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// ProjectRoot returns the nearest directory at or above dir containing one
// of the project markers.
func (r *Resolver) ProjectRoot(dir string) (string, bool) {
	if len(r.ProjectMarkers) == 0 {
		return "", false
	}
	current := filepath.Clean(dir)
	for {
		for _, marker := range r.ProjectMarkers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// MarkerTarget returns the marker file that a directory-scoped selection in
// dir should write: an existing marker, or a new one at the project root.
func (r *Resolver) MarkerTarget(dir string) (path string, exists bool, ok bool) {
	if found, present := r.FindMarker(dir); present {
		return found, true, true
	}
	if root, isProject := r.ProjectRoot(dir); isProject {
		return filepath.Join(root, r.markerName()), false, true
	}
	return "", false, false
}

// ReadMarker reads and parses the selector in a version marker.
func ReadMarker(path string) (toolchain.Selector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return toolchain.Selector{}, &MarkerError{Path: path, Err: err}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return toolchain.Selector{}, &MarkerError{Path: path, Err: ErrEmptyMarker}
	}
	sel, err := toolchain.ParseSelector(text)
	if err != nil {
		return toolchain.Selector{}, &MarkerError{Path: path, Err: err}
	}
	return sel, nil
}

// WriteMarker writes v's canonical name to the marker at path.
func WriteMarker(path string, v toolchain.Version) error {
	if err := os.WriteFile(path, []byte(v.Name()+"\n"), 0o644); err != nil {
		return &MarkerError{Path: path, Err: err}
	}
	return nil
}
