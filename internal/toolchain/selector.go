package toolchain

import (
	"fmt"
	"regexp"
	"strconv"
)

// SelectorKind distinguishes selector variants.
type SelectorKind int

const (
	SelectLatest SelectorKind = iota + 1
	SelectStable
	SelectSnapshot
)

// Selector is a user supplied pattern matching zero or more versions.
// Nil Minor, Patch and an empty Date are wildcards.
type Selector struct {
	Kind SelectorKind

	Major int
	Minor *int
	Patch *int

	Branch Branch
	Date   string
}

// Latest selects the newest stable release.
func Latest() Selector {
	return Selector{Kind: SelectLatest}
}

// StableSelector selects stable releases of major, narrowed by the optional
// minor and patch values.
func StableSelector(major int, minor, patch *int) Selector {
	return Selector{Kind: SelectStable, Major: major, Minor: minor, Patch: patch}
}

// SnapshotSelector selects snapshots of branch, narrowed to date when it is
// not empty.
func SnapshotSelector(branch Branch, date string) Selector {
	return Selector{Kind: SelectSnapshot, Branch: branch, Date: date}
}

// Exact returns the selector matching only v.
func Exact(v Version) Selector {
	if v.IsSnapshot() {
		return SnapshotSelector(v.Branch, v.Date)
	}
	minor, patch := v.Minor, v.Patch
	return StableSelector(v.Major, &minor, &patch)
}

// Matches reports whether v satisfies the selector.
func (s Selector) Matches(v Version) bool {
	switch s.Kind {
	case SelectLatest:
		return v.IsStable()
	case SelectStable:
		if !v.IsStable() || v.Major != s.Major {
			return false
		}
		if s.Minor != nil && *s.Minor != v.Minor {
			return false
		}
		if s.Patch != nil && *s.Patch != v.Patch {
			return false
		}
		return true
	case SelectSnapshot:
		if !v.IsSnapshot() || v.Branch != s.Branch {
			return false
		}
		return s.Date == "" || s.Date == v.Date
	default:
		return false
	}
}

// Version returns the single version a fully specified selector names.
func (s Selector) Version() (Version, bool) {
	switch s.Kind {
	case SelectStable:
		if s.Minor == nil || s.Patch == nil {
			return Version{}, false
		}
		return Stable(s.Major, *s.Minor, *s.Patch), true
	case SelectSnapshot:
		if s.Date == "" {
			return Version{}, false
		}
		return Snapshot(s.Branch, s.Date), true
	}
	return Version{}, false
}

// IsRelease reports whether the selector only matches stable releases.
func (s Selector) IsRelease() bool {
	return s.Kind == SelectLatest || s.Kind == SelectStable
}

// String renders the selector in a form ParseSelector accepts.
func (s Selector) String() string {
	switch s.Kind {
	case SelectLatest:
		return "latest"
	case SelectStable:
		text := strconv.Itoa(s.Major)
		if s.Minor != nil {
			text += "." + strconv.Itoa(*s.Minor)
			if s.Patch != nil {
				text += "." + strconv.Itoa(*s.Patch)
			}
		}
		return text
	case SelectSnapshot:
		text := "main-snapshot"
		if !s.Branch.IsMain() {
			text = fmt.Sprintf("%d.%d-snapshot", s.Branch.Major, s.Branch.Minor)
		}
		if s.Date != "" {
			text += "-" + s.Date
		}
		return text
	default:
		return ""
	}
}

// grammar is one selector syntax. Grammars are tried in order and the first
// one that recognises the input wins.
type grammar struct {
	name  string
	parse func(string) (Selector, bool)
}

var grammars = []grammar{
	{name: "latest", parse: parseLatest},
	{name: "stable", parse: parseStable},
	{name: "release-snapshot", parse: parseReleaseSnapshot},
	{name: "main-snapshot", parse: parseMainSnapshot},
}

// ParseSelector parses free text such as latest, 5.10, 5.10.1,
// 5.10-snapshot, main-snapshot-2024-03-01 or the long
// DEVELOPMENT-SNAPSHOT spellings.
func ParseSelector(text string) (Selector, error) {
	for _, g := range grammars {
		if sel, ok := g.parse(text); ok {
			return sel, nil
		}
	}
	return Selector{}, &ParseError{Input: text, What: "selector"}
}

var (
	stableSelectorRegex          = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?$`)
	releaseSnapshotSelectorRegex = regexp.MustCompile(`^(\d+)\.(\d+)-(?:snapshot|DEVELOPMENT-SNAPSHOT)(?:-(\d{4}-\d{2}-\d{2}))?(?:-a)?$`)
	mainSnapshotSelectorRegex    = regexp.MustCompile(`^(?:main-snapshot|swift-DEVELOPMENT-SNAPSHOT)(?:-(\d{4}-\d{2}-\d{2}))?(?:-a)?$`)
)

func parseLatest(text string) (Selector, bool) {
	if text != "latest" {
		return Selector{}, false
	}
	return Latest(), true
}

func parseStable(text string) (Selector, bool) {
	m := stableSelectorRegex.FindStringSubmatch(text)
	if m == nil {
		return Selector{}, false
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Selector{}, false
	}
	minor, ok := optionalInt(m[2])
	if !ok {
		return Selector{}, false
	}
	patch, ok := optionalInt(m[3])
	if !ok {
		return Selector{}, false
	}
	return StableSelector(major, minor, patch), true
}

func parseReleaseSnapshot(text string) (Selector, bool) {
	m := releaseSnapshotSelectorRegex.FindStringSubmatch(text)
	if m == nil {
		return Selector{}, false
	}
	nums, ok := atois(m[1], m[2])
	if !ok {
		return Selector{}, false
	}
	return SnapshotSelector(ReleaseBranch(nums[0], nums[1]), m[3]), true
}

func parseMainSnapshot(text string) (Selector, bool) {
	m := mainSnapshotSelectorRegex.FindStringSubmatch(text)
	if m == nil {
		return Selector{}, false
	}
	return SnapshotSelector(MainBranch, m[1]), true
}

func optionalInt(text string) (*int, bool) {
	if text == "" {
		return nil, true
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, false
	}
	return &n, true
}
