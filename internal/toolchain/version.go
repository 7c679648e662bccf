// Package toolchain models toolchain identities and the selectors users type
// to pick among them.
package toolchain

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
)

// Kind distinguishes the two toolchain variants.
type Kind int

const (
	KindStable Kind = iota + 1
	KindSnapshot
)

// Branch identifies the development line a snapshot was cut from. The zero
// value is the main branch.
type Branch struct {
	Release bool
	Major   int
	Minor   int
}

// MainBranch is the trunk development branch.
var MainBranch = Branch{}

// ReleaseBranch returns the branch for the given major.minor release line.
func ReleaseBranch(major, minor int) Branch {
	return Branch{Release: true, Major: major, Minor: minor}
}

// IsMain reports whether b is the main branch.
func (b Branch) IsMain() bool {
	return !b.Release
}

func (b Branch) String() string {
	if b.IsMain() {
		return "main"
	}
	return fmt.Sprintf("%d.%d", b.Major, b.Minor)
}

// compareBranch orders release branches by (major, minor) and places main
// above all of them.
func compareBranch(a, b Branch) int {
	switch {
	case a == b:
		return 0
	case a.IsMain():
		return 1
	case b.IsMain():
		return -1
	}
	if c := cmp.Compare(a.Major, b.Major); c != 0 {
		return c
	}
	return cmp.Compare(a.Minor, b.Minor)
}

// Version is a fully resolved toolchain identity: either a stable release
// (major.minor.patch) or a dated snapshot of a branch. Versions are
// comparable and can be used as map keys.
type Version struct {
	Kind Kind

	Major int
	Minor int
	Patch int

	Branch Branch
	Date   string
}

// Stable returns the stable release major.minor.patch.
func Stable(major, minor, patch int) Version {
	return Version{Kind: KindStable, Major: major, Minor: minor, Patch: patch}
}

// Snapshot returns the snapshot of branch taken on date (YYYY-MM-DD).
func Snapshot(branch Branch, date string) Version {
	return Version{Kind: KindSnapshot, Branch: branch, Date: date}
}

// IsStable reports whether v is a stable release.
func (v Version) IsStable() bool {
	return v.Kind == KindStable
}

// IsSnapshot reports whether v is a snapshot.
func (v Version) IsSnapshot() bool {
	return v.Kind == KindSnapshot
}

// Name returns the canonical spelling of v, which ParseVersion accepts.
func (v Version) Name() string {
	switch v.Kind {
	case KindStable:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	case KindSnapshot:
		if v.Branch.IsMain() {
			return "main-snapshot-" + v.Date
		}
		return fmt.Sprintf("%d.%d-snapshot-%s", v.Branch.Major, v.Branch.Minor, v.Date)
	default:
		return ""
	}
}

func (v Version) String() string {
	return v.Name()
}

// MarshalText encodes v as its canonical name.
func (v Version) MarshalText() ([]byte, error) {
	if v.Kind != KindStable && v.Kind != KindSnapshot {
		return nil, fmt.Errorf("marshal toolchain version: unknown kind %d", v.Kind)
	}
	return []byte(v.Name()), nil
}

// UnmarshalText decodes a canonical name produced by MarshalText.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Compare returns -1, 0 or +1 as a sorts before, equal to, or after b.
//
// Within a variant the order is the natural one: stable releases by
// (major, minor, patch), snapshots of one branch by date. Across variants
// every stable release sorts above every snapshot, and snapshots of
// different branches sort by branch (release lines by major.minor, main
// highest), so the relation is a total order usable by sort and max.
func Compare(a, b Version) int {
	if a.Kind != b.Kind {
		if a.Kind == KindStable {
			return 1
		}
		if b.Kind == KindStable {
			return -1
		}
		return cmp.Compare(int(a.Kind), int(b.Kind))
	}
	switch a.Kind {
	case KindStable:
		if c := cmp.Compare(a.Major, b.Major); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Minor, b.Minor); c != 0 {
			return c
		}
		return cmp.Compare(a.Patch, b.Patch)
	case KindSnapshot:
		if c := compareBranch(a.Branch, b.Branch); c != 0 {
			return c
		}
		return cmp.Compare(a.Date, b.Date)
	}
	return 0
}

// Less reports whether a sorts strictly before b.
func Less(a, b Version) bool {
	return Compare(a, b) < 0
}

// Max returns the greatest version in vs and false when vs is empty.
func Max(vs []Version) (Version, bool) {
	if len(vs) == 0 {
		return Version{}, false
	}
	best := vs[0]
	for _, v := range vs[1:] {
		if Compare(v, best) > 0 {
			best = v
		}
	}
	return best, true
}

// SameLine reports whether a and b belong to the same ordering class: both
// stable, or snapshots of the same branch.
func SameLine(a, b Version) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == KindSnapshot {
		return a.Branch == b.Branch
	}
	return true
}

var (
	stableVersionRegex          = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)
	mainSnapshotVersionRegex    = regexp.MustCompile(`^main-snapshot-(\d{4}-\d{2}-\d{2})$`)
	releaseSnapshotVersionRegex = regexp.MustCompile(`^(\d+)\.(\d+)-snapshot-(\d{4}-\d{2}-\d{2})$`)
)

// ParseVersion parses a canonical toolchain name such as 5.10.1,
// 5.10-snapshot-2024-03-01 or main-snapshot-2024-03-01.
func ParseVersion(text string) (Version, error) {
	if m := stableVersionRegex.FindStringSubmatch(text); m != nil {
		nums, ok := atois(m[1], m[2], m[3])
		if !ok {
			return Version{}, &ParseError{Input: text, What: "version"}
		}
		return Stable(nums[0], nums[1], nums[2]), nil
	}
	if m := mainSnapshotVersionRegex.FindStringSubmatch(text); m != nil {
		return Snapshot(MainBranch, m[1]), nil
	}
	if m := releaseSnapshotVersionRegex.FindStringSubmatch(text); m != nil {
		nums, ok := atois(m[1], m[2])
		if !ok {
			return Version{}, &ParseError{Input: text, What: "version"}
		}
		return Snapshot(ReleaseBranch(nums[0], nums[1]), m[3]), nil
	}
	return Version{}, &ParseError{Input: text, What: "version"}
}

func atois(parts ...string) ([]int, bool) {
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
