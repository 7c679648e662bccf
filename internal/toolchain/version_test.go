package toolchain

import (
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func dateGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		y := rapid.IntRange(2015, 2030).Draw(t, "year")
		m := rapid.IntRange(1, 12).Draw(t, "month")
		d := rapid.IntRange(1, 28).Draw(t, "day")
		return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	})
}

func stableGen() *rapid.Generator[Version] {
	return rapid.Custom(func(t *rapid.T) Version {
		return Stable(
			rapid.IntRange(0, 12).Draw(t, "major"),
			rapid.IntRange(0, 12).Draw(t, "minor"),
			rapid.IntRange(0, 12).Draw(t, "patch"),
		)
	})
}

func branchGen() *rapid.Generator[Branch] {
	return rapid.Custom(func(t *rapid.T) Branch {
		if rapid.Bool().Draw(t, "main") {
			return MainBranch
		}
		return ReleaseBranch(rapid.IntRange(0, 9).Draw(t, "bmajor"), rapid.IntRange(0, 9).Draw(t, "bminor"))
	})
}

func versionGen() *rapid.Generator[Version] {
	return rapid.Custom(func(t *rapid.T) Version {
		if rapid.Bool().Draw(t, "stable") {
			return stableGen().Draw(t, "release")
		}
		return Snapshot(branchGen().Draw(t, "branch"), dateGen().Draw(t, "date"))
	})
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input string
		want  Version
	}{
		{"5.10.1", Stable(5, 10, 1)},
		{"0.0.0", Stable(0, 0, 0)},
		{"main-snapshot-2024-03-01", Snapshot(MainBranch, "2024-03-01")},
		{"5.10-snapshot-2024-03-01", Snapshot(ReleaseBranch(5, 10), "2024-03-01")},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	for _, input := range []string{"", "5.10", "latest", "main-snapshot", "5.10-snapshot", "v5.10.1", "5.10.1 "} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseVersion(input)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, input, perr.Input)
		})
	}
}

func TestVersion_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := versionGen().Draw(t, "version")
		parsed, err := ParseVersion(v.Name())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	})
}

func TestVersion_NameParsesAsMatchingSelector(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := versionGen().Draw(t, "version")
		sel, err := ParseSelector(v.Name())
		require.NoError(t, err)
		assert.True(t, sel.Matches(v), "selector %s should match %s", sel, v)
	})
}

func TestVersion_JSON(t *testing.T) {
	type record struct {
		InUse *Version  `json:"inUse,omitempty"`
		All   []Version `json:"all"`
	}
	v := Snapshot(ReleaseBranch(6, 0), "2024-07-01")
	in := record{InUse: &v, All: []Version{Stable(5, 10, 1), v}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"inUse":"6.0-snapshot-2024-07-01","all":["5.10.1","6.0-snapshot-2024-07-01"]}`, string(data))

	var out record
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"all":["bogus"]}`), &out)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestCompare_StableStrictWeakOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := stableGen().Draw(t, "a")
		b := stableGen().Draw(t, "b")
		c := stableGen().Draw(t, "c")

		assert.False(t, Less(a, a), "irreflexive")
		if Less(a, b) {
			assert.False(t, Less(b, a), "asymmetric")
		}
		if a != b {
			assert.True(t, Less(a, b) != Less(b, a), "distinct values are ordered")
		}
		if Less(a, b) && Less(b, c) {
			assert.True(t, Less(a, c), "transitive")
		}
	})
}

func TestCompare_TotalAcrossVariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := versionGen().Draw(t, "a")
		b := versionGen().Draw(t, "b")
		c := versionGen().Draw(t, "c")

		assert.Equal(t, -Compare(b, a), Compare(a, b), "antisymmetric")
		assert.Equal(t, a == b, Compare(a, b) == 0, "equal iff identical")
		if Compare(a, b) <= 0 && Compare(b, c) <= 0 {
			assert.LessOrEqual(t, Compare(a, c), 0, "transitive")
		}
	})
}

func TestCompare_Examples(t *testing.T) {
	assert.True(t, Less(Stable(5, 9, 9), Stable(5, 10, 0)))
	assert.True(t, Less(Stable(5, 10, 0), Stable(5, 10, 1)))
	assert.True(t, Less(Snapshot(MainBranch, "2024-01-01"), Snapshot(MainBranch, "2024-01-02")))
	assert.True(t, Less(Snapshot(MainBranch, "2030-01-01"), Stable(0, 0, 0)), "stable ranks above snapshots")
	assert.True(t, Less(Snapshot(ReleaseBranch(6, 0), "2030-01-01"), Snapshot(MainBranch, "2020-01-01")), "main ranks above release branches")
	assert.True(t, Less(Snapshot(ReleaseBranch(5, 9), "2030-01-01"), Snapshot(ReleaseBranch(5, 10), "2020-01-01")))
}

func TestMax_PicksLexicographicallyGreatestStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		vs := rapid.SliceOfN(stableGen(), 1, 20).Draw(t, "versions")
		got, ok := Max(vs)
		require.True(t, ok)

		sorted := append([]Version(nil), vs...)
		sort.Slice(sorted, func(i, j int) bool {
			a, b := sorted[i], sorted[j]
			if a.Major != b.Major {
				return a.Major < b.Major
			}
			if a.Minor != b.Minor {
				return a.Minor < b.Minor
			}
			return a.Patch < b.Patch
		})
		assert.Equal(t, sorted[len(sorted)-1], got)
	})
}

func TestMax_Empty(t *testing.T) {
	_, ok := Max(nil)
	assert.False(t, ok)
}

func TestSameLine(t *testing.T) {
	assert.True(t, SameLine(Stable(1, 0, 0), Stable(6, 1, 0)))
	assert.True(t, SameLine(Snapshot(MainBranch, "2024-01-01"), Snapshot(MainBranch, "2024-02-01")))
	assert.False(t, SameLine(Snapshot(MainBranch, "2024-01-01"), Snapshot(ReleaseBranch(6, 0), "2024-01-01")))
	assert.False(t, SameLine(Stable(1, 0, 0), Snapshot(MainBranch, "2024-01-01")))
}
