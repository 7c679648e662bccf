// Package state persists the installed toolchain record.
package state

import (
	"encoding/json"
	"slices"

	"tcm/internal/toolchain"
)

// PlatformDefinition describes the host the record was created on. The
// orchestration code treats it as opaque and hands it back to the platform
// layer.
type PlatformDefinition struct {
	Name         string `json:"name"`
	NameFull     string `json:"nameFull"`
	NamePretty   string `json:"namePretty"`
	Architecture string `json:"architecture,omitempty"`
}

// Set is a set of toolchain versions. It encodes as a sorted JSON array of
// canonical names.
type Set map[toolchain.Version]struct{}

// NewSet returns a set holding vs.
func NewSet(vs ...toolchain.Version) Set {
	s := make(Set, len(vs))
	for _, v := range vs {
		s[v] = struct{}{}
	}
	return s
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []toolchain.Version {
	out := make([]toolchain.Version, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.SortFunc(out, toolchain.Compare)
	return out
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var list []toolchain.Version
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = NewSet(list...)
	return nil
}

// Config is the single persisted record.
type Config struct {
	InUse               *toolchain.Version `json:"inUse,omitempty"`
	InstalledToolchains Set                `json:"installedToolchains"`
	Platform            PlatformDefinition `json:"platform"`
	Version             string             `json:"version,omitempty"`
}

// New returns an empty record for platform.
func New(platform PlatformDefinition) *Config {
	return &Config{InstalledToolchains: Set{}, Platform: platform}
}

// IsInstalled reports whether v is in the installed set.
func (c *Config) IsInstalled(v toolchain.Version) bool {
	_, ok := c.InstalledToolchains[v]
	return ok
}

// Installed returns the installed set in ascending order.
func (c *Config) Installed() []toolchain.Version {
	return c.InstalledToolchains.Sorted()
}

// AddInstalled records v as installed. It reports false when v was already
// present.
func (c *Config) AddInstalled(v toolchain.Version) bool {
	if c.InstalledToolchains == nil {
		c.InstalledToolchains = Set{}
	}
	if c.IsInstalled(v) {
		return false
	}
	c.InstalledToolchains[v] = struct{}{}
	return true
}

// RemoveInstalled drops v from the installed set. It reports false when v
// was not present.
func (c *Config) RemoveInstalled(v toolchain.Version) bool {
	if !c.IsInstalled(v) {
		return false
	}
	delete(c.InstalledToolchains, v)
	return true
}

// IsInUse reports whether v is the global default.
func (c *Config) IsInUse(v toolchain.Version) bool {
	return c.InUse != nil && *c.InUse == v
}

// SetInUse replaces the global default. A nil v clears it.
func (c *Config) SetInUse(v *toolchain.Version) {
	if v == nil {
		c.InUse = nil
		return
	}
	copied := *v
	c.InUse = &copied
}
