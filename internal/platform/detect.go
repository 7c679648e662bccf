package platform

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"

	"tcm/internal/state"
)

var (
	Ubuntu2404   = state.PlatformDefinition{Name: "ubuntu2404", NameFull: "ubuntu24.04", NamePretty: "Ubuntu 24.04"}
	Ubuntu2204   = state.PlatformDefinition{Name: "ubuntu2204", NameFull: "ubuntu22.04", NamePretty: "Ubuntu 22.04"}
	Ubuntu2004   = state.PlatformDefinition{Name: "ubuntu2004", NameFull: "ubuntu20.04", NamePretty: "Ubuntu 20.04"}
	Ubuntu1804   = state.PlatformDefinition{Name: "ubuntu1804", NameFull: "ubuntu18.04", NamePretty: "Ubuntu 18.04"}
	Fedora39     = state.PlatformDefinition{Name: "fedora39", NameFull: "fedora39", NamePretty: "Fedora Linux 39"}
	RHEL9        = state.PlatformDefinition{Name: "ubi9", NameFull: "ubi9", NamePretty: "RHEL 9"}
	AmazonLinux2 = state.PlatformDefinition{Name: "amazonlinux2", NameFull: "amazonlinux2", NamePretty: "Amazon Linux 2"}
	Debian12     = state.PlatformDefinition{Name: "debian12", NameFull: "debian12", NamePretty: "Debian GNU/Linux 12"}
	MacOS        = state.PlatformDefinition{Name: "xcode", NameFull: "osx", NamePretty: "macOS"}
)

// LinuxPlatforms lists the supported Linux distributions.
var LinuxPlatforms = []state.PlatformDefinition{Ubuntu2404, Ubuntu2204, Ubuntu2004, Ubuntu1804, Fedora39, RHEL9, AmazonLinux2, Debian12}

var osReleaseFiles = []string{"/etc/os-release", "/usr/lib/os-release"}

// Detect identifies the host platform.
func Detect() (state.PlatformDefinition, error) {
	var (
		def state.PlatformDefinition
		err error
	)
	switch runtime.GOOS {
	case "linux":
		def, err = detectLinux(osReleaseFiles)
	case "darwin":
		def = MacOS
	default:
		err = fmt.Errorf("unsupported operating system %s", runtime.GOOS)
	}
	if err != nil {
		return state.PlatformDefinition{}, err
	}
	def.Architecture = Architecture(runtime.GOARCH)
	return def, nil
}

// Lookup finds a supported platform by name or full name.
func Lookup(name string) (state.PlatformDefinition, bool) {
	for _, def := range slices.Concat(LinuxPlatforms, []state.PlatformDefinition{MacOS}) {
		if def.Name == name || def.NameFull == name {
			return def, true
		}
	}
	return state.PlatformDefinition{}, false
}

// Architecture maps a GOARCH onto the names release archives use.
func Architecture(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	default:
		return goarch
	}
}

func detectLinux(files []string) (state.PlatformDefinition, error) {
	for _, file := range files {
		f, err := os.Open(file)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return state.PlatformDefinition{}, fmt.Errorf("read %s: %w", file, err)
		}
		info, err := ParseOSRelease(f)
		f.Close()
		if err != nil {
			return state.PlatformDefinition{}, fmt.Errorf("read %s: %w", file, err)
		}
		return info.Platform()
	}
	return state.PlatformDefinition{}, errors.New("unable to detect the Linux distribution: no os-release file")
}

// OSRelease holds the os-release fields used for detection.
type OSRelease struct {
	ID         string
	IDLike     string
	VersionID  string
	PrettyName string
}

// ParseOSRelease reads os-release key=value lines.
func ParseOSRelease(r io.Reader) (OSRelease, error) {
	var info OSRelease
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "ID":
			info.ID = value
		case "ID_LIKE":
			info.IDLike = value
		case "VERSION_ID":
			info.VersionID = strings.ReplaceAll(value, ".", "")
		case "PRETTY_NAME":
			info.PrettyName = value
		}
	}
	return info, scanner.Err()
}

// Platform maps release information onto a supported platform.
func (o OSRelease) Platform() (state.PlatformDefinition, error) {
	if o.ID == "" || o.VersionID == "" {
		return state.PlatformDefinition{}, errors.New("unable to find release information in os-release")
	}
	family := o.ID + " " + o.IDLike
	switch {
	case strings.Contains(family, "amzn"):
		if o.VersionID != "2" {
			return state.PlatformDefinition{}, fmt.Errorf("unsupported version of Amazon Linux: %s", o.VersionID)
		}
		return AmazonLinux2, nil
	case strings.Contains(family, "rhel"):
		if !strings.HasPrefix(o.VersionID, "9") {
			return state.PlatformDefinition{}, fmt.Errorf("unsupported version of RHEL: %s", o.VersionID)
		}
		return RHEL9, nil
	}
	for _, def := range []state.PlatformDefinition{Ubuntu1804, Ubuntu2004, Ubuntu2204, Ubuntu2404, Debian12, Fedora39} {
		if def.Name == o.ID+o.VersionID {
			return def, nil
		}
	}
	name := o.PrettyName
	if name == "" {
		name = o.ID + " " + o.VersionID
	}
	return state.PlatformDefinition{}, fmt.Errorf("unsupported Linux platform %s", name)
}
