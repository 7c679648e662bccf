package platform

import (
	"strings"

	"tcm/internal/state"
)

var systemDependencies = map[string][]string{
	"ubuntu1804":   {"binutils", "git", "unzip", "libc6-dev", "libcurl4-openssl-dev", "libedit2", "libgcc-5-dev", "libpython3.6", "libsqlite3-0", "libstdc++-5-dev", "libxml2-dev", "pkg-config", "tzdata", "zlib1g-dev"},
	"ubuntu2004":   {"binutils", "git", "unzip", "gnupg2", "libc6-dev", "libcurl4-openssl-dev", "libedit2", "libgcc-9-dev", "libpython3.8", "libsqlite3-0", "libstdc++-9-dev", "libxml2-dev", "libz3-dev", "pkg-config", "tzdata", "zlib1g-dev"},
	"ubuntu2204":   {"binutils", "git", "unzip", "gnupg2", "libc6-dev", "libcurl4-openssl-dev", "libedit2", "libgcc-11-dev", "libpython3-dev", "libsqlite3-0", "libstdc++-11-dev", "libxml2-dev", "libz3-dev", "pkg-config", "tzdata", "zlib1g-dev"},
	"ubuntu2404":   {"binutils", "git", "unzip", "gnupg2", "libc6-dev", "libcurl4-openssl-dev", "libedit2", "libgcc-13-dev", "libpython3-dev", "libsqlite3-0", "libstdc++-13-dev", "libxml2-dev", "libncurses-dev", "libz3-dev", "pkg-config", "tzdata", "zlib1g-dev"},
	"amazonlinux2": {"binutils", "gcc", "git", "unzip", "glibc-static", "gzip", "libbsd", "libcurl-devel", "libedit", "libicu", "libsqlite", "libstdc++-static", "libuuid", "libxml2-devel", "openssl-devel", "tar", "tzdata", "zlib-devel"},
	"ubi9":         {"git", "gcc-c++", "libcurl-devel", "libedit-devel", "libuuid-devel", "libxml2-devel", "ncurses-devel", "python3-devel", "rsync", "sqlite-devel", "unzip", "zip"},
	"fedora39":     {"binutils", "gcc", "git", "unzip", "libcurl-devel", "libedit-devel", "libicu-devel", "sqlite-devel", "libuuid-devel", "libxml2-devel", "python3-devel", "libstdc++-devel", "libstdc++-static"},
	"debian12":     {"binutils", "libicu-dev", "libcurl4-openssl-dev", "libedit-dev", "libsqlite3-dev", "libncurses-dev", "libpython3-dev", "libxml2-dev", "pkg-config", "uuid-dev", "tzdata", "git", "gcc", "libstdc++-12-dev"},
}

func packageManager(name string) string {
	switch name {
	case "ubuntu1804", "ubuntu2004", "ubuntu2204", "ubuntu2404", "debian12":
		return "apt-get"
	case "amazonlinux2", "ubi9", "fedora39":
		return "yum"
	default:
		return ""
	}
}

// DependencyHints returns instructions for installing the system packages a
// toolchain needs on def, or nil when there is nothing to suggest.
func DependencyHints(def state.PlatformDefinition) []string {
	deps := systemDependencies[def.Name]
	manager := packageManager(def.Name)
	if len(deps) == 0 || manager == "" {
		return nil
	}
	return []string{
		"Toolchains on " + def.NamePretty + " need these system packages. Install them as root with:",
		"    " + manager + " -y install " + strings.Join(deps, " "),
	}
}
