package proxy

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"tcm/internal/platform"
)

// rewritePath puts binDir first and drops dispatchDir so a proxied command
// can never resolve back to a tcm shim.
func rewritePath(current, binDir, dispatchDir string) string {
	parts := []string{binDir}
	for _, dir := range filepath.SplitList(current) {
		if dir == "" || samePath(dir, binDir) || (dispatchDir != "" && samePath(dir, dispatchDir)) {
			continue
		}
		parts = append(parts, dir)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

func samePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// lookPath finds name in the directories of pathList. Names containing a
// separator are returned as is.
func lookPath(name, pathList string) (string, bool) {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return name, true
	}
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, platform.ExecutableName(name))
		if isExecutable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func getenv(env []string, key string) string {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):]
		}
	}
	return ""
}

// setenv returns a copy of env with key set to value.
func setenv(env []string, key, value string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}
