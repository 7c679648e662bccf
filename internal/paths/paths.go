package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// HomeEnv overrides the tcm home directory.
const HomeEnv = "TCM_HOME"

// Home captures canonical locations under the tcm home directory.
type Home struct {
	Root          string
	ConfigFile    string
	SettingsFile  string
	LockFile      string
	ToolchainsDir string
	DownloadsDir  string
	LogsDir       string
	BinDir        string
	CatalogCache  string
}

// Resolve determines the home directory from the optional --home flag, then
// TCM_HOME, then the per-OS default.
func Resolve(homeFlag string) (Home, error) {
	root := homeFlag
	if root == "" {
		if override, ok := os.LookupEnv(HomeEnv); ok && override != "" {
			root = override
		}
	}
	if root == "" {
		def, err := defaultRoot()
		if err != nil {
			return Home{}, err
		}
		return newHome(def), nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return Home{}, fmt.Errorf("resolve home: %w", err)
	}
	return newHome(abs), nil
}

func defaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "tcm"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "tcm"), nil
		}
		return filepath.Join(home, "AppData", "Local", "tcm"), nil
	default:
		return filepath.Join(home, ".local", "share", "tcm"), nil
	}
}

func newHome(root string) Home {
	return Home{
		Root:          root,
		ConfigFile:    filepath.Join(root, "config.json"),
		SettingsFile:  filepath.Join(root, "settings.yaml"),
		LockFile:      filepath.Join(root, "tcm.lock"),
		ToolchainsDir: filepath.Join(root, "toolchains"),
		DownloadsDir:  filepath.Join(root, "downloads"),
		LogsDir:       filepath.Join(root, "logs"),
		BinDir:        filepath.Join(root, "bin"),
		CatalogCache:  filepath.Join(root, "cache", "catalog.json"),
	}
}

// EnsureDirs creates the home directory hierarchy.
func (h Home) EnsureDirs() error {
	dirs := []string{h.Root, h.ToolchainsDir, h.DownloadsDir, h.LogsDir, h.BinDir, filepath.Dir(h.CatalogCache)}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
