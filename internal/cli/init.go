package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"tcm/internal/config"
	"tcm/internal/paths"
	"tcm/internal/platform"
	"tcm/internal/state"
)

// proxyCommands are linked into the home bin directory so that running them
// goes through the active toolchain.
var proxyCommands = []string{"swift", "swiftc", "sourcekit-lsp"}

var initPlatform string

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the tcm home directory and record the host platform",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	cmd.Flags().StringVar(&initPlatform, "platform", "", "Platform name to record instead of detecting it (e.g. ubuntu2404)")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.home.EnsureDirs(); err != nil {
		return err
	}
	a.logger.Info("init", slog.String("home", a.home.Root))

	created := make([]string, 0, 2+len(proxyCommands))

	if err := ensureSettings(a.home, &created, a.logger); err != nil {
		return err
	}

	var def state.PlatformDefinition
	if !a.store.Exists() {
		if def, err = initPlatformDefinition(initPlatform); err != nil {
			return err
		}
	}
	cfg, fresh, err := a.store.Init(def)
	if err != nil {
		return err
	}
	if fresh {
		a.logger.Info("init: created record", slog.String("platform", def.Name))
		created = append(created, filepath.Base(a.home.ConfigFile))
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate tcm executable: %w", err)
	}
	if err := ensureShims(a.home.BinDir, exe, proxyCommands, &created, a.logger); err != nil {
		return err
	}

	if len(created) == 0 {
		cmd.Printf("Already initialized at %s (%s)\n", a.home.Root, cfg.Platform.NamePretty)
	} else {
		cmd.Printf("Initialized %s for %s\n", a.home.Root, cfg.Platform.NamePretty)
		for _, entry := range created {
			cmd.Printf("  created %s\n", entry)
		}
	}

	if !onPath(a.home.BinDir, os.Getenv("PATH")) {
		cmd.Printf("\nAdd %s to the front of your PATH:\n", a.home.BinDir)
		cmd.Printf("    export PATH=%q:\"$PATH\"\n", a.home.BinDir)
	}
	return nil
}

func initPlatformDefinition(name string) (state.PlatformDefinition, error) {
	if name == "" {
		return platform.Detect()
	}
	def, ok := platform.Lookup(name)
	if !ok {
		return state.PlatformDefinition{}, fmt.Errorf("unknown platform %q", name)
	}
	return def, nil
}

func ensureSettings(h paths.Home, created *[]string, logger *slog.Logger) error {
	exists, err := paths.FileExists(h.SettingsFile)
	if err != nil {
		return fmt.Errorf("check settings: %w", err)
	}
	if exists {
		logger.Debug("init: settings exist", slog.String("path", h.SettingsFile))
		return nil
	}

	cfg := config.Default()
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(h.SettingsFile, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	logger.Info("init: created settings", slog.String("path", h.SettingsFile))
	*created = append(*created, filepath.Base(h.SettingsFile))
	return nil
}

// ensureShims links each name in dir to target. Links that already point at
// target are left alone; anything else under that name is replaced.
func ensureShims(dir, target string, names []string, created *[]string, logger *slog.Logger) error {
	for _, name := range names {
		link := filepath.Join(dir, platform.ExecutableName(name))
		current, err := os.Readlink(link)
		if err == nil && current == target {
			continue
		}
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			if rmErr := os.Remove(link); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				return fmt.Errorf("replace %s: %w", link, rmErr)
			}
		}
		if err := os.Symlink(target, link); err != nil {
			return fmt.Errorf("link %s: %w", link, err)
		}
		logger.Info("init: linked proxy", slog.String("name", name), slog.String("target", target))
		*created = append(*created, filepath.Join(filepath.Base(dir), filepath.Base(link)))
	}
	return nil
}

func onPath(dir, pathList string) bool {
	return slices.ContainsFunc(filepath.SplitList(pathList), func(entry string) bool {
		return strings.TrimRight(entry, string(filepath.Separator)) == strings.TrimRight(dir, string(filepath.Separator))
	})
}
