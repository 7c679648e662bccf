package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tcm/internal/lockfile"
	"tcm/internal/paths"
	"tcm/internal/tools"
)

var selfUninstallYes bool

func newSelfUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self-uninstall",
		Short: "Remove the tcm home directory",
		Long: `Remove the tcm home directory: installed toolchains, proxy links, settings,
logs and caches. The tcm binary itself is not removed.`,
		Args: cobra.NoArgs,
		RunE: runSelfUninstall,
	}

	cmd.Flags().BoolVarP(&selfUninstallYes, "assume-yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runSelfUninstall(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := isHome(a.home)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s does not look like a tcm home; nothing removed", a.home.Root)
	}

	if !selfUninstallYes {
		prompt := fmt.Sprintf("This removes %s, including every installed toolchain. It cannot be undone.\nProceed?", a.home.Root)
		ok, err := newPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr()).Confirm(prompt)
		if err != nil {
			return err
		}
		if !ok {
			return tools.ErrAborted
		}
	}

	a.logger.Info("self-uninstall", slog.String("home", a.home.Root))
	err = lockfile.Do(cmd.Context(), a.home.LockFile, a.lockOptions(), func() error {
		return clearHome(a.home)
	})
	if err != nil {
		return err
	}
	// The lock file was the last entry; another process may have started
	// using the home in the meantime, in which case it is kept.
	if err := os.Remove(a.home.Root); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", a.home.Root, err)
	}

	cmd.Printf("Removed %s\n", a.home.Root)
	if !onPath(a.home.BinDir, os.Getenv("PATH")) {
		return nil
	}
	cmd.Printf("Remove %s from your PATH in your shell profile.\n", a.home.BinDir)
	return nil
}

// isHome reports whether h has a config record or settings file, so a
// mistyped --home never clears an unrelated directory.
func isHome(h paths.Home) (bool, error) {
	for _, p := range []string{h.ConfigFile, h.SettingsFile} {
		exists, err := paths.FileExists(p)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}

// clearHome removes everything under the home root except the lock file,
// which the caller is holding.
func clearHome(h paths.Home) error {
	entries, err := os.ReadDir(h.Root)
	if err != nil {
		return fmt.Errorf("read %s: %w", h.Root, err)
	}
	var errs []error
	for _, e := range entries {
		p := filepath.Join(h.Root, e.Name())
		if p == h.LockFile {
			continue
		}
		errs = append(errs, os.RemoveAll(p))
	}
	return errors.Join(errs...)
}
