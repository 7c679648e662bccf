package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link",
		Short: "Re-create the proxy links so tcm manages the active toolchain again",
		Args:  cobra.NoArgs,
		RunE:  runLink,
	}
}

func newUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink",
		Short: "Remove the proxy links so the system toolchain is used",
		Long: `Remove the links in the tcm bin directory that point at this tcm binary.
Installed toolchains and settings are kept; run tcm link to undo.`,
		Args: cobra.NoArgs,
		RunE: runUnlink,
	}
}

func runLink(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.store.Load()
	if err != nil {
		return err
	}
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate tcm executable: %w", err)
	}
	if err := os.MkdirAll(a.home.BinDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", a.home.BinDir, err)
	}

	var created []string
	if err := ensureShims(a.home.BinDir, exe, proxyCommands, &created, a.logger); err != nil {
		return err
	}

	active := "no active toolchain"
	if cfg.InUse != nil {
		active = cfg.InUse.Name()
	}
	if len(created) == 0 {
		cmd.Printf("Already linked (%s)\n", active)
		return nil
	}
	cmd.Printf("Linked %s to tcm (%s)\n", strings.Join(created, ", "), active)
	if hint := refreshHint(os.Getenv("SHELL")); hint != "" {
		cmd.Println(hint)
	}
	return nil
}

func runUnlink(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate tcm executable: %w", err)
	}
	removed, err := removeShims(a.home.BinDir, exe, a.logger)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		cmd.Println("Nothing to unlink")
		return nil
	}
	cmd.Printf("Removed %s\n", strings.Join(removed, ", "))
	if hint := refreshHint(os.Getenv("SHELL")); hint != "" {
		cmd.Println(hint)
	}
	return nil
}

// removeShims deletes the links in dir that point at target. Other files,
// including links to somewhere else, are left alone.
func removeShims(dir, target string, logger *slog.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var removed []string
	for _, e := range entries {
		link := filepath.Join(dir, e.Name())
		if dest, err := os.Readlink(link); err != nil || dest != target {
			continue
		}
		if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", link, err)
		}
		logger.Info("unlink: removed proxy", slog.String("path", link))
		removed = append(removed, e.Name())
	}
	return removed, nil
}

// refreshHint tells the user how to drop cached command paths. Fish and
// nushell do not cache them.
func refreshHint(shell string) string {
	switch base := filepath.Base(shell); base {
	case "fish", "nu":
		return ""
	case "murex":
		return "Run `murex-update-exe-list` to refresh the shell's command cache."
	default:
		return "Run `hash -r` to refresh the shell's command cache."
	}
}
