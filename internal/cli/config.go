package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"tcm/internal/config"
	"tcm/internal/logx"
	"tcm/internal/paths"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit tcm settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings in YAML",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Open settings.yaml in $VISUAL or $EDITOR",
		Args:  cobra.NoArgs,
		RunE:  runConfigEdit,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the location of settings.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home, err := paths.Resolve(homeDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), home.SettingsFile)
			return nil
		},
	})
	return cmd
}

// runConfigShow prints settings after defaults and environment overrides are
// applied, so the output may differ from the file on disk.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	home, err := paths.Resolve(homeDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(home.SettingsFile)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))
	if !strings.HasSuffix(string(data), "\n") {
		fmt.Fprintln(out)
	}
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	home, err := paths.Resolve(homeDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(home.Root, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", home.Root, err)
	}
	var created []string
	if err := ensureSettings(home, &created, logx.Discard()); err != nil {
		return err
	}

	argv := editorCommand(os.Getenv("VISUAL"), os.Getenv("EDITOR"))
	editor := exec.CommandContext(cmd.Context(), argv[0], append(argv[1:], home.SettingsFile)...)
	editor.Stdin = cmd.InOrStdin()
	editor.Stdout = cmd.OutOrStdout()
	editor.Stderr = cmd.ErrOrStderr()
	editor.Dir = home.Root
	if err := editor.Run(); err != nil {
		return fmt.Errorf("run %s: %w", argv[0], err)
	}

	if _, err := config.Load(home.SettingsFile); err != nil {
		return fmt.Errorf("%s was saved but does not load: %w", home.SettingsFile, err)
	}
	return nil
}

// editorCommand returns the first non-blank candidate split on whitespace,
// so values like "code -w" work. It falls back to vi.
func editorCommand(candidates ...string) []string {
	for _, c := range candidates {
		if fields := strings.Fields(c); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}
