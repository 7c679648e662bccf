package cli

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"tcm/internal/resolve"
	"tcm/internal/toolchain"
	"tcm/internal/tui"
)

var listAvailableSnapshots bool

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [version]",
		Short: "List installed toolchains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runList,
	}
}

func newListAvailableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-available [version]",
		Short: "List toolchains available for download",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runListAvailable,
	}

	cmd.Flags().BoolVar(&listAvailableSnapshots, "snapshots", false, "Include main branch snapshots when no version is given")

	return cmd
}

func optionalSelector(args []string) (*toolchain.Selector, error) {
	if len(args) == 0 {
		return nil, nil
	}
	sel, err := toolchain.ParseSelector(args[0])
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

func runList(cmd *cobra.Command, args []string) error {
	sel, err := optionalSelector(args)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.store.Load()
	if err != nil {
		return err
	}

	installed := resolve.Targets(cfg, sel)
	if len(installed) == 0 {
		if sel == nil {
			cmd.Println("No toolchains installed; try `tcm install latest`")
		} else {
			cmd.Printf("No installed toolchains match %s\n", sel)
		}
		return nil
	}

	var active *resolve.Result
	if cwd, err := os.Getwd(); err == nil {
		if res, err := a.manager(nil, nil, nil).Active(cwd, nil); err == nil {
			active = &res
		} else {
			a.logger.Debug("list: no active toolchain", "error", err)
		}
	}

	printInstalled(cmd.OutOrStdout(), installed, active, a.platform.ToolchainDir)
	return nil
}

// printInstalled writes versions newest first, starring the active one.
func printInstalled(w io.Writer, versions []toolchain.Version, active *resolve.Result, location func(toolchain.Version) string) {
	sorted := slices.Clone(versions)
	slices.SortFunc(sorted, func(a, b toolchain.Version) int { return toolchain.Compare(b, a) })

	fmt.Fprintln(w, tui.HeaderStyle.Render("Installed toolchains"))
	for _, v := range sorted {
		if active != nil && active.Version == v {
			line := fmt.Sprintf("* %-32s %s", v.Name(), active.Describe())
			fmt.Fprintln(w, tui.ActiveStyle.Render(line))
			continue
		}
		fmt.Fprintf(w, "  %-32s %s\n", v.Name(), tui.DimStyle.Render(location(v)))
	}
}

func runListAvailable(cmd *cobra.Command, args []string) error {
	sel, err := optionalSelector(args)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cat, err := a.catalog()
	if err != nil {
		return err
	}
	cfg, err := a.store.Load()
	if err != nil {
		return err
	}

	var branches []toolchain.Branch
	if listAvailableSnapshots {
		branches = append(branches, toolchain.MainBranch)
	}

	var sw *tui.StatusWriter
	if tui.DetectMode(cmd.ErrOrStderr(), noProgress) == tui.ModeTUI {
		sw = tui.NewStatusWriter(cmd.ErrOrStderr(), "Querying the toolchain catalog")
	}
	entries, err := cat.ListAvailable(cmd.Context(), sel, branches...)
	if sw != nil {
		sw.Stop()
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		if sel == nil {
			cmd.Println("No toolchains available for this platform")
		} else {
			cmd.Printf("No available toolchains match %s\n", sel)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.HeaderStyle.Render("Available toolchains"))
	for i := len(entries) - 1; i >= 0; i-- {
		v := entries[i].Version
		if cfg.IsInstalled(v) {
			fmt.Fprintf(out, "  %-32s %s\n", v.Name(), tui.ActiveStyle.Render("(installed)"))
			continue
		}
		fmt.Fprintf(out, "  %s\n", v.Name())
	}
	return nil
}
