package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tcm/internal/toolchain"
	"tcm/internal/tools"
)

var (
	useGlobal        bool
	usePrintLocation bool
)

func newUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use [version]",
		Short: "Select the toolchain to use, or show the active one",
		Long: `With a version, select the newest installed toolchain matching it. Inside a
project the version marker file is written; elsewhere, or with --global, the
global default changes.

Without a version, print the active toolchain and where it was selected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runUse,
	}

	cmd.Flags().BoolVarP(&useGlobal, "global", "g", false, "Set the global default even inside a project")
	cmd.Flags().BoolVarP(&usePrintLocation, "print-location", "p", false, "Print the install directory of the active toolchain")

	return cmd
}

func runUse(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	m := a.manager(nil, nil, nil)

	if len(args) == 0 {
		active, err := m.Active(cwd, nil)
		if err != nil {
			return err
		}
		if usePrintLocation {
			fmt.Fprintln(cmd.OutOrStdout(), m.Location(active.Version))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", active.Version.Name(), active.Describe())
		return nil
	}

	sel, err := toolchain.ParseSelector(args[0])
	if err != nil {
		return err
	}
	result, err := m.Use(cmd.Context(), sel, tools.UseOptions{Global: useGlobal, Dir: cwd})
	if err != nil {
		return err
	}

	name := result.Version.Name()
	switch {
	case result.Unchanged && result.MarkerPath != "":
		cmd.Printf("%s is already in use (set by %s)\n", name, result.MarkerPath)
	case result.Unchanged:
		cmd.Printf("%s is already the global default\n", name)
	case result.MarkerPath != "":
		cmd.Printf("Set %s in %s%s\n", name, result.MarkerPath, previously(result.Previous))
	default:
		cmd.Printf("Set the global default to %s%s\n", name, previously(result.Previous))
	}
	if usePrintLocation {
		fmt.Fprintln(cmd.OutOrStdout(), m.Location(result.Version))
	}
	return nil
}

func previously(v *toolchain.Version) string {
	if v == nil {
		return ""
	}
	return " (was " + v.Name() + ")"
}
