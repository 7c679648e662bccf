package cli

import (
	"github.com/spf13/cobra"

	"tcm/internal/toolchain"
	"tcm/internal/tools"
)

var uninstallYes bool

func newUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall <version|all>",
		Short: "Remove installed toolchains",
		Long: `Remove every installed toolchain matching <version>, or all of them. The
toolchains to remove are listed and must be confirmed unless -y is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runUninstall,
	}

	cmd.Flags().BoolVarP(&uninstallYes, "assume-yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runUninstall(cmd *cobra.Command, args []string) error {
	var sel *toolchain.Selector
	if args[0] != "all" {
		parsed, err := toolchain.ParseSelector(args[0])
		if err != nil {
			return err
		}
		sel = &parsed
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var result tools.UninstallResult
	err = runSteps(cmd, "Uninstalling "+args[0], uninstallYes, func(r tools.Reporter) error {
		var err error
		result, err = a.manager(nil, r, confirmer(cmd, uninstallYes)).Uninstall(cmd.Context(), sel, tools.UninstallOptions{AssumeYes: uninstallYes})
		return err
	})
	if len(result.Matched) == 0 && err == nil {
		cmd.Printf("No installed toolchains match %s\n", args[0])
		return nil
	}

	if result.DefaultChanged {
		if result.Default != nil {
			cmd.Printf("The global default is now %s\n", result.Default.Name())
		} else {
			cmd.Println("No toolchains remain; install one with `tcm install latest`")
		}
	}
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d toolchain(s)\n", len(result.Removed))
	return nil
}
