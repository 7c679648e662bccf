package cli

import (
	"github.com/spf13/cobra"

	"tcm/internal/toolchain"
	"tcm/internal/tools"
)

var updateYes bool

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [version]",
		Short: "Replace a toolchain with the newest compatible one",
		Long: `Install the newest toolchain compatible with an installed one, then remove
the old one. Without a version the global default is updated within its
major.minor line; "5" widens the search to the major version and "latest"
to every release. Snapshots update to the newest build of their branch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runUpdate,
	}

	cmd.Flags().BoolVarP(&updateYes, "assume-yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	var sel *toolchain.Selector
	if len(args) == 1 {
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

	cat, err := a.catalog()
	if err != nil {
		return err
	}

	var result tools.UpdateResult
	err = runSteps(cmd, "Updating", updateYes, func(r tools.Reporter) error {
		var err error
		result, err = a.manager(cat, r, confirmer(cmd, updateYes)).Update(cmd.Context(), sel, tools.UpdateOptions{AssumeYes: updateYes})
		return err
	})
	if err != nil {
		return err
	}

	switch {
	case result.UpToDate:
		cmd.Printf("%s is already up to date\n", result.From.Name())
	case result.AlreadyInstalled:
		cmd.Printf("%s is already installed; remove %s with `tcm uninstall %s`\n", result.To.Name(), result.From.Name(), result.From.Name())
	default:
		cmd.Printf("Updated %s -> %s\n", result.From.Name(), result.To.Name())
	}
	return nil
}
