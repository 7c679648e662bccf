package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"tcm/internal/platform"
	"tcm/internal/toolchain"
	"tcm/internal/tools"
)

var installUse bool

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <version>",
		Short: "Download and install a toolchain",
		Long: `Download and install the newest toolchain matching <version>.

<version> is "latest", a release such as 5.10 or 5.10.1, or a snapshot such
as main-snapshot-2024-06-01 or 6.0-snapshot. The first toolchain installed
becomes the global default.`,
		Args: cobra.ExactArgs(1),
		RunE: runInstall,
	}

	cmd.Flags().BoolVar(&installUse, "use", false, "Make the installed toolchain the global default")

	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	sel, err := toolchain.ParseSelector(args[0])
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

	var result tools.InstallResult
	err = runSteps(cmd, "Installing "+sel.String(), true, func(r tools.Reporter) error {
		var err error
		result, err = a.manager(cat, r, nil).Install(cmd.Context(), sel, tools.InstallOptions{Use: installUse})
		return err
	})
	if err != nil {
		return err
	}

	name := result.Version.Name()
	switch {
	case result.AlreadyInstalled && result.InUse:
		cmd.Printf("%s is already installed and is now the global default\n", name)
	case result.AlreadyInstalled:
		cmd.Printf("%s is already installed\n", name)
	case result.InUse:
		cmd.Printf("Installed %s and set it as the global default\n", name)
	default:
		cmd.Printf("Installed %s\n", name)
	}

	if !result.AlreadyInstalled && runtime.GOOS == "linux" {
		cfg, err := a.store.Load()
		if err == nil {
			hints := platform.DependencyHints(cfg.Platform)
			if len(hints) > 0 {
				cmd.Println()
			}
			for _, line := range hints {
				cmd.Println(line)
			}
		}
	}
	return nil
}
