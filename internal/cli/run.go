package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <command> [args...] [+version] [++ args...]",
		Short: "Run a command with the active toolchain",
		Long: `Run a command with the active toolchain's bin directory first on PATH.

An argument of the form +<version> selects the toolchain for this run only.
To pass an argument that starts with +, write it as ++<arg>. A bare ++ ends
selector parsing; everything after it is passed through unchanged.

Only --home and --no-progress are recognized, and only before the command.`,
		DisableFlagParsing: true,
		RunE:               runRun,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	args, err := takeRootFlags(args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cmd.Help()
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// The child owns interrupts from here on; they are forwarded to it and
	// must not cancel the wait.
	return a.dispatcher().Run(context.WithoutCancel(cmd.Context()), args)
}

// runProxy handles tcm invoked through a proxy link named after a toolchain
// command.
func runProxy(ctx context.Context, name string, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return a.dispatcher().Proxy(ctx, name, args)
}

// takeRootFlags consumes tcm's own persistent flags from the front of args.
// Cobra leaves them in place because run does not parse flags.
func takeRootFlags(args []string) ([]string, error) {
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		name, value, hasValue := strings.Cut(args[0], "=")
		switch name {
		case "--home":
			if !hasValue {
				if len(args) < 2 {
					return nil, fmt.Errorf("flag needs an argument: --home")
				}
				value, args = args[1], args[1:]
			}
			homeDir = value
		case "--no-progress":
			noProgress = !hasValue || value == "true"
		case "-h", "--help":
			return nil, nil
		default:
			return nil, fmt.Errorf("unknown flag %s before the command; run flags go after it", args[0])
		}
		args = args[1:]
	}
	return args, nil
}
