package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"tcm/internal/proxy"
	"tcm/internal/tools"
)

// Version is stamped at build time with -ldflags "-X tcm/internal/cli.Version=...".
var Version = "0.4.0"

const binaryName = "tcm"

var (
	homeDir    string
	noProgress bool
)

// Main runs tcm with the process arguments and returns the exit code. When
// invoked under another name, such as a swift symlink, the call is
// dispatched to the active toolchain instead.
func Main(args []string) int {
	name := invokedName(args)
	if name != "" && name != binaryName {
		return exitCode(os.Stderr, runProxy(context.Background(), name, args[1:]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if len(args) > 0 {
		cmd.SetArgs(args[1:])
	}
	return exitCode(os.Stderr, cmd.ExecuteContext(ctx))
}

func invokedName(args []string) string {
	if len(args) == 0 {
		return ""
	}
	base := filepath.Base(args[0])
	return strings.TrimSuffix(base, ".exe")
}

// exitCode reports err on w and maps it to a process exit status.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *proxy.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(w, "error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	if errors.Is(err, tools.ErrAborted) {
		fmt.Fprintln(w, "aborted")
		return 1
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           binaryName,
		Short:         "Install and switch between toolchain versions",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&homeDir, "home", "", "Path to the tcm home directory (default $TCM_HOME or the per-user data dir)")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Print one line per step instead of a live progress table")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newUseCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newUninstallCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newListAvailableCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLinkCmd())
	cmd.AddCommand(newUnlinkCmd())
	cmd.AddCommand(newSelfUninstallCmd())

	return cmd
}
