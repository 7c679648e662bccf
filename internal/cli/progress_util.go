package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tcm/internal/tools"
	"tcm/internal/tui"
)

// runSteps runs work with a live progress table when stdout is a terminal
// and interactive is set, or with one line per finished step otherwise.
// Commands that prompt pass interactive=false so the table does not fight
// the prompt for the terminal.
func runSteps(cmd *cobra.Command, title string, interactive bool, work func(tools.Reporter) error) error {
	out := cmd.OutOrStdout()
	if !interactive || tui.DetectMode(out, noProgress) != tui.ModeTUI {
		return work(tui.NewLineReporter(out))
	}

	model := tui.NewProgressModel(title, tui.ToolchainColumns())
	return tui.RunWithWork(out, model, func(send func(tea.Msg)) error {
		return work(tui.NewToolchainReporter(send))
	})
}

// confirmer prompts on stderr unless assumeYes is set.
func confirmer(cmd *cobra.Command, assumeYes bool) tools.Confirmer {
	if assumeYes {
		return nil
	}
	return newPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
}
