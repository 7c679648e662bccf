package tui

import (
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork shows model on out while workFn runs, and returns workFn's
// error once both have finished. The program neither reads the keyboard nor
// handles signals: an interrupt cancels the caller's context, workFn
// returns, and the table closes with the final row states on screen.
func RunWithWork(out io.Writer, model ProgressModel, workFn func(send func(tea.Msg)) error) error {
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil), tea.WithoutSignalHandler())

	workErr := make(chan error, 1)
	go func() {
		// First frame before the first row.
		time.Sleep(50 * time.Millisecond)
		err := workFn(func(msg tea.Msg) {
			p.Send(msg)
			time.Sleep(5 * time.Millisecond)
		})
		workErr <- err
		p.Send(WorkDoneMsg{})
	}()

	_, runErr := p.Run()
	if err := <-workErr; err != nil {
		return err
	}
	return runErr
}
