package tui

import (
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"tcm/internal/tools"
)

// Column headers of the toolchain progress table.
const (
	ColToolchain = "TOOLCHAIN"
	ColStatus    = "STATUS"
	ColDetail    = "DETAIL"
)

// ToolchainColumns is the layout used by install, update and uninstall.
func ToolchainColumns() []Column {
	return []Column{
		{Header: ColToolchain, Width: 28},
		{Header: ColStatus, Width: 12},
		{Header: ColDetail, Width: 44},
	}
}

// ToolchainReporter adapts bubbletea message sending to tools.Reporter.
type ToolchainReporter struct {
	send func(tea.Msg)
}

// NewToolchainReporter constructs a reporter that forwards steps to send.
func NewToolchainReporter(send func(tea.Msg)) *ToolchainReporter {
	return &ToolchainReporter{send: send}
}

// Step implements tools.Reporter.
func (r *ToolchainReporter) Step(key string, status tools.Status, detail string) {
	r.send(RowUpdateMsg{
		Key: key,
		Fields: map[string]string{
			ColToolchain: key,
			ColStatus:    string(status),
			ColDetail:    NonEmptyOrDash(detail),
		},
	})
}

// LineReporter writes one line per final step, for output that is not a
// terminal.
type LineReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLineReporter returns a reporter writing to w.
func NewLineReporter(w io.Writer) *LineReporter {
	return &LineReporter{w: w}
}

// Step implements tools.Reporter.
func (r *LineReporter) Step(key string, status tools.Status, detail string) {
	if !IsFinalStatus(string(status)) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if detail == "" {
		fmt.Fprintf(r.w, "%s: %s\n", key, status)
		return
	}
	fmt.Fprintf(r.w, "%s: %s (%s)\n", key, status, detail)
}
