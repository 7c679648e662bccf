package tui

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputMode selects how step progress is shown.
type OutputMode int

const (
	// ModeTUI draws a live bubbletea table.
	ModeTUI OutputMode = iota
	// ModePlain writes one line per finished step.
	ModePlain
)

// DetectMode picks ModeTUI only for a real, capable terminal.
func DetectMode(out io.Writer, noProgress bool) OutputMode {
	if noProgress {
		return ModePlain
	}
	f, ok := out.(*os.File)
	if !ok || !isTerminal(f.Fd()) {
		return ModePlain
	}
	if term := os.Getenv("TERM"); strings.EqualFold(term, "dumb") {
		return ModePlain
	}
	return ModeTUI
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
