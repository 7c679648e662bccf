package tools

import (
	"errors"
	"fmt"

	"tcm/internal/toolchain"
)

// ErrAborted is returned when the user declines a confirmation.
var ErrAborted = errors.New("aborted")

// ExternalError wraps a platform or catalog failure with the operation and
// toolchain it concerned.
type ExternalError struct {
	Op      string
	Version string
	Err     error
}

func (e *ExternalError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Version, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// Phase names a step of an update.
type Phase string

const (
	PhaseInstall   Phase = "install"
	PhaseUninstall Phase = "uninstall"
)

// PhaseError reports which half of an update failed. Updates are not
// rolled back: after an install failure only From is installed, after an
// uninstall failure both are.
type PhaseError struct {
	Phase Phase
	From  toolchain.Version
	To    toolchain.Version
	Err   error
}

func (e *PhaseError) Error() string {
	switch e.Phase {
	case PhaseInstall:
		return fmt.Sprintf("update %s -> %s failed installing %s: %v; %s is unchanged",
			e.From.Name(), e.To.Name(), e.To.Name(), e.Err, e.From.Name())
	default:
		return fmt.Sprintf("update %s -> %s installed %s but failed removing %s: %v; remove it with `tcm uninstall %s`",
			e.From.Name(), e.To.Name(), e.To.Name(), e.From.Name(), e.Err, e.From.Name())
	}
}

func (e *PhaseError) Unwrap() error { return e.Err }
