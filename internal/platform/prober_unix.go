//go:build unix

package platform

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ProcessProber checks process liveness with signal 0.
type ProcessProber struct{}

func (ProcessProber) Alive(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid pid %d", pid)
	}
	err := unix.Kill(pid, 0)
	switch {
	case err == nil, errors.Is(err, unix.EPERM):
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	default:
		return false, fmt.Errorf("probe pid %d: %w", pid, err)
	}
}
