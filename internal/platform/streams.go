package platform

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
)

func streams(c Command) (io.Reader, io.Writer, io.Writer) {
	var (
		in   io.Reader = os.Stdin
		out  io.Writer = os.Stdout
		errW io.Writer = os.Stderr
	)
	if c.Stdin != nil {
		in = c.Stdin
	}
	if c.Stdout != nil {
		out = c.Stdout
	}
	if c.Stderr != nil {
		errW = c.Stderr
	}
	return in, out, errW
}

// startFailureCode maps a failure to start a process onto the shell's
// conventional exit codes.
func startFailureCode(err error) int {
	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, fs.ErrNotExist) {
		return 127
	}
	if errors.Is(err, fs.ErrPermission) {
		return 126
	}
	return 1
}
