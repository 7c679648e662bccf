//go:build unix

package platform

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// runCommand runs c and waits for it. When the caller owns the terminal the
// child gets its own process group in the foreground, so Ctrl-C reaches the
// child and not us; the terminal is handed back once the child exits.
func runCommand(ctx context.Context, c Command, logger *slog.Logger) (int, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = streams(c)

	ttyFd, shellPgrp, foreground := foregroundTerminal(c)
	if foreground {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Foreground: true, Ctty: ttyFd}
	}

	if err := cmd.Start(); err != nil {
		return startFailureCode(err), err
	}
	logger.Debug("exec: started", slog.String("path", c.Path), slog.Int("pid", cmd.Process.Pid), slog.Bool("foreground", foreground))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigs:
				_ = cmd.Process.Signal(sig)
			case <-ctx.Done():
				_ = cmd.Process.Signal(syscall.SIGTERM)
				return
			case <-done:
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	signal.Stop(sigs)

	if foreground {
		restoreForeground(ttyFd, shellPgrp, logger)
	}
	return exitCode(waitErr)
}

// foregroundTerminal reports whether stdin is a terminal whose foreground
// group is ours.
func foregroundTerminal(c Command) (int, int, bool) {
	if c.Stdin != nil {
		return -1, 0, false
	}
	fd := int(os.Stdin.Fd())
	pgrp, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil || pgrp != unix.Getpgrp() {
		return -1, 0, false
	}
	return fd, pgrp, true
}

func restoreForeground(fd, pgrp int, logger *slog.Logger) {
	// A background group writing TIOCSPGRP gets SIGTTOU.
	signal.Ignore(syscall.SIGTTOU)
	defer signal.Reset(syscall.SIGTTOU)
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgrp); err != nil {
		logger.Warn("exec: restore terminal foreground", slog.String("error", err.Error()))
	}
}

func exitCode(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return 1, waitErr
}
