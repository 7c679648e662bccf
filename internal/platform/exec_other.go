//go:build !unix

package platform

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
)

func runCommand(ctx context.Context, c Command, logger *slog.Logger) (int, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = streams(c)

	if err := cmd.Start(); err != nil {
		return startFailureCode(err), err
	}
	logger.Debug("exec: started", slog.String("path", c.Path), slog.Int("pid", cmd.Process.Pid))

	// The console delivers Ctrl-C to the whole group; swallow ours.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigs:
			case <-ctx.Done():
				_ = cmd.Process.Kill()
				return
			case <-done:
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	signal.Stop(sigs)

	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 1, waitErr
}
