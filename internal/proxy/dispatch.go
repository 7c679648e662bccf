package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"tcm/internal/platform"
	"tcm/internal/resolve"
	"tcm/internal/toolchain"
)

// InProgressEnv is set in every proxied child. Reaching proxy mode again
// with it set means PATH still leads back to a shim.
const InProgressEnv = "TCM_PROXY_IN_PROGRESS"

// ExitError carries a proxied child's exit code. Err is nil when the child
// ran and simply exited non-zero.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// CircularError reports a shim that was reached from a proxied child.
type CircularError struct {
	Command string
}

func (e *CircularError) Error() string {
	return fmt.Sprintf("circular proxy: %s resolved back to tcm; the active toolchain does not provide it", e.Command)
}

// Toolchains resolves the toolchain active in a directory.
type Toolchains interface {
	Active(dir string, override *toolchain.Selector) (resolve.Result, error)
}

// Dispatcher runs commands with the active toolchain.
type Dispatcher struct {
	Toolchains Toolchains
	Platform   platform.Platform
	// DispatchDir holds tcm's own shims and is removed from PATH.
	DispatchDir string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is the base environment; nil means os.Environ().
	Env    []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Run executes `tcm run` tokens.
func (d *Dispatcher) Run(ctx context.Context, tokens []string) error {
	command, override, err := ExtractArgs(tokens)
	if err != nil {
		return err
	}
	return d.Exec(ctx, command, override)
}

// Proxy handles an invocation of tcm under another name, such as a swift
// symlink in the dispatch directory.
func (d *Dispatcher) Proxy(ctx context.Context, name string, args []string) error {
	if getenv(d.environ(), InProgressEnv) != "" {
		return &CircularError{Command: name}
	}
	return d.Run(ctx, append([]string{name}, args...))
}

// Exec runs command with the active toolchain, or override when set. A
// non-zero exit is returned as *ExitError.
func (d *Dispatcher) Exec(ctx context.Context, command []string, override *toolchain.Selector) error {
	if len(command) == 0 {
		return ErrNoCommand
	}
	dir, err := d.workDir()
	if err != nil {
		return err
	}

	active, err := d.Toolchains.Active(dir, override)
	if err != nil {
		return err
	}
	binDir, err := d.Platform.BinDir(active.Version)
	if err != nil {
		return err
	}

	env := d.environ()
	searchPath := rewritePath(getenv(env, "PATH"), binDir, d.DispatchDir)
	env = setenv(env, "PATH", searchPath)
	env = setenv(env, InProgressEnv, "1")

	exe, ok := lookPath(command[0], searchPath)
	if !ok {
		return &ExitError{Code: 127, Err: fmt.Errorf("%s: command not found in toolchain %s or PATH", command[0], active.Version.Name())}
	}

	d.logger().Debug("proxy: dispatch",
		slog.String("command", exe),
		slog.String("toolchain", active.Version.Name()),
		slog.String("source", active.Source.String()))

	code, err := d.Platform.Exec(ctx, platform.Command{
		Path:   exe,
		Args:   command[1:],
		Env:    env,
		Dir:    dir,
		Stdin:  d.Stdin,
		Stdout: d.Stdout,
		Stderr: d.Stderr,
	})
	if err != nil {
		return &ExitError{Code: code, Err: fmt.Errorf("run %s: %w", command[0], err)}
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func (d *Dispatcher) workDir() (string, error) {
	if d.Dir != "" {
		return d.Dir, nil
	}
	return os.Getwd()
}

func (d *Dispatcher) environ() []string {
	if d.Env != nil {
		return d.Env
	}
	return os.Environ()
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}
