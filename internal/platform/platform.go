// Package platform holds the OS-specific side of toolchain management:
// unpacking toolchain archives, locating their binaries and running them.
package platform

import (
	"context"
	"io"
	"runtime"

	"tcm/internal/toolchain"
)

// Platform is implemented once per OS and selected at startup.
type Platform interface {
	// Install unpacks a downloaded toolchain archive for v.
	Install(ctx context.Context, v toolchain.Version, archive string) error
	// Uninstall removes v's files.
	Uninstall(ctx context.Context, v toolchain.Version) error
	// ToolchainDir is where v is, or would be, installed.
	ToolchainDir(v toolchain.Version) string
	// BinDir returns the directory holding v's executables.
	BinDir(v toolchain.Version) (string, error)
	// Exec runs cmd in the foreground and returns its exit code. The error is
	// non-nil only when the command could not be run at all.
	Exec(ctx context.Context, cmd Command) (int, error)
}

// Command is one process to run through Platform.Exec.
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string

	// Nil streams inherit the caller's.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// ExecutableName appends the platform's executable suffix.
func ExecutableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
