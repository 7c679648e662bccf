package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tcm/internal/toolchain"
)

// Local installs toolchains from archives into one directory per version
// under a root directory.
type Local struct {
	root   string
	logger *slog.Logger
}

// NewLocal returns a Local platform rooted at root.
func NewLocal(root string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Local{root: root, logger: logger}
}

// Root returns the toolchains directory.
func (p *Local) Root() string { return p.root }

func (p *Local) ToolchainDir(v toolchain.Version) string {
	return filepath.Join(p.root, v.Name())
}

func (p *Local) BinDir(v toolchain.Version) (string, error) {
	dir := p.ToolchainDir(v)
	bin, ok := binDirIn(dir)
	if !ok {
		return "", fmt.Errorf("toolchain %s has no bin directory under %s", v.Name(), dir)
	}
	return bin, nil
}

func (p *Local) Install(ctx context.Context, v toolchain.Version, archive string) error {
	format, err := detectFormat(archive)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.root, 0o755); err != nil {
		return fmt.Errorf("prepare toolchains dir: %w", err)
	}

	extractDir, err := os.MkdirTemp(p.root, "."+v.Name()+"-extract-")
	if err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(extractDir) }()

	if err := extractArchive(ctx, format, archive, extractDir); err != nil {
		return err
	}

	payload := payloadRoot(extractDir)
	if _, ok := binDirIn(payload); !ok {
		return fmt.Errorf("archive %s does not contain a toolchain bin directory", filepath.Base(archive))
	}

	dest := p.ToolchainDir(v)
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("replace toolchain dir: %w", err)
	}
	if err := os.Rename(payload, dest); err != nil {
		return fmt.Errorf("commit toolchain dir: %w", err)
	}
	p.logger.Info("platform: installed", slog.String("version", v.Name()), slog.String("dir", dest))
	return nil
}

func (p *Local) Uninstall(_ context.Context, v toolchain.Version) error {
	dir := p.ToolchainDir(v)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("platform: toolchain dir already gone", slog.String("version", v.Name()))
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove toolchain dir: %w", err)
	}
	p.logger.Info("platform: uninstalled", slog.String("version", v.Name()))
	return nil
}

func (p *Local) Exec(ctx context.Context, cmd Command) (int, error) {
	return runCommand(ctx, cmd, p.logger)
}

// binDirIn finds the executables directory of an unpacked toolchain.
func binDirIn(dir string) (string, bool) {
	for _, rel := range []string{filepath.Join("usr", "bin"), "bin"} {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// payloadRoot descends through a single wrapping directory, which release
// archives usually have.
func payloadRoot(dir string) string {
	if _, ok := binDirIn(dir); ok {
		return dir
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return dir
	}
	return filepath.Join(dir, entries[0].Name())
}
