package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"tcm/internal/catalog"
	"tcm/internal/config"
	"tcm/internal/lockfile"
	"tcm/internal/logx"
	"tcm/internal/paths"
	"tcm/internal/platform"
	"tcm/internal/proxy"
	"tcm/internal/resolve"
	"tcm/internal/state"
	"tcm/internal/tools"
)

// app holds the collaborators shared by every command of one invocation.
type app struct {
	home     paths.Home
	settings config.Config
	logger   *slog.Logger
	closer   io.Closer
	store    *state.Store
	platform *platform.Local
	resolver *resolve.Resolver
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func loadApp() (*app, error) {
	home, err := paths.Resolve(homeDir)
	if err != nil {
		return nil, err
	}
	settings, err := config.Load(home.SettingsFile)
	if err != nil {
		return nil, err
	}

	var closer io.Closer = nopCloser{}
	logger, logCloser, err := logx.New(home, settings.LogLevel)
	if err != nil {
		logger = logx.Discard()
	} else {
		closer = logCloser
	}

	return &app{
		home:     home,
		settings: settings,
		logger:   logger,
		closer:   closer,
		store:    state.NewStore(home.ConfigFile, Version, logger),
		platform: platform.NewLocal(home.ToolchainsDir, logger),
		resolver: &resolve.Resolver{
			MarkerFile:     settings.MarkerFile,
			ProjectMarkers: settings.ProjectMarkers,
		},
	}, nil
}

func (a *app) Close() error {
	return a.closer.Close()
}

func (a *app) lockOptions() lockfile.Options {
	opts := lockfile.Options{
		Timeout:      a.settings.Lock.Timeout,
		PollInterval: a.settings.Lock.PollInterval,
		Logger:       a.logger,
	}
	if a.settings.Lock.ReclaimStaleValue() {
		opts.Prober = platform.ProcessProber{}
	}
	return opts
}

// catalog builds a catalog client for the platform recorded at init.
func (a *app) catalog() (*catalog.Client, error) {
	cfg, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	def := cfg.Platform
	if def.Architecture == "" {
		def.Architecture = platform.Architecture(runtime.GOARCH)
	}
	return catalog.New(catalog.Options{
		BaseURL:   a.settings.Catalog.BaseURL,
		Timeout:   a.settings.Catalog.Timeout,
		Platform:  def,
		UserAgent: binaryName + "/" + Version,
		CacheFile: a.home.CatalogCache,
		CacheTTL:  a.settings.Catalog.CacheTTL,
		Logger:    a.logger,
	}), nil
}

// manager wires a tools.Manager. The catalog is only built when needed, so
// commands that never touch the network work without one.
func (a *app) manager(cat tools.Catalog, reporter tools.Reporter, confirmer tools.Confirmer) *tools.Manager {
	return tools.NewManager(tools.Deps{
		Store:       a.store,
		Platform:    a.platform,
		Catalog:     cat,
		Resolver:    a.resolver,
		LockPath:    a.home.LockFile,
		LockOptions: a.lockOptions(),
		DownloadDir: a.home.DownloadsDir,
		Reporter:    reporter,
		Confirmer:   confirmer,
		Logger:      a.logger,
	})
}

func (a *app) dispatcher() *proxy.Dispatcher {
	return &proxy.Dispatcher{
		Toolchains:  a.manager(nil, nil, nil),
		Platform:    a.platform,
		DispatchDir: a.home.BinDir,
		Logger:      a.logger,
	}
}

// promptConfirmer asks on out and reads the answer from in.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm implements tools.Confirmer. Anything but y or yes declines.
func (c *promptConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
