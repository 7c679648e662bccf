package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tcm/internal/config"
	"tcm/internal/lockfile"
	"tcm/internal/paths"
	"tcm/internal/platform"
	"tcm/internal/state"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the tcm installation",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string
	Status  string // "ok", "warning", "error"
	Summary string
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	home, err := paths.Resolve(homeDir)
	if err != nil {
		return err
	}

	var checks []healthCheck

	checks = append(checks, checkHome(home))

	settings, settingsErr := config.Load(home.SettingsFile)
	checks = append(checks, checkSettings(home, settings, settingsErr))
	if settingsErr != nil {
		return writeDoctorResult(cmd, home.Root, checks)
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, recordErr := a.store.Load()
	checks = append(checks, checkRecord(cfg, recordErr))
	checks = append(checks, checkProxies(home, proxyCommands, os.Getenv("PATH")))
	checks = append(checks, checkLock(home.LockFile, platform.ProcessProber{}))

	if recordErr == nil {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		res, err := a.manager(nil, nil, nil).Active(cwd, nil)
		if err != nil {
			checks = append(checks, healthCheck{Name: "Active", Status: "error", Summary: err.Error()})
		} else {
			checks = append(checks, healthCheck{Name: "Active", Status: "ok", Summary: res.Version.Name() + " " + res.Describe()})
		}
	}

	return writeDoctorResult(cmd, home.Root, checks)
}

func checkHome(home paths.Home) healthCheck {
	exists, err := paths.DirExists(home.Root)
	if err != nil {
		return healthCheck{Name: "Home", Status: "error", Summary: err.Error()}
	}
	if !exists {
		return healthCheck{Name: "Home", Status: "error", Summary: "missing; run `tcm init`"}
	}
	return healthCheck{Name: "Home", Status: "ok", Summary: home.Root}
}

func checkSettings(home paths.Home, cfg config.Config, loadErr error) healthCheck {
	if loadErr != nil {
		return healthCheck{Name: "Settings", Status: "error", Summary: loadErr.Error()}
	}
	exists, _ := paths.FileExists(home.SettingsFile)
	if !exists {
		return healthCheck{Name: "Settings", Status: "warning", Summary: "no settings.yaml; using defaults"}
	}
	return healthCheck{Name: "Settings", Status: "ok", Summary: fmt.Sprintf("log level %s, catalog %s", cfg.LogLevel, cfg.Catalog.BaseURL)}
}

func checkRecord(cfg *state.Config, loadErr error) healthCheck {
	if errors.Is(loadErr, state.ErrNotInitialized) {
		return healthCheck{Name: "Record", Status: "error", Summary: "not initialized; run `tcm init`"}
	}
	if loadErr != nil {
		return healthCheck{Name: "Record", Status: "error", Summary: loadErr.Error()}
	}
	return healthCheck{
		Name:    "Record",
		Status:  "ok",
		Summary: fmt.Sprintf("%d toolchains on %s", len(cfg.InstalledToolchains), cfg.Platform.NamePretty),
	}
}

func checkProxies(home paths.Home, names []string, pathList string) healthCheck {
	var missing []string
	for _, name := range names {
		if _, err := os.Lstat(filepath.Join(home.BinDir, platform.ExecutableName(name))); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return healthCheck{Name: "Proxies", Status: "warning", Summary: "missing " + strings.Join(missing, ", ") + "; run `tcm init`"}
	}
	if !onPath(home.BinDir, pathList) {
		return healthCheck{Name: "Proxies", Status: "warning", Summary: home.BinDir + " is not on PATH"}
	}
	return healthCheck{Name: "Proxies", Status: "ok", Summary: strings.Join(names, ", ")}
}

func checkLock(path string, prober lockfile.Prober) healthCheck {
	pid := lockfile.ReadOwner(path)
	if pid == 0 {
		if exists, _ := paths.FileExists(path); !exists {
			return healthCheck{Name: "Lock", Status: "ok", Summary: "free"}
		}
		return healthCheck{Name: "Lock", Status: "warning", Summary: "held by an unknown process"}
	}
	alive, err := prober.Alive(pid)
	if err != nil || alive {
		return healthCheck{Name: "Lock", Status: "warning", Summary: fmt.Sprintf("held by pid %d", pid)}
	}
	return healthCheck{Name: "Lock", Status: "warning", Summary: fmt.Sprintf("stale, left by pid %d; it is reclaimed on the next change", pid)}
}

func writeDoctorResult(cmd *cobra.Command, root string, checks []healthCheck) error {
	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("TCM HEALTH:")+" "+root)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-10s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}
