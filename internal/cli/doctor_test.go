package cli

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"tcm/internal/config"
	"tcm/internal/logx"
	"tcm/internal/paths"
	"tcm/internal/state"
)

type stubProber struct {
	alive bool
	err   error
}

func (p stubProber) Alive(int) (bool, error) { return p.alive, p.err }

func TestCheckSettingsWithError(t *testing.T) {
	home, _ := paths.Resolve(t.TempDir())
	result := checkSettings(home, config.Config{}, errors.New("invalid settings"))

	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
	if result.Name != "Settings" {
		t.Errorf("got name=%q, want Settings", result.Name)
	}
}

func TestCheckSettingsMissingFile(t *testing.T) {
	home, _ := paths.Resolve(t.TempDir())
	result := checkSettings(home, config.Default(), nil)

	if result.Status != "warning" {
		t.Errorf("got status=%q, want warning", result.Status)
	}
}

func TestCheckRecord(t *testing.T) {
	if got := checkRecord(nil, state.ErrNotInitialized); got.Status != "error" || got.Summary != "not initialized; run `tcm init`" {
		t.Errorf("unexpected result %+v", got)
	}

	cfg := state.New(state.PlatformDefinition{Name: "ubuntu2404", NamePretty: "Ubuntu 24.04"})
	got := checkRecord(cfg, nil)
	if got.Status != "ok" || got.Summary != "0 toolchains on Ubuntu 24.04" {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestCheckLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcm.lock")

	if got := checkLock(path, stubProber{}); got.Status != "ok" {
		t.Errorf("missing lock: got %+v", got)
	}

	if err := os.WriteFile(path, []byte("4242\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := checkLock(path, stubProber{alive: true}); got.Summary != "held by pid 4242" {
		t.Errorf("live owner: got %+v", got)
	}
	if got := checkLock(path, stubProber{}); got.Status != "warning" || got.Summary == "held by pid 4242" {
		t.Errorf("dead owner: got %+v", got)
	}

	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := checkLock(path, stubProber{}); got.Summary != "held by an unknown process" {
		t.Errorf("unreadable owner: got %+v", got)
	}
}

func TestCheckProxies(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("proxy links need symlink support")
	}
	home, _ := paths.Resolve(t.TempDir())
	if err := home.EnsureDirs(); err != nil {
		t.Fatal(err)
	}

	if got := checkProxies(home, []string{"swift"}, ""); got.Status != "warning" || got.Summary != "missing swift; run `tcm init`" {
		t.Errorf("missing link: got %+v", got)
	}

	var created []string
	if err := ensureShims(home.BinDir, "/usr/bin/true", []string{"swift"}, &created, logx.Discard()); err != nil {
		t.Fatal(err)
	}
	if got := checkProxies(home, []string{"swift"}, "/usr/bin"); got.Status != "warning" {
		t.Errorf("bin dir off PATH: got %+v", got)
	}
	if got := checkProxies(home, []string{"swift"}, home.BinDir); got.Status != "ok" {
		t.Errorf("healthy: got %+v", got)
	}
}

func TestEnsureShimsReplacesStaleLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("proxy links need symlink support")
	}
	dir := t.TempDir()
	link := filepath.Join(dir, "swift")
	if err := os.Symlink("/old/tcm", link); err != nil {
		t.Fatal(err)
	}

	var created []string
	if err := ensureShims(dir, "/new/tcm", []string{"swift", "swiftc"}, &created, logx.Discard()); err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 {
		t.Fatalf("expected both links reported, got %v", created)
	}
	for _, name := range []string{"swift", "swiftc"} {
		target, err := os.Readlink(filepath.Join(dir, name))
		if err != nil || target != "/new/tcm" {
			t.Errorf("%s -> %q (%v), want /new/tcm", name, target, err)
		}
	}

	created = nil
	if err := ensureShims(dir, "/new/tcm", []string{"swift"}, &created, logx.Discard()); err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Errorf("expected no changes, got %v", created)
	}
}
