package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func send(m ProgressModel, msg tea.Msg) ProgressModel {
	updated, _ := m.Update(msg)
	return updated.(ProgressModel)
}

func toolchainModel(clock *fakeClock) ProgressModel {
	m := NewProgressModel("Installing", ToolchainColumns())
	m.now = clock.now
	return m
}

func step(key, status, detail string) RowUpdateMsg {
	return RowUpdateMsg{Key: key, Fields: map[string]string{ColToolchain: key, ColStatus: status, ColDetail: detail}}
}

func TestRowUpdateMsg_UpdatesOnlyNamedFields(t *testing.T) {
	m := toolchainModel(newFakeClock())
	m.AddRow("5.9", []string{"5.9", "pending", "queued"})
	m.AddRow("5.10", []string{"5.10", "pending", "queued"})

	m = send(m, RowUpdateMsg{Key: "5.9", Fields: map[string]string{ColStatus: "downloading"}})

	if got := m.rows[0].Fields; got[1] != "downloading" || got[2] != "queued" {
		t.Errorf("unexpected first row %q", got)
	}
	if got := m.rows[1].Fields[1]; got != "pending" {
		t.Errorf("expected second row untouched, got %q", got)
	}
}

func TestRowUpdateMsg_UnknownKeyAddsRow(t *testing.T) {
	m := toolchainModel(newFakeClock())
	m = send(m, step("latest", "resolving", ""))
	m = send(m, step("5.10.1", "removing", ""))

	if len(m.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.rows))
	}
	if m.rows[1].Key != "5.10.1" || m.rows[1].Fields[1] != "removing" {
		t.Errorf("unexpected appended row %+v", m.rows[1])
	}
}

func TestElapsedFreezesAtFinalStatus(t *testing.T) {
	clock := newFakeClock()
	m := toolchainModel(clock)

	m = send(m, step("5.10", "downloading", ""))
	clock.advance(3 * time.Second)
	if got := m.elapsed(m.rows[0]); got != 3*time.Second {
		t.Fatalf("expected 3s while running, got %s", got)
	}

	m = send(m, step("5.10", "installed", "5.10.1"))
	clock.advance(time.Minute)
	if got := m.elapsed(m.rows[0]); got != 3*time.Second {
		t.Errorf("expected elapsed to stop at 3s, got %s", got)
	}
	if !strings.Contains(m.View(), "3.0s") {
		t.Errorf("expected elapsed time in view:\n%s", m.View())
	}
}

func TestProgressCounts(t *testing.T) {
	m := toolchainModel(newFakeClock())
	m = send(m, step("5.8.1", "removed", ""))
	m = send(m, step("5.9.2", "removing", ""))
	m = send(m, step("5.10.1", "error", "permission denied"))
	m = send(m, step("6.0.0", "skipped", "not installed"))

	finished, total := m.progressCounts()
	if finished != 3 || total != 4 {
		t.Errorf("expected 3/4, got %d/%d", finished, total)
	}
	if m.failed() != 1 {
		t.Errorf("expected 1 failure, got %d", m.failed())
	}
	view := m.View()
	if !strings.Contains(view, "Working 3/4, 1 failed...") {
		t.Errorf("unexpected footer:\n%s", view)
	}
}

func TestView(t *testing.T) {
	m := toolchainModel(newFakeClock())
	m = send(m, step("5.10", "downloading", "5.10.1"))
	view := m.View()

	for _, want := range []string{"Installing", ColToolchain, ColStatus, ColDetail, "5.10", "downloading", "5.10.1", "Working 0/1..."} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q:\n%s", want, view)
		}
	}
}

func TestView_LongErrorShownInFull(t *testing.T) {
	m := toolchainModel(newFakeClock())
	long := "download https://download.swift.org/swift-5.10.1-release/ubuntu2404/swift-5.10.1-RELEASE-ubuntu24.04.tar.gz: connection reset by peer"
	m = send(m, step("5.10", "error", long))

	lines := strings.Split(m.View(), "\n")
	var row, full bool
	for _, line := range lines {
		if strings.Contains(line, "...") && strings.Contains(line, "5.10") {
			row = true
		}
		if strings.Contains(line, long) {
			full = true
		}
	}
	if !row || !full {
		t.Errorf("expected truncated row and full error line:\n%s", strings.Join(lines, "\n"))
	}
}

func TestWorkDoneMsg(t *testing.T) {
	m := toolchainModel(newFakeClock())
	m = send(m, step("5.10", "installed", ""))

	updated, cmd := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)
	if !m.Done() {
		t.Error("expected Done() after WorkDoneMsg")
	}
	if cmd == nil {
		t.Error("expected tea.Quit")
	}
	if strings.Contains(m.View(), "Working") {
		t.Error("expected no footer once done")
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := toolchainModel(newFakeClock())

	updated, cmd := m.Update(tickMsg(time.Now()))
	m = updated.(ProgressModel)
	if m.tick != 1 || cmd == nil {
		t.Fatalf("expected tick 1 and another tick scheduled, got tick %d, scheduled %t", m.tick, cmd != nil)
	}

	m = send(m, WorkDoneMsg{})
	if _, cmd := m.Update(tickMsg(time.Now())); cmd != nil {
		t.Error("expected no tick after done")
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"5.10.1", 10, "5.10.1"},
		{"main-snapshot-2024-06-01", 10, "main-sn..."},
		{"5.10.1", 3, "5.1"},
		{"  5.9  ", 5, "5.9"},
		{"5.10.1", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncateWithEllipsis(tt.input, tt.max); got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

func TestNonEmptyOrDash(t *testing.T) {
	if got := NonEmptyOrDash("  "); got != "-" {
		t.Errorf("got %q, want -", got)
	}
	if got := NonEmptyOrDash(" 5.10 "); got != "5.10" {
		t.Errorf("got %q, want 5.10", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := map[time.Duration]string{
		850 * time.Millisecond:        "850ms",
		4200 * time.Millisecond:       "4.2s",
		37 * time.Second:              "37s",
		2*time.Minute + 5*time.Second: "2m05s",
	}
	for d, want := range tests {
		if got := formatElapsed(d); got != want {
			t.Errorf("formatElapsed(%s) = %q, want %q", d, got, want)
		}
	}
}
