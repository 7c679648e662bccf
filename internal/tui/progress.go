package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const tickInterval = 120 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg time.Time

// RowUpdateMsg sets fields of the row with Key, by column header. An
// unknown key appends a row.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// WorkDoneMsg ends the program once the work function has returned.
type WorkDoneMsg struct{}

// Column is one table column. Width is a minimum; longer values are cut.
type Column struct {
	Header string
	Width  int
}

// Row is one toolchain being worked on.
type Row struct {
	Key      string
	Fields   []string
	started  time.Time
	finished time.Time
}

// ProgressModel renders one row per toolchain with its status and how long
// it has been running.
type ProgressModel struct {
	title   string
	columns []Column
	rows    []Row
	byKey   map[string]int
	status  int
	detail  int
	now     func() time.Time
	tick    int
	done    bool
}

// NewProgressModel builds an empty table. The STATUS column, when present,
// is coloured and drives the progress counter.
func NewProgressModel(title string, columns []Column) ProgressModel {
	m := ProgressModel{
		title:   title,
		columns: columns,
		byKey:   make(map[string]int),
		status:  -1,
		detail:  -1,
		now:     time.Now,
	}
	for i, c := range columns {
		switch strings.ToUpper(c.Header) {
		case ColStatus:
			m.status = i
		case ColDetail:
			m.detail = i
		}
	}
	return m
}

// AddRow appends a row before the program starts.
func (m *ProgressModel) AddRow(key string, fields []string) {
	row := Row{Key: key, Fields: make([]string, len(m.columns)), started: m.now()}
	copy(row.Fields, fields)
	m.byKey[key] = len(m.rows)
	m.rows = append(m.rows, row)
	m.markFinished(&m.rows[len(m.rows)-1])
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return scheduleTick()
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()
	case RowUpdateMsg:
		m.apply(msg)
	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *ProgressModel) apply(msg RowUpdateMsg) {
	idx, ok := m.byKey[msg.Key]
	if !ok {
		m.AddRow(msg.Key, nil)
		idx = len(m.rows) - 1
	}
	row := &m.rows[idx]
	for i, c := range m.columns {
		if v, ok := msg.Fields[c.Header]; ok {
			row.Fields[i] = v
		}
	}
	row.finished = time.Time{}
	m.markFinished(row)
}

func (m *ProgressModel) markFinished(row *Row) {
	if row.finished.IsZero() && IsFinalStatus(m.rowStatus(*row)) {
		row.finished = m.now()
	}
}

func (m ProgressModel) rowStatus(row Row) string {
	if m.status < 0 || m.status >= len(row.Fields) {
		return ""
	}
	return strings.TrimSpace(row.Fields[m.status])
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteByte('\n')
	}

	cells := make([]string, len(m.columns))
	for i, c := range m.columns {
		cells[i] = HeaderStyle.Render(pad(c.Header, m.width(i)))
	}
	b.WriteString(strings.Join(cells, "  "))
	b.WriteByte('\n')

	for _, row := range m.rows {
		for i := range m.columns {
			val := TruncateWithEllipsis(row.Fields[i], m.width(i))
			if i == m.status {
				cells[i] = StatusStyle(val).Render(pad(val, m.width(i)))
			} else {
				cells[i] = pad(val, m.width(i))
			}
		}
		b.WriteString(strings.Join(cells, "  "))
		b.WriteString("  " + DimStyle.Render(formatElapsed(m.elapsed(row))))
		b.WriteByte('\n')

		// Failures are shown in full under the row.
		if m.rowStatus(row) == "error" && m.detail >= 0 && len(row.Fields[m.detail]) > m.width(m.detail) {
			b.WriteString("    " + StatusStyle("error").Render(row.Fields[m.detail]))
			b.WriteByte('\n')
		}
	}

	if !m.done {
		finished, total := m.progressCounts()
		fmt.Fprintf(&b, "\n%s Working %d/%d", spinnerFrames[m.tick%len(spinnerFrames)], finished, total)
		if failed := m.failed(); failed > 0 {
			fmt.Fprintf(&b, ", %d failed", failed)
		}
		b.WriteString("...\n")
	}
	return b.String()
}

func (m ProgressModel) width(i int) int {
	return max(len(m.columns[i].Header), m.columns[i].Width)
}

func (m ProgressModel) elapsed(row Row) time.Duration {
	end := row.finished
	if end.IsZero() {
		end = m.now()
	}
	return end.Sub(row.started)
}

// progressCounts returns how many rows are in a final status, and how many
// rows there are.
func (m ProgressModel) progressCounts() (int, int) {
	finished := 0
	for _, row := range m.rows {
		if IsFinalStatus(m.rowStatus(row)) {
			finished++
		}
	}
	return finished, len(m.rows)
}

func (m ProgressModel) failed() int {
	n := 0
	for _, row := range m.rows {
		if m.rowStatus(row) == "error" {
			n++
		}
	}
	return n
}

// Done reports whether the program has been told to stop.
func (m ProgressModel) Done() bool {
	return m.done
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// NonEmptyOrDash returns "-" for blank values.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis cuts value to max bytes, ending in "..." when there
// is room for it.
func TruncateWithEllipsis(value string, max int) string {
	value = strings.TrimSpace(value)
	switch {
	case max <= 0:
		return ""
	case len(value) <= max:
		return value
	case max <= 3:
		return value[:max]
	default:
		return value[:max-3] + "..."
	}
}
