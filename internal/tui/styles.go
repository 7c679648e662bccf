package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// TitleStyle styles the line above a progress table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	// ActiveStyle highlights the active toolchain in listings.
	ActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))

	// DimStyle de-emphasises secondary text such as install locations.
	DimStyle = lipgloss.NewStyle().Faint(true)

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"installed": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"removed":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		"resolving":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"downloading": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"installing":  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"removing":    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		// Skipped / warning
		"skipped": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Error
		"error": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		// Pending
		"pending": lipgloss.NewStyle().Faint(true),
	}

	finalStatuses = map[string]bool{
		"installed": true,
		"removed":   true,
		"skipped":   true,
		"error":     true,
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// IsFinalStatus reports whether a row in this status needs no more work.
func IsFinalStatus(status string) bool {
	return finalStatuses[status]
}
