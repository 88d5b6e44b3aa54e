package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	statusStyles = map[string]lipgloss.Style{
		StatusInstalled:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusCached:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusInstalling: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		StatusPending:    lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
