package dashboard

import "github.com/charmbracelet/lipgloss"

type styles struct {
	panel     lipgloss.Style
	title     lipgloss.Style
	degraded  lipgloss.Style
	primary   lipgloss.Style
	secondary lipgloss.Style
	footer    lipgloss.Style
	empty     lipgloss.Style
}

func newStyles(width int) styles {
	return styles{
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("244")).
			Padding(0, 1).
			Width(width),
		title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		degraded:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		primary:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		secondary: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		footer:    lipgloss.NewStyle().Faint(true),
		empty:     lipgloss.NewStyle().Faint(true),
	}
}
