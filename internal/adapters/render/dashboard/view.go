package dashboard

import (
	"strings"

	"github.com/bnema/dashd/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const (
	columns         = 2
	degradedMarker  = "*"
	emptyDashboard  = "No sources configured."
	staleFootnote   = "* showing last known value"
	defaultColWidth = 26
)

func renderView(panels []domain.Panel, opts Options, s styles) string {
	if len(panels) == 0 {
		return s.empty.Render(emptyDashboard)
	}

	rows := make([]string, 0, (len(panels)+columns-1)/columns)
	for start := 0; start < len(panels); start += columns {
		end := min(start+columns, len(panels))
		cells := make([]string, 0, columns)
		for _, p := range panels[start:end] {
			cells = append(cells, renderPanel(p, s))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	if anyDegraded(panels) {
		rows = append(rows, s.footer.Render(staleFootnote))
	}
	if opts.Footer != "" {
		rows = append(rows, s.footer.Render(opts.Footer))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderPanel(p domain.Panel, s styles) string {
	title := s.title.Render(p.Title)
	if p.Degraded {
		title += " " + s.degraded.Render(degradedMarker)
	}

	lines := []string{title, s.primary.Render(p.Primary)}
	if strings.TrimSpace(p.Secondary) != "" {
		lines = append(lines, s.secondary.Render(p.Secondary))
	} else {
		lines = append(lines, "")
	}

	return s.panel.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func anyDegraded(panels []domain.Panel) bool {
	for _, p := range panels {
		if p.Degraded {
			return true
		}
	}
	return false
}
