package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

const maxValueWidth = 60

// Row is one label/value line of a panel.
type Row struct {
	Label string
	Value string
}

// PrintPanel renders rows as a bordered two column table under title.
// Values longer than maxValueWidth are truncated.
func PrintPanel(w io.Writer, title string, rows []Row) {
	s := newPanelStyles(w)

	labelWidth := 0
	for _, r := range rows {
		if n := lipgloss.Width(r.Label); n > labelWidth {
			labelWidth = n
		}
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			s.label.Width(labelWidth).Render(r.Label),
			s.sep.Render(" : "),
			s.value.Render(truncate(r.Value)),
		))
	}
	body := lipgloss.JoinVertical(lipgloss.Left, lines...)

	if title != "" {
		width := lipgloss.Width(body)
		if n := lipgloss.Width(title); n > width {
			width = n
		}
		body = lipgloss.JoinVertical(lipgloss.Left, s.title.Width(width).Render(title), body)
	}

	fmt.Fprintln(w, s.panel.Render(body))
}

func truncate(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if utf8.RuneCountInString(value) > maxValueWidth {
		value = string([]rune(value)[:maxValueWidth-3]) + "..."
	}
	return value
}
