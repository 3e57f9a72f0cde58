package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonYellow  = lipgloss.Color("#FFFF00")
	dimWhite    = lipgloss.Color("#B0B0B0")
)

// panelStyles are bound to one renderer so color detection follows the
// writer a panel is printed to.
type panelStyles struct {
	panel lipgloss.Style
	title lipgloss.Style
	label lipgloss.Style
	sep   lipgloss.Style
	value lipgloss.Style
}

func newPanelStyles(w io.Writer) panelStyles {
	r := lipgloss.NewRenderer(w)
	if !colorEnabled {
		r.SetColorProfile(termenv.Ascii)
	}

	return panelStyles{
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonMagenta).
			Padding(0, 1),
		title: r.NewStyle().
			Foreground(neonMagenta).
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(dimWhite),
		label: r.NewStyle().
			Foreground(neonCyan).
			Bold(true),
		sep: r.NewStyle().
			Foreground(dimWhite),
		value: r.NewStyle().
			Foreground(neonYellow),
	}
}
