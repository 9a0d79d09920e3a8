package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// Palette (ANSI 256).
const (
	ColorAccent    = "86"
	ColorHighlight = "205"
	ColorDanger    = "196"
	ColorWarning   = "208"
	ColorMuted     = "241"
	ColorText      = "252"
)

func box(border string, vpad, hpad int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Padding(vpad, hpad).
		Margin(1)
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Styles is shared by every screen, modal and the headless renderers.
var Styles = struct {
	Title        lipgloss.Style
	TitleWarning lipgloss.Style
	Section      lipgloss.Style

	// Modal boxes.
	Box        lipgloss.Style
	BoxDanger  lipgloss.Style
	BoxCompact lipgloss.Style

	Selected lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Hint     lipgloss.Style
	Empty    lipgloss.Style
	Label    lipgloss.Style

	// Status line.
	Status  lipgloss.Style
	Error   lipgloss.Style
	Details lipgloss.Style
}{
	Title:        fg(ColorAccent).Bold(true),
	TitleWarning: fg(ColorDanger).Bold(true),
	Section:      fg(ColorHighlight),

	Box:        box(ColorHighlight, 1, 2),
	BoxDanger:  box(ColorDanger, 1, 2),
	BoxCompact: box(ColorHighlight, 0, 1),

	Selected: fg(ColorHighlight).Bold(true),
	Normal:   fg(ColorText),
	Muted:    fg(ColorMuted),
	Hint:     fg(ColorMuted),
	Empty:    fg(ColorMuted).Italic(true),
	Label:    lipgloss.NewStyle(),

	Status:  fg(ColorAccent),
	Error:   fg(ColorDanger),
	Details: fg(ColorWarning),
}

// NewCompactListDelegate renders one line per item with no gaps.
func NewCompactListDelegate() list.DefaultDelegate {
	d := list.NewDefaultDelegate()
	d.SetSpacing(0)
	d.ShowDescription = false
	d.Styles.SelectedTitle = Styles.Selected.Padding(0, 0, 0, 1)
	d.Styles.NormalTitle = Styles.Normal.Padding(0, 0, 0, 1)
	return d
}
