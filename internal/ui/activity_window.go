package ui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mydashboard/internal/progress"
	"mydashboard/internal/ui/textutil"
)

const (
	defaultWindowWidth  = 70
	defaultWindowHeight = 18
	actionColumnWidth   = 16
)

// newWindowViewport is the scrollable frame shared by the activity and
// analysis windows.
func newWindowViewport() viewport.Model {
	vp := viewport.New(defaultWindowWidth, defaultWindowHeight)
	vp.Style = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1)
	return vp
}

// resizeWindow gives a window the terminal width and about half its height.
func resizeWindow(vp *viewport.Model, msg tea.WindowSizeMsg) {
	vp.Width = max(msg.Width-4, 40)
	vp.Height = max(msg.Height/2+4, 12)
}

// ActivityWindow lists what the session did, newest last, one line per
// action plus its metadata. Esc closes it.
type ActivityWindow struct {
	events   []progress.Event
	viewport viewport.Model
}

// Ensure ActivityWindow implements View.
var _ View = (*ActivityWindow)(nil)

// NewActivityWindow opens on a copy of the log, scrolled to the end.
func NewActivityWindow(events []progress.Event) *ActivityWindow {
	w := &ActivityWindow{events: events, viewport: newWindowViewport()}
	w.render()
	return w
}

// Init implements View.
func (w *ActivityWindow) Init() tea.Cmd {
	return nil
}

// Update implements View. A progress.Event appends to the window.
func (w *ActivityWindow) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case progress.Event:
		w.events = append(w.events, msg)
		w.render()
		return w, nil
	case tea.WindowSizeMsg:
		resizeWindow(&w.viewport, msg)
		w.render()
		return w, nil
	case tea.KeyMsg:
		if msg.String() == "esc" {
			return w, msgCmd(DismissModalMsg{})
		}
	}
	var cmd tea.Cmd
	w.viewport, cmd = w.viewport.Update(msg)
	return w, cmd
}

// View implements View.
func (w *ActivityWindow) View() string {
	return Styles.Title.Render("Activity") + Styles.Muted.Render("  j/k: scroll  Esc: close") + "\n" + w.viewport.View()
}

func (w *ActivityWindow) render() {
	if len(w.events) == 0 {
		w.viewport.SetContent(Styles.Empty.Render("Nothing has happened yet."))
		return
	}
	var lines []string
	for _, ev := range w.events {
		lines = append(lines, formatEvent(ev)...)
	}
	w.viewport.SetContent(strings.Join(lines, "\n"))
	w.viewport.GotoBottom()
}

func formatEvent(ev progress.Event) []string {
	head := fmt.Sprintf("[%s] %s %s", ev.Timestamp.Format("15:04:05"), statusIcon(ev.Status),
		textutil.PadRightVisual(ev.Message, actionColumnWidth))
	lines := []string{head}
	for _, k := range slices.Sorted(maps.Keys(ev.Metadata)) {
		detail := fmt.Sprintf("      %s: %s", k, ev.Metadata[k])
		if k == "error" {
			detail = Styles.Error.Render(detail)
		}
		lines = append(lines, detail)
	}
	return lines
}

func statusIcon(s progress.Status) string {
	switch s {
	case progress.StatusRunning:
		return "●"
	case progress.StatusDone:
		return "✓"
	case progress.StatusError:
		return "✗"
	case progress.StatusAborted:
		return "⊘"
	}
	return "•"
}
