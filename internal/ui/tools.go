package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"mydashboard/internal/analysis"
)

// ToolsModal picks analysis tools to run on the open table. x or space
// toggles a tool, a toggles all, enter runs the checked tools or the one
// under the cursor when none is checked.
type ToolsModal struct {
	tools   []analysis.Tool
	checked map[analysis.Tool]bool
	cursor  int
}

// Ensure ToolsModal implements View.
var _ View = (*ToolsModal)(nil)

// NewToolsModal lists every analysis tool.
func NewToolsModal() *ToolsModal {
	return &ToolsModal{tools: analysis.All(), checked: make(map[analysis.Tool]bool)}
}

// Chosen returns the tools enter would run, in menu order.
func (m *ToolsModal) Chosen() []analysis.Tool {
	var out []analysis.Tool
	for _, t := range m.tools {
		if m.checked[t] {
			out = append(out, t)
		}
	}
	if len(out) == 0 && m.cursor < len(m.tools) {
		out = []analysis.Tool{m.tools[m.cursor]}
	}
	return out
}

// Init implements View.
func (m *ToolsModal) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (m *ToolsModal) Update(msg tea.Msg) (View, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "esc":
		return m, func() tea.Msg { return DismissModalMsg{} }
	case "j", "down":
		m.cursor = min(m.cursor+1, len(m.tools)-1)
	case "k", "up":
		m.cursor = max(m.cursor-1, 0)
	case "x", " ":
		t := m.tools[m.cursor]
		m.checked[t] = !m.checked[t]
	case "a":
		all := false
		for _, t := range m.tools {
			all = all || !m.checked[t]
		}
		for _, t := range m.tools {
			m.checked[t] = all
		}
	case "enter":
		chosen := m.Chosen()
		return m, func() tea.Msg { return RunToolsMsg{Tools: chosen} }
	}
	return m, nil
}

// View implements View.
func (m *ToolsModal) View() string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render("Analyze table") + "\n\n")
	for i, t := range m.tools {
		box := "[ ]"
		if m.checked[t] {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s", box, t)
		if i == m.cursor {
			b.WriteString(Styles.Selected.Render("> "+line) + "\n")
		} else {
			b.WriteString(Styles.Normal.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + Styles.Hint.Render("x: toggle  a: all  Enter: run  Esc: cancel"))
	return Styles.BoxCompact.Render(b.String())
}

// ResultsWindow shows analysis output with scrollback. Esc dismisses.
type ResultsWindow struct {
	Results  []analysis.Result
	viewport viewport.Model
}

// Ensure ResultsWindow implements View.
var _ View = (*ResultsWindow)(nil)

// NewResultsWindow renders results, one section per tool.
func NewResultsWindow(results []analysis.Result) *ResultsWindow {
	w := &ResultsWindow{Results: results, viewport: newWindowViewport()}
	w.viewport.SetContent(renderResults(results))
	return w
}

func renderResults(results []analysis.Result) string {
	sections := make([]string, 0, len(results))
	for _, r := range results {
		title := Styles.Section.Render(r.Title)
		body := r.Text
		if r.Err != nil {
			body = Styles.Error.Render(r.Text)
		}
		sections = append(sections, title+"\n"+body)
	}
	return strings.Join(sections, "\n\n")
}

// Init implements View.
func (w *ResultsWindow) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (w *ResultsWindow) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			return w, func() tea.Msg { return DismissModalMsg{} }
		}
	case tea.WindowSizeMsg:
		resizeWindow(&w.viewport, msg)
		w.viewport.SetContent(renderResults(w.Results))
		return w, nil
	}
	var cmd tea.Cmd
	w.viewport, cmd = w.viewport.Update(msg)
	return w, cmd
}

// View implements View.
func (w *ResultsWindow) View() string {
	header := Styles.Title.Render("Analysis") + Styles.Muted.Render("  j/k: scroll  Esc: close")
	return header + "\n" + w.viewport.View()
}
