package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// InputModal prompts for a single line of text.
type InputModal struct {
	Title string
	input textinput.Model
	// AllowEmpty lets enter submit a blank value (clearing a cell).
	AllowEmpty bool
	OnSubmit   func(value string) tea.Msg
}

// Ensure InputModal implements View.
var _ View = (*InputModal)(nil)

// NewInputModal creates a focused prompt pre-filled with value.
func NewInputModal(title, placeholder, value string, onSubmit func(string) tea.Msg) *InputModal {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Width = 40
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Focus()
	return &InputModal{Title: title, input: ti, OnSubmit: onSubmit}
}

// NewCellEditModal edits one grid cell. A blank value stores a null.
func NewCellEditModal(msg ShowEditCellMsg) *InputModal {
	m := NewInputModal("Edit "+msg.Column, "empty", msg.Value, func(v string) tea.Msg {
		return EditCellMsg{Row: msg.Row, Col: msg.Col, Column: msg.Column, Value: v}
	})
	m.AllowEmpty = true
	return m
}

// NewDraftNameModal asks for the name of a new manual table.
func NewDraftNameModal() *InputModal {
	return NewInputModal("Save table as", "table-name", "", func(v string) tea.Msg {
		return SaveDraftMsg{Name: v}
	})
}

// Value returns the current text.
func (m *InputModal) Value() string {
	return m.input.Value()
}

// Init implements View.
func (m *InputModal) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements View.
func (m *InputModal) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "enter":
			value := m.input.Value()
			if strings.TrimSpace(value) == "" && !m.AllowEmpty {
				return m, nil
			}
			if m.OnSubmit != nil {
				return m, func() tea.Msg { return m.OnSubmit(value) }
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements View.
func (m *InputModal) View() string {
	content := Styles.Title.Render(m.Title) + "\n\n"
	content += m.input.View() + "\n\n"
	content += Styles.Hint.Render("Enter: save  Esc: cancel")
	return Styles.Box.Render(content)
}
