package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// field is one labelled text input in a fieldSet.
type field struct {
	ID    string
	Label string
	Input textinput.Model
}

// fieldSet is a column of text inputs; tab and shift+tab move focus.
type fieldSet struct {
	fields []*field
	focus  FocusManager
}

func newFieldSet(fields ...*field) *fieldSet {
	fs := &fieldSet{fields: fields}
	for _, f := range fields {
		fs.focus.Order = append(fs.focus.Order, f.ID)
	}
	fs.focus.OnChange = func(from, to string) {
		if f := fs.get(from); f != nil {
			f.Input.Blur()
		}
		if f := fs.get(to); f != nil {
			f.Input.Focus()
		}
	}
	if len(fields) > 0 {
		fs.focus.SetFocus(fields[0].ID)
		fields[0].Input.Focus()
	}
	return fs
}

func newField(id, label, placeholder string) *field {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Width = 40
	return &field{ID: id, Label: label, Input: ti}
}

func (fs *fieldSet) get(id string) *field {
	for _, f := range fs.fields {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// Value returns the trimmed text of the field with id.
func (fs *fieldSet) Value(id string) string {
	if f := fs.get(id); f != nil {
		return strings.TrimSpace(f.Input.Value())
	}
	return ""
}

// Focused returns the id of the focused field.
func (fs *fieldSet) Focused() string {
	return fs.focus.Current
}

// Update handles focus keys and forwards everything else to the focused
// input.
func (fs *fieldSet) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab", "down":
			fs.focus.Next()
			return nil
		case "shift+tab", "up":
			fs.focus.Prev()
			return nil
		}
	}
	f := fs.get(fs.focus.Current)
	if f == nil {
		return nil
	}
	var cmd tea.Cmd
	f.Input, cmd = f.Input.Update(msg)
	return cmd
}

func (fs *fieldSet) View() string {
	var b strings.Builder
	for i, f := range fs.fields {
		label := Styles.Muted.Render(f.Label)
		if f.ID == fs.focus.Current {
			label = Styles.Section.Render(f.Label)
		}
		b.WriteString(label + "\n" + f.Input.View())
		if i < len(fs.fields)-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
