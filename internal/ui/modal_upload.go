package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// UploadModal asks for a spreadsheet path and an optional table name.
type UploadModal struct {
	fields *fieldSet
	err    string
}

// Ensure UploadModal implements View.
var _ View = (*UploadModal)(nil)

// NewUploadModal creates an upload prompt with the path focused.
func NewUploadModal() *UploadModal {
	return &UploadModal{fields: newFieldSet(
		newField("path", "File (.xlsx or .csv)", "~/data/sales.xlsx"),
		newField("name", "Table name (defaults to file name)", ""),
	)}
}

// Init implements View.
func (m *UploadModal) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (m *UploadModal) Update(msg tea.Msg) (View, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return m, func() tea.Msg { return DismissModalMsg{} }
		case "enter":
			path := m.fields.Value("path")
			if path == "" {
				m.err = "a file path is required"
				return m, nil
			}
			name := m.fields.Value("name")
			return m, func() tea.Msg { return UploadMsg{Path: path, Name: name} }
		}
	}
	m.err = ""
	return m, m.fields.Update(msg)
}

// View implements View.
func (m *UploadModal) View() string {
	content := Styles.Title.Render("Upload spreadsheet") + "\n\n"
	content += m.fields.View()
	if m.err != "" {
		content += "\n\n" + Styles.Error.Render(m.err)
	}
	content += "\n\n" + Styles.Hint.Render("Tab: next field  Enter: upload  Esc: cancel")
	return Styles.Box.Render(content)
}
