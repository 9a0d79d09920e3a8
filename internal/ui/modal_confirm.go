package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mydashboard/internal/tables"
)

// ConfirmModal guards an action that cannot be undone. y or enter sends
// the confirm message; esc or n backs out.
type ConfirmModal struct {
	Title   string
	Lines   []string
	Warning string
	// Record is the table the action applies to.
	Record  tables.Record
	confirm tea.Msg
}

// Ensure ConfirmModal implements View.
var _ View = (*ConfirmModal)(nil)

// NewDeleteTableConfirmModal asks before deleting rec.
func NewDeleteTableConfirmModal(rec tables.Record) *ConfirmModal {
	lines := []string{fmt.Sprintf("Table: %s (%s)", rec.Name, rec.Collection.Origin())}
	if len(rec.Data.Columns) > 0 {
		lines = append(lines, "Columns: "+strings.Join(rec.Data.Columns, ", "))
	}
	return &ConfirmModal{
		Title:   "Delete table?",
		Lines:   lines,
		Warning: fmt.Sprintf("%d rows will be deleted permanently", rec.Data.Len()),
		Record:  rec,
		confirm: ConfirmDeleteMsg{},
	}
}

// Init implements View.
func (m *ConfirmModal) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (m *ConfirmModal) Update(msg tea.Msg) (View, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "esc", "n":
		return m, msgCmd(DismissModalMsg{})
	case "enter", "y":
		return m, msgCmd(m.confirm)
	}
	return m, nil
}

// View implements View.
func (m *ConfirmModal) View() string {
	var b strings.Builder
	b.WriteString(Styles.TitleWarning.Render(m.Title) + "\n\n")
	for _, l := range m.Lines {
		b.WriteString(Styles.Label.Render(l) + "\n")
	}
	if m.Warning != "" {
		b.WriteString(Styles.Details.Render(m.Warning) + "\n")
	}
	b.WriteString("\n" + Styles.Hint.Render("y/Enter: confirm  n/Esc: cancel"))
	return Styles.BoxDanger.Render(b.String())
}
