package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"mydashboard/internal/tables"
)

// TableView shows one stored table read-only.
type TableView struct {
	Record tables.Record
	table  table.Model
}

// Ensure TableView implements View.
var _ View = (*TableView)(nil)

// NewTableView creates an empty table view. The record arrives via SetRecord.
func NewTableView() *TableView {
	return &TableView{table: newTableModel()}
}

// SetRecord shows rec. The cursor is kept when rec is the table already
// shown.
func (v *TableView) SetRecord(rec tables.Record) {
	if rec.Ref() != v.Record.Ref() {
		v.table.SetCursor(0)
	}
	v.Record = rec
	load(&v.table, gridFromTable(rec.Data), -1)
}

// Init implements View.
func (v *TableView) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (v *TableView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.table.SetHeight(max(msg.Height-8, 3))
		v.table.SetWidth(msg.Width)
		return v, nil
	case tea.KeyMsg:
		if msg.String() == "esc" {
			return v, func() tea.Msg { return BackMsg{} }
		}
	}
	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	return v, cmd
}

// View implements View.
func (v *TableView) View() string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render(v.Record.Name))
	b.WriteString(Styles.Muted.Render(fmt.Sprintf("  %s, %d rows", v.Record.Collection.Origin(), v.Record.Data.Len())) + "\n")
	b.WriteString(Styles.Hint.Render("Esc: back  SPC t e: edit  SPC t d: delete  SPC a: analyze") + "\n\n")
	if len(v.Record.Data.Columns) == 0 {
		b.WriteString(Styles.Empty.Render("This table has no columns."))
		return b.String()
	}
	b.WriteString(v.table.View())
	return b.String()
}
