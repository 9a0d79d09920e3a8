package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// GridEditor edits a draft or a working copy cell by cell. h and l move
// between columns, j and k between rows.
type GridEditor struct {
	Title string
	// Draft is true when editing a new manual table. Drafts have a fixed
	// row count, so adding rows is disabled.
	Draft bool
	grid  grid
	col   int
	table table.Model
}

// Ensure GridEditor implements View.
var _ View = (*GridEditor)(nil)

// NewGridEditor creates an empty editor.
func NewGridEditor() *GridEditor {
	return &GridEditor{table: newTableModel()}
}

// SetGrid replaces the content, keeping the cursor where possible.
func (e *GridEditor) SetGrid(title string, draft bool, g grid) {
	e.Title = title
	e.Draft = draft
	e.grid = g
	if e.col >= len(g.Columns) {
		e.col = max(len(g.Columns)-1, 0)
	}
	load(&e.table, g, e.col)
}

// Cursor returns the row and column under the cursor.
func (e *GridEditor) Cursor() (row, col int) {
	return e.table.Cursor(), e.col
}

func (e *GridEditor) moveColumn(delta int) {
	n := len(e.grid.Columns)
	if n == 0 {
		return
	}
	e.col = min(max(e.col+delta, 0), n-1)
	load(&e.table, e.grid, e.col)
}

// Init implements View.
func (e *GridEditor) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (e *GridEditor) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.table.SetHeight(max(msg.Height-8, 3))
		e.table.SetWidth(msg.Width)
		return e, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "h", "left":
			e.moveColumn(-1)
			return e, nil
		case "l", "right":
			e.moveColumn(1)
			return e, nil
		case "enter", "i":
			row, col := e.Cursor()
			if row >= len(e.grid.Cells) || col >= len(e.grid.Columns) {
				return e, nil
			}
			show := ShowEditCellMsg{Row: row, Col: col, Column: e.grid.Columns[col], Value: e.grid.cell(row, col)}
			return e, func() tea.Msg { return show }
		case "o":
			if e.Draft {
				return e, nil
			}
			return e, func() tea.Msg { return AddRowMsg{} }
		case "ctrl+s":
			return e, func() tea.Msg { return SaveGridMsg{} }
		case "esc":
			return e, func() tea.Msg { return CancelGridMsg{} }
		}
	}
	var cmd tea.Cmd
	e.table, cmd = e.table.Update(msg)
	return e, cmd
}

// View implements View.
func (e *GridEditor) View() string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render(e.Title))
	if len(e.grid.Columns) > 0 {
		row, col := e.Cursor()
		b.WriteString(Styles.Muted.Render(fmt.Sprintf("  row %d, %s", row+1, e.grid.Columns[col])))
	}
	b.WriteString("\n")
	hint := "h/l: column  Enter: edit cell  Ctrl+S: save  Esc: cancel"
	if !e.Draft {
		hint = "h/l: column  Enter: edit cell  o: add row  Ctrl+S: save  Esc: discard"
	}
	b.WriteString(Styles.Hint.Render(hint) + "\n\n")
	if len(e.grid.Cells) == 0 {
		b.WriteString(Styles.Empty.Render("No rows. Press o to add one."))
		return b.String()
	}
	b.WriteString(e.table.View())
	return b.String()
}
