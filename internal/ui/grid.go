package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"mydashboard/internal/tables"
	"mydashboard/internal/ui/textutil"
)

const (
	minColumnWidth = 4
	maxColumnWidth = 24
	defaultHeight  = 15
)

// grid is the text of a table as the views render it.
type grid struct {
	Columns []string
	Cells   [][]string
}

func gridFromTable(t tables.Table) grid {
	g := grid{Columns: append([]string(nil), t.Columns...)}
	g.Cells = make([][]string, t.Len())
	for r := range t.Rows {
		row := make([]string, len(t.Columns))
		for c, col := range t.Columns {
			row[c] = t.Text(r, col)
		}
		g.Cells[r] = row
	}
	return g
}

func gridFromDraft(d *tables.Draft) grid {
	if d == nil {
		return grid{}
	}
	g := grid{Columns: d.Columns()}
	g.Cells = make([][]string, d.Rows())
	for r := range g.Cells {
		row := make([]string, len(g.Columns))
		for c := range g.Columns {
			row[c] = d.Cell(r, c)
		}
		g.Cells[r] = row
	}
	return g
}

func (g grid) cell(r, c int) string {
	if r < 0 || r >= len(g.Cells) || c < 0 || c >= len(g.Cells[r]) {
		return ""
	}
	return g.Cells[r][c]
}

// columns sizes each column to its widest cell within bounds. The header
// of column mark, when in range, is prefixed with a cursor.
func (g grid) columns(mark int) []table.Column {
	cols := make([]table.Column, len(g.Columns))
	for c, name := range g.Columns {
		cells := make([]string, len(g.Cells))
		for r := range g.Cells {
			cells[r] = g.cell(r, c)
		}
		title := name
		if c == mark {
			title = "▸" + name
		}
		cols[c] = table.Column{
			Title: title,
			Width: textutil.ColumnWidth(title, cells, minColumnWidth, maxColumnWidth),
		}
	}
	return cols
}

func (g grid) rows() []table.Row {
	rows := make([]table.Row, len(g.Cells))
	for r := range g.Cells {
		row := make(table.Row, len(g.Columns))
		for c := range g.Columns {
			row[c] = textutil.Truncate(g.cell(r, c), maxColumnWidth)
		}
		rows[r] = row
	}
	return rows
}

func newTableModel() table.Model {
	t := table.New(table.WithFocused(true), table.WithHeight(defaultHeight), table.WithWidth(defaultWindowWidth+10))
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(ColorMuted)).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color(ColorAccent))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(ColorHighlight)).
		Bold(true)
	t.SetStyles(s)
	return t
}

// load swaps the model's content. Rows are cleared first so no row is ever
// rendered against a column list of a different length.
func load(t *table.Model, g grid, mark int) {
	cursor := t.Cursor()
	t.SetRows(nil)
	t.SetColumns(g.columns(mark))
	t.SetRows(g.rows())
	if cursor >= len(g.Cells) {
		cursor = len(g.Cells) - 1
	}
	t.SetCursor(max(cursor, 0))
}
