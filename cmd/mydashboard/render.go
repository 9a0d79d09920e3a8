package main

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"mydashboard/internal/analysis"
	"mydashboard/internal/tables"
	"mydashboard/internal/ui"
	"mydashboard/internal/ui/textutil"
)

const maxCellWidth = 32

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(ui.Styles.Muted).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return ui.Styles.Section.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func renderListing(l tables.Listing) string {
	if l.Len() == 0 {
		return ui.Styles.Empty.Render("No tables yet.")
	}
	t := newTable().Headers("Name", "Origin", "Rows", "Columns")
	for _, rec := range l.All() {
		t.Row(rec.Name, rec.Collection.Origin(), strconv.Itoa(rec.Data.Len()), strconv.Itoa(len(rec.Data.Columns)))
	}
	return t.String()
}

// renderRecord prints up to limit rows of rec; limit 0 prints all.
func renderRecord(rec tables.Record, limit int) string {
	var b strings.Builder
	b.WriteString(ui.Styles.Title.Render(rec.Name))
	b.WriteString(ui.Styles.Muted.Render("  " + rec.Collection.Origin() + ", " + plural(rec.Data.Len(), "row")))
	b.WriteString("\n")
	if len(rec.Data.Columns) == 0 {
		b.WriteString(ui.Styles.Empty.Render("This table has no columns."))
		return b.String()
	}
	n := rec.Data.Len()
	if limit > 0 && n > limit {
		n = limit
	}
	t := newTable().Headers(rec.Data.Columns...)
	for r := range n {
		cells := make([]string, len(rec.Data.Columns))
		for c, col := range rec.Data.Columns {
			cells[c] = textutil.Truncate(rec.Data.Text(r, col), maxCellWidth)
		}
		t.Row(cells...)
	}
	b.WriteString(t.String())
	if n < rec.Data.Len() {
		b.WriteString("\n" + ui.Styles.Hint.Render(plural(rec.Data.Len()-n, "more row")+" not shown"))
	}
	return b.String()
}

func renderResults(results []analysis.Result) string {
	sections := make([]string, 0, len(results))
	for _, r := range results {
		body := r.Text
		if r.Err != nil {
			body = ui.Styles.Error.Render(r.Text)
		}
		sections = append(sections, ui.Styles.Section.Render(r.Title)+"\n"+body)
	}
	return strings.Join(sections, "\n\n")
}
