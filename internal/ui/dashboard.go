package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"mydashboard/internal/tables"
)

// tableItem implements list.Item for a stored table.
type tableItem struct {
	tables.Record
}

func (t tableItem) FilterValue() string { return t.Name }
func (t tableItem) Title() string {
	return fmt.Sprintf("%s  %s, %d rows, %d columns",
		t.Name, t.Collection.Origin(), t.Data.Len(), len(t.Data.Columns))
}
func (t tableItem) Description() string { return "" }

// DashboardView lists the user's tables, uploads first.
type DashboardView struct {
	list   list.Model
	Tables []tables.Record
}

// Ensure DashboardView implements View.
var _ View = (*DashboardView)(nil)

// NewDashboardView creates an empty dashboard. Tables arrive via SetListing.
func NewDashboardView() *DashboardView {
	l := list.New(nil, NewCompactListDelegate(), 80, 20)
	l.Title = "Tables"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.DisableQuitKeybindings()
	return &DashboardView{list: l}
}

// SetListing replaces the list, keeping the cursor on the same table when
// it still exists.
func (d *DashboardView) SetListing(l tables.Listing) {
	var keep *tables.Ref
	if rec, ok := d.Selected(); ok {
		ref := rec.Ref()
		keep = &ref
	}
	d.Tables = l.All()
	items := make([]list.Item, len(d.Tables))
	for i, rec := range d.Tables {
		items[i] = tableItem{Record: rec}
	}
	d.list.SetItems(items)
	d.list.Select(0)
	if keep == nil {
		return
	}
	for i, rec := range d.Tables {
		if rec.Ref() == *keep {
			d.list.Select(i)
			return
		}
	}
}

// Selected returns the table under the cursor.
func (d *DashboardView) Selected() (tables.Record, bool) {
	i := d.list.Index()
	if i < 0 || i >= len(d.Tables) {
		return tables.Record{}, false
	}
	return d.Tables[i], true
}

// Init implements View.
func (d *DashboardView) Init() tea.Cmd {
	return nil
}

// Update implements View.
func (d *DashboardView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.list.SetWidth(msg.Width)
		d.list.SetHeight(msg.Height - 6) // Reserve space for header, hint and status
		return d, nil
	case tea.KeyMsg:
		if msg.String() == "enter" {
			if rec, ok := d.Selected(); ok {
				ref := rec.Ref()
				return d, func() tea.Msg { return SelectTableMsg{Ref: ref} }
			}
			return d, nil
		}
	}

	// list.Model handles j/k/g/G navigation natively.
	var cmd tea.Cmd
	d.list, cmd = d.list.Update(msg)
	return d, cmd
}

// View implements View.
func (d *DashboardView) View() string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render(fmt.Sprintf("Tables (%d)", len(d.Tables))) + "\n")
	b.WriteString(Styles.Hint.Render("Enter: open  Press [SPC] for commands") + "\n\n")
	if len(d.Tables) == 0 {
		b.WriteString(Styles.Empty.Render("No tables yet. SPC t u uploads a spreadsheet, SPC t n creates one."))
		return b.String()
	}
	b.WriteString(d.list.View())
	return b.String()
}
