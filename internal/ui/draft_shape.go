package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"mydashboard/internal/tables"
)

// DraftShapeView asks for the size of a new manual table: a row count and
// comma separated column names.
type DraftShapeView struct {
	fields *fieldSet
	err    string
}

// Ensure DraftShapeView implements View.
var _ View = (*DraftShapeView)(nil)

// NewDraftShapeView creates the shape form.
func NewDraftShapeView() *DraftShapeView {
	rows := newField("rows", fmt.Sprintf("Rows (1-%d)", tables.MaxDraftRows), "5")
	rows.Input.CharLimit = 2
	cols := newField("columns", fmt.Sprintf("Columns, comma separated (up to %d)", tables.MaxDraftColumns), "name, amount")
	return &DraftShapeView{fields: newFieldSet(rows, cols)}
}

// Init implements View.
func (v *DraftShapeView) Init() tea.Cmd {
	return nil
}

// parse reads the form. Range checks are left to the draft itself.
func (v *DraftShapeView) parse() (ShapeDraftMsg, error) {
	n, err := strconv.Atoi(v.fields.Value("rows"))
	if err != nil {
		return ShapeDraftMsg{}, fmt.Errorf("rows must be a number")
	}
	var cols []string
	if raw := v.fields.Value("columns"); raw != "" {
		cols = strings.Split(raw, ",")
	}
	return ShapeDraftMsg{Rows: n, Columns: cols}, nil
}

// SetError shows a rejected shape under the form.
func (v *DraftShapeView) SetError(err error) {
	v.err = ""
	if err != nil {
		v.err = err.Error()
	}
}

// Update implements View.
func (v *DraftShapeView) Update(msg tea.Msg) (View, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return v, func() tea.Msg { return CancelGridMsg{} }
		case "enter":
			shape, err := v.parse()
			if err != nil {
				v.err = err.Error()
				return v, nil
			}
			return v, func() tea.Msg { return shape }
		}
	}
	return v, v.fields.Update(msg)
}

// View implements View.
func (v *DraftShapeView) View() string {
	var b strings.Builder
	b.WriteString(Styles.Title.Render("New table") + "\n\n")
	b.WriteString(v.fields.View())
	if v.err != "" {
		b.WriteString("\n\n" + Styles.Error.Render(v.err))
	}
	b.WriteString("\n\n" + Styles.Hint.Render("Tab: next field  Enter: continue  Esc: cancel"))
	return b.String()
}
