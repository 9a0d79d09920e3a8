package tables

import (
	"fmt"
	"strings"
)

const (
	MaxDraftRows    = 50
	MaxDraftColumns = 20
)

// ValidationError rejects user input before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateColumns trims names and checks that each is non-empty and that no
// two are equal.
func ValidateColumns(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, &ValidationError{Field: "columns", Reason: "at least one column is required"}
	}
	out := make([]string, len(names))
	seen := make(map[string]int, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, &ValidationError{Field: "columns", Reason: fmt.Sprintf("column %d has an empty name", i+1)}
		}
		if j, dup := seen[n]; dup {
			return nil, &ValidationError{Field: "columns", Reason: fmt.Sprintf("columns %d and %d are both named %q", j+1, i+1, n)}
		}
		seen[n] = i
		out[i] = n
	}
	return out, nil
}

// Draft is an unsaved grid of text cells. It becomes a Table only on save.
type Draft struct {
	columns []string
	cells   [][]string
}

// NewDraft validates the shape and column names of a new draft.
func NewDraft(rows int, columns []string) (*Draft, error) {
	if rows < 1 || rows > MaxDraftRows {
		return nil, &ValidationError{Field: "rows", Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxDraftRows, rows)}
	}
	if len(columns) > MaxDraftColumns {
		return nil, &ValidationError{Field: "columns", Reason: fmt.Sprintf("at most %d columns, got %d", MaxDraftColumns, len(columns))}
	}
	names, err := ValidateColumns(columns)
	if err != nil {
		return nil, err
	}
	cells := make([][]string, rows)
	for i := range cells {
		cells[i] = make([]string, len(names))
	}
	return &Draft{columns: names, cells: cells}, nil
}

func (d *Draft) Rows() int { return len(d.cells) }

func (d *Draft) Columns() []string { return append([]string(nil), d.columns...) }

// Cell returns the text at (r, c), empty when out of range.
func (d *Draft) Cell(r, c int) string {
	if r < 0 || r >= len(d.cells) || c < 0 || c >= len(d.columns) {
		return ""
	}
	return d.cells[r][c]
}

// Set writes text into (r, c).
func (d *Draft) Set(r, c int, v string) error {
	if r < 0 || r >= len(d.cells) {
		return &ValidationError{Field: "row", Reason: fmt.Sprintf("%d out of range [0,%d)", r, len(d.cells))}
	}
	if c < 0 || c >= len(d.columns) {
		return &ValidationError{Field: "column", Reason: fmt.Sprintf("%d out of range [0,%d)", c, len(d.columns))}
	}
	d.cells[r][c] = v
	return nil
}

// Clone copies the draft for snapshots.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	cp := &Draft{columns: d.Columns(), cells: make([][]string, len(d.cells))}
	for i, row := range d.cells {
		cp.cells[i] = append([]string(nil), row...)
	}
	return cp
}

// Table converts the grid into stored rows. Blank cells become null.
func (d *Draft) Table() Table {
	t := Table{Columns: d.Columns(), Rows: make([]Row, len(d.cells))}
	for i, row := range d.cells {
		r := make(Row, len(d.columns))
		for j, col := range d.columns {
			r[col] = ParseCell(row[j])
		}
		t.Rows[i] = r
	}
	return t
}
