// Package tables models the user's stored tables and the store operations
// over the two backend collections that hold them.
package tables

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"mydashboard/internal/jsonutil"
)

// Collection is a backend collection holding table records.
type Collection string

const (
	// Uploads holds tables imported from spreadsheets.
	Uploads Collection = "uploads"
	// Manual holds tables authored in the grid editor.
	Manual Collection = "tabelas_criadas"
)

// Collections lists the known collections in name-resolution order.
var Collections = []Collection{Uploads, Manual}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	return c == Uploads || c == Manual
}

// Origin is the user-facing label of the collection.
func (c Collection) Origin() string {
	switch c {
	case Uploads:
		return "upload"
	case Manual:
		return "manual"
	default:
		return string(c)
	}
}

// Row maps column name to a JSON scalar (string, float64, bool or nil).
type Row map[string]any

// Table is an ordered set of columns plus rows keyed by column name.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len is the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Cell returns the value at row r in column col, nil when absent.
func (t Table) Cell(r int, col string) any {
	if r < 0 || r >= len(t.Rows) {
		return nil
	}
	return t.Rows[r][col]
}

// Text renders a cell for display. Nulls render empty.
func (t Table) Text(r int, col string) string {
	return jsonutil.ToString(t.Cell(r, col))
}

// Set stores a parsed value at row r in column col.
func (t Table) Set(r int, col, raw string) error {
	if r < 0 || r >= len(t.Rows) {
		return &ValidationError{Field: "row", Reason: fmt.Sprintf("%d out of range [0,%d)", r, len(t.Rows))}
	}
	if !t.HasColumn(col) {
		return &ValidationError{Field: "column", Reason: fmt.Sprintf("unknown column %q", col)}
	}
	if t.Rows[r] == nil {
		t.Rows[r] = Row{}
	}
	t.Rows[r][col] = ParseCell(raw)
	return nil
}

// HasColumn reports whether col is one of the table's columns.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Clone deep-copies the table so a working copy can be edited in place.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Equal compares columns, order included, and cell values.
func (t Table) Equal(o Table) bool {
	if len(t.Columns) != len(o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		if !reflect.DeepEqual(t.Rows[i], o.Rows[i]) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the rows as an array of objects whose keys follow
// Columns, so the order survives a round trip through the backend.
func (t Table) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, r := range t.Rows {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('{')
		n := 0
		for _, col := range t.orderedKeys(r) {
			if n > 0 {
				b.WriteByte(',')
			}
			n++
			k, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(r[col])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, col, err)
			}
			b.Write(k)
			b.WriteByte(':')
			b.Write(v)
		}
		b.WriteByte('}')
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}

// orderedKeys lists Columns first, then any stray keys of r.
func (t Table) orderedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		seen[c] = true
		keys = append(keys, c)
	}
	for k := range r {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}

// DecodeTable parses stored table data: a JSON array of row objects, or a
// string holding one (the legacy dashboard stored serialized JSON text).
// Columns are ordered by first appearance across rows.
func DecodeTable(raw []byte) (Table, error) {
	return decodeTable(gjson.ParseBytes(raw))
}

func decodeTable(v gjson.Result) (Table, error) {
	if v.Type == gjson.String {
		if !gjson.Valid(v.Str) {
			return Table{}, fmt.Errorf("table data: invalid JSON text")
		}
		v = gjson.Parse(v.Str)
	}
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return Table{Columns: []string{}, Rows: []Row{}}, nil
	case !v.IsArray():
		return Table{}, fmt.Errorf("table data: expected array of rows, got %s", v.Type)
	}

	t := Table{Columns: []string{}, Rows: []Row{}}
	seen := map[string]bool{}
	var err error
	v.ForEach(func(_, row gjson.Result) bool {
		if !row.IsObject() {
			err = fmt.Errorf("table data: row %d is not an object", len(t.Rows))
			return false
		}
		r := Row{}
		row.ForEach(func(key, val gjson.Result) bool {
			name := key.String()
			if !seen[name] {
				seen[name] = true
				t.Columns = append(t.Columns, name)
			}
			r[name] = val.Value()
			return true
		})
		t.Rows = append(t.Rows, r)
		return true
	})
	if err != nil {
		return Table{}, err
	}
	return t, nil
}

// ParseCell converts edited text into a stored value: blank is null,
// finite numbers are float64, anything else stays text.
func ParseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}
