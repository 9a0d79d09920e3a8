// Package sheet reads spreadsheet files into tables. The first row is the
// header; every later non-blank row becomes one table row.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"mydashboard/internal/tables"
)

// ErrUnsupported is returned for file extensions other than .xlsx and .csv.
var ErrUnsupported = errors.New("unsupported spreadsheet format")

// Format is a supported file type.
type Format int

const (
	FormatXLSX Format = iota
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// Detect picks the format from the file extension.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(path))
	}
}

// DefaultName is the table name an upload gets when none is given.
func DefaultName(path string) string {
	return filepath.Base(path)
}

// Load reads path as a table.
func Load(path string) (tables.Table, error) {
	format, err := Detect(path)
	if err != nil {
		return tables.Table{}, err
	}
	switch format {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return tables.Table{}, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		f, err := excelize.OpenFile(path)
		if err != nil {
			return tables.Table{}, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return readWorkbook(f)
	}
}

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (tables.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return tables.Table{}, fmt.Errorf("read workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (tables.Table, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tables.Table{}, &tables.ValidationError{Field: "sheet", Reason: "workbook has no worksheets"}
	}
	sheet := sheets[0]
	// Raw values keep formatted numbers (1,234.50, 25%) numeric.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return tables.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	dates := newDateCells(f)
	for r := 1; r < len(rows); r++ {
		for c, v := range rows[r] {
			if v != "" {
				rows[r][c] = dates.render(sheet, c+1, r+1, v)
			}
		}
	}
	return build(rows)
}

// dateCells turns raw serial numbers back into dates and times for cells
// styled with a date or time format.
type dateCells struct {
	f        *excelize.File
	date1904 bool
	kinds    map[int]dateKind
}

type dateKind int

const (
	notDate dateKind = iota
	dateOnly
	timeOnly
	dateTime
)

func newDateCells(f *excelize.File) *dateCells {
	d := &dateCells{f: f, kinds: map[int]dateKind{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

func (d *dateCells) kind(styleID int) dateKind {
	if k, ok := d.kinds[styleID]; ok {
		return k
	}
	k := notDate
	if style, err := d.f.GetStyle(styleID); err == nil {
		k = classify(style.NumFmt, style.CustomNumFmt)
	}
	d.kinds[styleID] = k
	return k
}

func (d *dateCells) render(sheet string, col, row int, v string) string {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return v
	}
	id, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return v
	}
	k := d.kind(id)
	if k == notDate {
		return v
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	tm, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return v
	}
	switch {
	case k == timeOnly:
		return tm.Format(time.TimeOnly)
	case k == dateOnly && serial == math.Trunc(serial):
		return tm.Format(time.DateOnly)
	default:
		return tm.Format(time.DateTime)
	}
}

// classify reads a number format: built-in ids 14-22 and 45-47 are the
// date and time formats; custom formats are judged by their tokens.
func classify(numFmt int, custom *string) dateKind {
	if custom != nil && *custom != "" {
		code := strings.ToLower(formatTokens(*custom))
		date := strings.Contains(code, "yy") || strings.Contains(code, "d")
		clock := strings.Contains(code, "h") || strings.Contains(code, "ss")
		switch {
		case date && clock:
			return dateTime
		case date:
			return dateOnly
		case clock:
			return timeOnly
		}
		return notDate
	}
	switch {
	case numFmt >= 14 && numFmt <= 17:
		return dateOnly
	case numFmt == 22:
		return dateTime
	case numFmt >= 18 && numFmt <= 21, numFmt >= 45 && numFmt <= 47:
		return timeOnly
	}
	return notDate
}

// ReadCSV reads comma-separated records. Rows may have fewer fields than
// the header.
func ReadCSV(r io.Reader) (tables.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return tables.Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return build(records)
}

func build(records [][]string) (tables.Table, error) {
	if len(records) == 0 {
		return tables.Table{}, &tables.ValidationError{Field: "sheet", Reason: "file is empty"}
	}
	columns, err := tables.ValidateColumns(records[0])
	if err != nil {
		return tables.Table{}, err
	}
	t := tables.Table{Columns: columns, Rows: []tables.Row{}}
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		if len(rec) > len(columns) {
			for _, extra := range rec[len(columns):] {
				if strings.TrimSpace(extra) != "" {
					return tables.Table{}, &tables.ValidationError{
						Field:  "row",
						Reason: fmt.Sprintf("line %d has %d cells but the header has %d", i+2, len(rec), len(columns)),
					}
				}
			}
		}
		row := make(tables.Row, len(columns))
		for j, col := range columns {
			var cell string
			if j < len(rec) {
				cell = rec[j]
			}
			row[col] = tables.ParseCell(cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// formatTokens drops quoted literals, escaped characters and bracketed
// sections such as colors or locales from a number format code.
func formatTokens(code string) string {
	var b strings.Builder
	quoted, bracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case quoted:
			quoted = ch != '"'
		case bracket:
			bracket = ch != ']'
		case ch == '"':
			quoted = true
		case ch == '[':
			bracket = true
		case ch == '\\':
			i++
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
