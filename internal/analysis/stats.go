package analysis

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"mydashboard/internal/jsonutil"
	"mydashboard/internal/tables"
)

// numericColumns returns the columns whose non-null values are all numbers,
// with at least one value, mapped to their values in row order.
func numericColumns(t tables.Table) ([]string, map[string][]float64) {
	var names []string
	values := map[string][]float64{}
	for _, col := range t.Columns {
		var (
			xs      []float64
			numeric = true
		)
		for _, r := range t.Rows {
			v := r[col]
			if v == nil {
				continue
			}
			f, ok := number(v)
			if !ok {
				numeric = false
				break
			}
			xs = append(xs, f)
		}
		if numeric && len(xs) > 0 {
			names = append(names, col)
			values[col] = xs
		}
	}
	return names, values
}

// number accepts stored numbers only. Numeric-looking text is already a
// number after ParseCell.
func number(v any) (float64, bool) {
	switch v.(type) {
	case float64, int, int64:
		return jsonutil.ToFloat(v)
	default:
		return 0, false
	}
}

// quantile is the linear interpolation between closest ranks used by most
// spreadsheet tools: position p*(n-1) in the sorted sample.
func quantile(p float64, sorted []float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := p * float64(len(sorted)-1)
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	if lo == hi {
		return sorted[int(lo)]
	}
	return lerp(sorted[int(lo)], sorted[int(hi)], pos-lo)
}

// lerp moves f of the way from a to b. It never computes b-a, so it stays
// finite for any finite a and b.
func lerp(a, b, f float64) float64 {
	return (1-f)*a + f*b
}

type summary struct {
	count                    int
	mean, std                float64
	min, q1, median, q3, max float64
}

func summarize(xs []float64) summary {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	s := summary{
		count:  len(sorted),
		mean:   stat.Mean(sorted, nil),
		std:    math.NaN(),
		min:    floats.Min(sorted),
		q1:     quantile(0.25, sorted),
		median: quantile(0.5, sorted),
		q3:     quantile(0.75, sorted),
		max:    floats.Max(sorted),
	}
	if len(sorted) > 1 {
		s.std = stat.StdDev(sorted, nil)
	}
	return s
}

func formatNum(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatFloat(f, 'f', 0, 64)
	default:
		return strconv.FormatFloat(f, 'g', 6, 64)
	}
}

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}

func basicStats(t tables.Table) (Result, error) {
	names, values := numericColumns(t)
	if len(names) == 0 {
		return Result{}, ErrNoNumericColumns
	}
	labels := []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}
	rows := make([][]string, len(labels))
	for i, l := range labels {
		rows[i] = []string{l}
	}
	for _, col := range names {
		s := summarize(values[col])
		cells := []float64{float64(s.count), s.mean, s.std, s.min, s.q1, s.median, s.q3, s.max}
		for i, c := range cells {
			rows[i] = append(rows[i], formatNum(c))
		}
	}
	return Result{Text: render(append([]string{""}, names...), rows)}, nil
}

type count struct {
	value string
	n     int
}

// counts tallies non-null values of col, most frequent first; ties keep
// first appearance.
func counts(t tables.Table, col string) []count {
	idx := map[string]int{}
	var out []count
	for _, r := range t.Rows {
		v := r[col]
		if v == nil {
			continue
		}
		s := jsonutil.ToString(v)
		if i, ok := idx[s]; ok {
			out[i].n++
			continue
		}
		idx[s] = len(out)
		out = append(out, count{value: s, n: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].n > out[j].n })
	return out
}

func valueCounts(t tables.Table) (Result, error) {
	var b strings.Builder
	for i, col := range t.Columns {
		if i > 0 {
			b.WriteString("\n")
		}
		cs := counts(t, col)
		rows := make([][]string, 0, len(cs))
		for _, c := range cs {
			rows = append(rows, []string{c.value, strconv.Itoa(c.n)})
		}
		b.WriteString(render([]string{col, "count"}, rows))
		b.WriteString("\n")
	}
	return Result{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func nullDetection(t tables.Table) (Result, error) {
	rows := make([][]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		n := 0
		for _, r := range t.Rows {
			if v, ok := r[col]; !ok || v == nil {
				n++
			}
		}
		rows = append(rows, []string{col, strconv.Itoa(n), formatNum(100 * float64(n) / float64(t.Len()))})
	}
	return Result{Text: render([]string{"column", "nulls", "%"}, rows)}, nil
}

// pairwise returns the rows where both columns hold numbers.
func pairwise(t tables.Table, a, b string) (xs, ys []float64) {
	for _, r := range t.Rows {
		x, okx := number(r[a])
		y, oky := number(r[b])
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

func correlation(t tables.Table) (Result, error) {
	names, _ := numericColumns(t)
	if len(names) < 2 {
		return Result{}, ErrNoNumericColumns
	}
	rows := make([][]string, len(names))
	for i, a := range names {
		rows[i] = []string{a}
		for _, b := range names {
			xs, ys := pairwise(t, a, b)
			r := math.NaN()
			if len(xs) > 1 {
				r = stat.Correlation(xs, ys, nil)
			}
			rows[i] = append(rows[i], formatCorr(r))
		}
	}
	return Result{Text: render(append([]string{""}, names...), rows)}, nil
}

func formatCorr(r float64) string {
	if math.IsNaN(r) {
		return "NaN"
	}
	return strconv.FormatFloat(r, 'f', 3, 64)
}
