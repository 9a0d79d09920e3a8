package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/stat"

	"mydashboard/internal/tables"
)

const (
	chartWidth    = 40
	histogramBins = 10
	maxBars       = 20
)

func bar(n, peak int) string {
	if peak == 0 {
		return ""
	}
	w := int(math.Round(float64(n) / float64(peak) * chartWidth))
	if w == 0 && n > 0 {
		w = 1
	}
	return strings.Repeat("█", w)
}

// labelled writes one line per label, labels padded to a common width.
func labelled(labels []string, bars []string, values []string) string {
	width := 0
	for _, l := range labels {
		width = max(width, runewidth.StringWidth(l))
	}
	var b strings.Builder
	for i, l := range labels {
		fmt.Fprintf(&b, "%s │%s %s\n", runewidth.FillRight(l, width), bars[i], values[i])
	}
	return strings.TrimRight(b.String(), "\n")
}

// barChart plots value counts of the first column.
func barChart(t tables.Table) (Result, error) {
	col := t.Columns[0]
	cs := counts(t, col)
	if len(cs) == 0 {
		return Result{}, fmt.Errorf("column %q has only nulls", col)
	}
	title := "Bar chart of " + col
	if len(cs) > maxBars {
		cs = cs[:maxBars]
		title += fmt.Sprintf(" (top %d)", maxBars)
	}
	labels := make([]string, len(cs))
	bars := make([]string, len(cs))
	values := make([]string, len(cs))
	for i, c := range cs {
		labels[i] = runewidth.Truncate(c.value, 20, "…")
		bars[i] = bar(c.n, cs[0].n)
		values[i] = fmt.Sprint(c.n)
	}
	return Result{Title: title, Text: labelled(labels, bars, values)}, nil
}

// binEdges splits [lo, hi] into n equal bins. A constant sample gets a unit
// wide range centered on its value.
func binEdges(lo, hi float64, n int) []float64 {
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = lerp(lo, hi, float64(i)/float64(n))
	}
	edges[n] = hi
	return edges
}

// histogram plots the first numeric column in ten equal-width bins.
func histogram(t tables.Table) (Result, error) {
	names, values := numericColumns(t)
	if len(names) == 0 {
		return Result{}, ErrNoNumericColumns
	}
	col := names[0]
	xs := append([]float64(nil), values[col]...)
	sort.Float64s(xs)

	edges := binEdges(xs[0], xs[len(xs)-1], histogramBins)
	if !sort.Float64sAreSorted(edges) || math.IsInf(edges[histogramBins], 0) {
		return Result{}, fmt.Errorf("column %q spans too wide a range to bin", col)
	}
	// stat.Histogram treats the last divider as exclusive.
	dividers := append([]float64(nil), edges...)
	dividers[histogramBins] = math.Nextafter(dividers[histogramBins], math.Inf(1))
	hist := stat.Histogram(nil, dividers, xs, nil)

	peak := 0
	for _, h := range hist {
		peak = max(peak, int(h))
	}
	labels := make([]string, histogramBins)
	bars := make([]string, histogramBins)
	tallies := make([]string, histogramBins)
	for i, h := range hist {
		labels[i] = fmt.Sprintf("[%s, %s%s", formatNum(edges[i]), formatNum(edges[i+1]), closer(i))
		bars[i] = bar(int(h), peak)
		tallies[i] = fmt.Sprint(int(h))
	}
	return Result{Title: "Histogram of " + col, Text: labelled(labels, bars, tallies)}, nil
}

func closer(i int) string {
	if i == histogramBins-1 {
		return "]"
	}
	return ")"
}

// boxplot draws a five-number summary per numeric column on a shared axis
// scaled to that column's range.
func boxplot(t tables.Table) (Result, error) {
	names, values := numericColumns(t)
	if len(names) == 0 {
		return Result{}, ErrNoNumericColumns
	}
	labels := make([]string, len(names))
	boxes := make([]string, len(names))
	info := make([]string, len(names))
	for i, col := range names {
		s := summarize(values[col])
		labels[i] = col
		boxes[i] = drawBox(s)
		info[i] = fmt.Sprintf("min=%s q1=%s med=%s q3=%s max=%s",
			formatNum(s.min), formatNum(s.q1), formatNum(s.median), formatNum(s.q3), formatNum(s.max))
	}
	return Result{Text: labelled(labels, boxes, info)}, nil
}

func drawBox(s summary) string {
	line := []rune(strings.Repeat(" ", chartWidth))
	// Halved so that the span of any two finite values is finite.
	span := s.max/2 - s.min/2
	pos := func(v float64) int {
		if span == 0 {
			return chartWidth / 2
		}
		f := (v/2 - s.min/2) / span
		if math.IsNaN(f) {
			return chartWidth / 2
		}
		return int(math.Round(math.Min(math.Max(f, 0), 1) * float64(chartWidth-1)))
	}
	for i := pos(s.min); i <= pos(s.max); i++ {
		line[i] = '─'
	}
	for i := pos(s.q1); i <= pos(s.q3); i++ {
		line[i] = '█'
	}
	line[pos(s.min)] = '├'
	line[pos(s.max)] = '┤'
	line[pos(s.median)] = '┃'
	return string(line)
}
