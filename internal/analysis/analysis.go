// Package analysis runs the fixed menu of descriptive tools over a table.
// Every tool has the same signature and renders its result as text.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"mydashboard/internal/tables"
)

var (
	// ErrUnknownTool is returned for a Tool outside the menu.
	ErrUnknownTool = errors.New("unknown analysis tool")
	// ErrEmptyTable is returned when the table has no rows or no columns.
	ErrEmptyTable = errors.New("table has no data")
	// ErrNoNumericColumns is returned by tools that need numbers.
	ErrNoNumericColumns = errors.New("table has no numeric columns")
)

// Tool is one entry of the analysis menu.
type Tool int

const (
	BasicStats Tool = iota
	ValueCounts
	NullDetection
	Correlation
	BarChart
	Histogram
	Boxplot
)

// String returns the menu label.
func (t Tool) String() string {
	switch t {
	case BasicStats:
		return "Basic statistics"
	case ValueCounts:
		return "Value counts"
	case NullDetection:
		return "Null detection"
	case Correlation:
		return "Correlation"
	case BarChart:
		return "Bar chart"
	case Histogram:
		return "Histogram"
	case Boxplot:
		return "Boxplot"
	default:
		return "Unknown"
	}
}

// Slug is the command-line name of the tool.
func (t Tool) Slug() string {
	switch t {
	case BasicStats:
		return "stats"
	case ValueCounts:
		return "counts"
	case NullDetection:
		return "nulls"
	case Correlation:
		return "corr"
	case BarChart:
		return "bar"
	case Histogram:
		return "hist"
	case Boxplot:
		return "box"
	default:
		return ""
	}
}

// All lists the menu in display order.
func All() []Tool {
	return []Tool{BasicStats, ValueCounts, NullDetection, Correlation, BarChart, Histogram, Boxplot}
}

// Parse resolves a slug or label, case-insensitively.
func Parse(name string) (Tool, error) {
	name = strings.TrimSpace(name)
	for _, t := range All() {
		if strings.EqualFold(name, t.Slug()) || strings.EqualFold(name, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// Result is the rendered output of one tool. Err is set when the tool
// could not run, and Text then holds its message.
type Result struct {
	Tool  Tool
	Title string
	Text  string
	Err   error
}

// Func computes one tool over a table.
type Func func(tables.Table) (Result, error)

var registry = map[Tool]Func{
	BasicStats:    basicStats,
	ValueCounts:   valueCounts,
	NullDetection: nullDetection,
	Correlation:   correlation,
	BarChart:      barChart,
	Histogram:     histogram,
	Boxplot:       boxplot,
}

// Run computes tool over t.
func Run(tool Tool, t tables.Table) (Result, error) {
	fn, ok := registry[tool]
	if !ok {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownTool, int(tool))
	}
	if len(t.Columns) == 0 || t.Len() == 0 {
		return Result{}, fmt.Errorf("%s: %w", tool, ErrEmptyTable)
	}
	res, err := fn(t)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", tool, err)
	}
	res.Tool = tool
	if res.Title == "" {
		res.Title = tool.String()
	}
	return res, nil
}

// RunAll runs each tool in order. A failing tool yields a Result whose
// text is the error, so one inapplicable tool does not hide the others.
func RunAll(tools []Tool, t tables.Table) []Result {
	out := make([]Result, 0, len(tools))
	for _, tool := range tools {
		res, err := Run(tool, t)
		if err != nil {
			res = Result{Tool: tool, Title: tool.String(), Text: err.Error(), Err: err}
		}
		out = append(out, res)
	}
	return out
}
