// Package ui renders command output: the routine status table and the
// consolidated end-of-run error listing.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/sprocsync/sprocsync/internal/report"
)

// Table is a simple aligned table with a colored header row.
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{writer: w, headers: headers}
}

// DisableColor turns off ANSI coloring, for tests and non-TTY output.
func (t *Table) DisableColor() {
	t.noColor = true
}

// AddRow adds one row. Missing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	header := color.New(color.Bold, color.FgCyan)
	if t.noColor {
		header.DisableColor()
	}
	for i, h := range t.headers {
		if i < len(t.headers)-1 {
			header.Fprint(t.writer, padRight(h, widths[i]))
			fmt.Fprint(t.writer, "  ")
		} else {
			header.Fprint(t.writer, h)
		}
	}
	fmt.Fprintln(t.writer)

	for i := range t.headers {
		fmt.Fprint(t.writer, strings.Repeat("-", widths[i]))
		if i < len(t.headers)-1 {
			fmt.Fprint(t.writer, "  ")
		}
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i := range t.headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if i < len(t.headers)-1 {
				fmt.Fprint(t.writer, padRight(cell, widths[i]), "  ")
			} else {
				fmt.Fprintln(t.writer, strings.TrimRight(cell, " "))
			}
		}
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// PrintErrorSummary writes the consolidated error listing of a run,
// one colored line per entry.
func PrintErrorSummary(w io.Writer, errs *report.List, noColor bool) {
	if errs.Empty() {
		return
	}

	headerColor := color.New(color.FgRed, color.Bold)
	kindColor := color.New(color.FgYellow)
	if noColor {
		headerColor.DisableColor()
		kindColor.DisableColor()
	}

	headerColor.Fprintf(w, "%d error(s) occurred:\n", errs.Len())
	for _, e := range errs.Entries() {
		fmt.Fprint(w, "  ")
		kindColor.Fprintf(w, "[%s]", e.Kind)
		if e.Path != "" {
			fmt.Fprintf(w, " %s: %s\n", e.Path, e.Message)
		} else {
			fmt.Fprintf(w, " %s\n", e.Message)
		}
	}
}
