package runtime

import (
	"fmt"
	"io"
	"strings"
)

// renderTable writes rows as an aligned text table with a header and a
// separator line.
func renderTable(w io.Writer, columns []string, rows []map[string]interface{}) error {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			cell := cellString(row[col])
			cells[r][i] = cell
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := writeRow(w, columns, widths); err != nil {
		return err
	}

	separators := make([]string, len(columns))
	for i, width := range widths {
		separators[i] = strings.Repeat("-", width)
	}
	if err := writeRow(w, separators, widths); err != nil {
		return err
	}

	for _, row := range cells {
		if err := writeRow(w, row, widths); err != nil {
			return err
		}
	}

	return nil
}

func writeRow(w io.Writer, cells []string, widths []int) error {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = padRight(cell, widths[i])
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	return err
}

func cellString(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return keyString(v)
}

// padRight pads a string with spaces on the right to reach the target
// width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
