package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sprocsync/sprocsync/internal/report"
)

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "ROUTINE", "TYPE")
	table.DisableColor()
	table.AddRow("customer_get", "PROCEDURE")
	table.AddRow("customer_max_id", "FUNCTION")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, "ROUTINE          TYPE", lines[0])
	assert.Equal(t, "---------------  ---------", lines[1])
	assert.Equal(t, "customer_get     PROCEDURE", lines[2])
	assert.Equal(t, "customer_max_id  FUNCTION", lines[3])
}

func TestTableShortRow(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "A", "B")
	table.DisableColor()
	table.AddRow("x")
	table.Render()

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "x", strings.TrimRight(lines[2], " "))
}

func TestPrintErrorSummary(t *testing.T) {
	var errs report.List
	errs.Add(report.KindConflict, "a/x.sql", "wrapper name %q is shared by 2 sources", "X")
	errs.Add(report.KindLoad, "b/y.sql", "syntax error")

	var buf bytes.Buffer
	PrintErrorSummary(&buf, &errs, true)

	out := buf.String()
	assert.Contains(t, out, "2 error(s) occurred:")
	assert.Contains(t, out, "[conflict] a/x.sql:")
	assert.Contains(t, out, "[load] b/y.sql: syntax error")
}

func TestPrintErrorSummaryEmpty(t *testing.T) {
	var errs report.List
	var buf bytes.Buffer
	PrintErrorSummary(&buf, &errs, true)
	assert.Empty(t, buf.String())
}
