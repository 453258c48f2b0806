// Package runtime is the support library for generated routine
// wrappers. Each designation has an exec helper that runs the call and
// enforces the designation's result-shape contract, plus a large-object
// variant used when a routine has parameters transmitted through the
// chunked streaming protocol.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
)

// RowHandler consumes one result row of a bulk-designated routine.
// Returning an error stops the fetch and propagates out of the wrapper.
type RowHandler func(row map[string]interface{}) error

// fetchAll materializes every row of a result set into maps keyed by
// column name.
func fetchAll(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var result []map[string]interface{}
	for rows.Next() {
		row, err := scanRow(rows, columns)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}

	return result, nil
}

// scanRow scans the current row into a map. Text columns arrive from
// the driver as []byte and are converted to string; binary columns are
// left as []byte by the generated wrappers' column types.
func scanRow(rows *sql.Rows, columns []string) (map[string]interface{}, error) {
	values := make([]interface{}, len(columns))
	targets := make([]interface{}, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}

	if err := rows.Scan(targets...); err != nil {
		return nil, fmt.Errorf("failed to scan result row: %w", err)
	}

	row := make(map[string]interface{}, len(columns))
	for i, col := range columns {
		row[col] = values[i]
	}
	return row, nil
}

// query runs a fully inlined call statement and materializes all rows.
func query(ctx context.Context, db *sql.DB, callText string) ([]map[string]interface{}, error) {
	rows, err := db.QueryContext(ctx, callText)
	if err != nil {
		return nil, fmt.Errorf("call failed: %w", err)
	}
	defer rows.Close()

	result, err := fetchAll(rows)
	if err != nil {
		return nil, err
	}

	// A CALL may produce trailing result sets (the OK packet of the
	// procedure itself); advance past them before closing.
	for rows.NextResultSet() {
	}

	return result, nil
}
