package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// ExecNone runs a call that selects nothing and returns the number of
// affected rows.
func ExecNone(ctx context.Context, db *sql.DB, callText string) (int64, error) {
	result, err := db.ExecContext(ctx, callText)
	if err != nil {
		return 0, fmt.Errorf("call failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// ExecRow0 runs a call expected to select zero or one row. Zero rows
// yields nil; more than one row is a result-shape error.
func ExecRow0(ctx context.Context, db *sql.DB, callText string) (map[string]interface{}, error) {
	rows, err := query(ctx, db, callText)
	if err != nil {
		return nil, err
	}
	return shapeRow0(rows)
}

// ExecRow1 runs a call expected to select exactly one row.
func ExecRow1(ctx context.Context, db *sql.DB, callText string) (map[string]interface{}, error) {
	rows, err := query(ctx, db, callText)
	if err != nil {
		return nil, err
	}
	return shapeRow1(rows)
}

// ExecRows runs a call and returns every selected row.
func ExecRows(ctx context.Context, db *sql.DB, callText string) ([]map[string]interface{}, error) {
	return query(ctx, db, callText)
}

// ExecMap runs a call selecting two columns and returns a map from the
// first column to the second.
func ExecMap(ctx context.Context, db *sql.DB, callText string) (map[string]interface{}, error) {
	rows, err := queryOrdered(ctx, db, callText)
	if err != nil {
		return nil, err
	}

	if len(rows.columns) != 2 {
		return nil, fmt.Errorf("map result must have exactly 2 columns, got %d", len(rows.columns))
	}

	result := make(map[string]interface{}, len(rows.data))
	for _, row := range rows.data {
		result[keyString(row[rows.columns[0]])] = row[rows.columns[1]]
	}
	return result, nil
}

// ExecSingleton0 runs a call expected to select one scalar column from
// zero or one rows. Zero rows yields nil.
func ExecSingleton0(ctx context.Context, db *sql.DB, callText string) (interface{}, error) {
	rows, err := query(ctx, db, callText)
	if err != nil {
		return nil, err
	}
	return shapeSingleton0(rows)
}

// ExecSingleton1 runs a call expected to select exactly one scalar.
func ExecSingleton1(ctx context.Context, db *sql.DB, callText string) (interface{}, error) {
	rows, err := query(ctx, db, callText)
	if err != nil {
		return nil, err
	}
	return shapeSingleton1(rows)
}

// ExecFunction evaluates a stored function and returns its scalar
// result.
func ExecFunction(ctx context.Context, db *sql.DB, callText string) (interface{}, error) {
	return ExecSingleton1(ctx, db, callText)
}

// ExecLog runs a call and logs every selected row, returning the number
// of rows logged.
func ExecLog(ctx context.Context, db *sql.DB, logger *zap.Logger, callText string) (int64, error) {
	rows, err := query(ctx, db, callText)
	if err != nil {
		return 0, err
	}

	for _, row := range rows {
		fields := make([]zap.Field, 0, len(row))
		for col, v := range row {
			fields = append(fields, zap.Any(col, v))
		}
		logger.Info("routine log row", fields...)
	}
	return int64(len(rows)), nil
}

// ExecTable runs a call and renders the selected rows as an aligned
// text table, returning the number of data rows rendered.
func ExecTable(ctx context.Context, db *sql.DB, w io.Writer, callText string) (int64, error) {
	rows, err := queryOrdered(ctx, db, callText)
	if err != nil {
		return 0, err
	}

	if err := renderTable(w, rows.columns, rows.data); err != nil {
		return 0, err
	}
	return int64(len(rows.data)), nil
}

// ExecRowsWithKey runs a call and nests the selected rows into a map
// keyed by the given columns; nesting depth equals len(keys). A later
// row with the same full key path replaces an earlier one.
func ExecRowsWithKey(ctx context.Context, db *sql.DB, callText string, keys ...string) (map[string]interface{}, error) {
	rows, err := query(ctx, db, callText)
	if err != nil {
		return nil, err
	}
	return nestByKey(rows, keys)
}

// ExecRowsWithIndex is ExecRowsWithKey with row slices at the leaves,
// so rows sharing a full key path accumulate instead of replacing.
func ExecRowsWithIndex(ctx context.Context, db *sql.DB, callText string, keys ...string) (map[string]interface{}, error) {
	rows, err := query(ctx, db, callText)
	if err != nil {
		return nil, err
	}
	return nestByIndex(rows, keys)
}

// ExecBulk runs a call and streams every selected row to the handler,
// returning the number of rows handled.
func ExecBulk(ctx context.Context, db *sql.DB, handler RowHandler, callText string) (int64, error) {
	rows, err := db.QueryContext(ctx, callText)
	if err != nil {
		return 0, fmt.Errorf("call failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("failed to read result columns: %w", err)
	}

	var count int64
	for rows.Next() {
		row, err := scanRow(rows, columns)
		if err != nil {
			return count, err
		}
		if err := handler(row); err != nil {
			return count, fmt.Errorf("row handler failed: %w", err)
		}
		count++
	}

	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("error iterating result rows: %w", err)
	}

	for rows.NextResultSet() {
	}

	return count, nil
}

// ExecBulkInsert inserts the given rows into a table through a prepared
// statement, one execution per row, and returns the number of rows
// inserted.
func ExecBulkInsert(ctx context.Context, db *sql.DB, table string, columns []string, rows [][]interface{}) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("bulk insert into %s requires at least one column", table)
	}

	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		quoted[i] = "`" + col + "`"
	}

	stmt, err := db.PrepareContext(ctx, fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare bulk insert into %s: %w", table, err)
	}
	defer stmt.Close()

	var count int64
	for i, row := range rows {
		if len(row) != len(columns) {
			return count, fmt.Errorf("bulk insert row %d has %d values, want %d", i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return count, fmt.Errorf("bulk insert row %d failed: %w", i, err)
		}
		count++
	}

	return count, nil
}

// orderedRows pairs materialized rows with the result's column order,
// which a map[string]interface{} alone cannot preserve.
type orderedRows struct {
	columns []string
	data    []map[string]interface{}
}

func queryOrdered(ctx context.Context, db *sql.DB, callText string) (*orderedRows, error) {
	rows, err := db.QueryContext(ctx, callText)
	if err != nil {
		return nil, fmt.Errorf("call failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	data, err := fetchAll(rows)
	if err != nil {
		return nil, err
	}

	for rows.NextResultSet() {
	}

	return &orderedRows{columns: columns, data: data}, nil
}
