// Package catalog reads routine and column metadata from the live MySQL
// catalog. It is a thin row-to-struct layer; all reconciliation logic
// lives in the sync engine.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// RoutineDescriptor is one routine as the database reports it.
type RoutineDescriptor struct {
	Name string
	Type string // PROCEDURE or FUNCTION
}

// Column is one table column with the metadata the placeholder resolver
// needs.
type Column struct {
	TableName    string
	ColumnName   string
	ColumnType   string
	CharacterSet string
	MaxLength    int64
}

// Parameter is one routine parameter in positional order.
type Parameter struct {
	Name     string
	DataType string
}

// Reader queries the catalog of the connection's current schema.
type Reader struct {
	db *sql.DB
}

// NewReader creates a catalog reader on an open connection.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// Routines returns all stored routines in the current schema.
func (r *Reader) Routines(ctx context.Context) ([]RoutineDescriptor, error) {
	query := `
SELECT routine_name, routine_type
FROM information_schema.routines
WHERE routine_schema = database()
ORDER BY routine_name
`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query routines: %w", err)
	}
	defer rows.Close()

	var routines []RoutineDescriptor
	for rows.Next() {
		var d RoutineDescriptor
		if err := rows.Scan(&d.Name, &d.Type); err != nil {
			return nil, fmt.Errorf("failed to scan routine: %w", err)
		}
		routines = append(routines, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating routines: %w", err)
	}

	return routines, nil
}

// Columns returns every table column in the current schema with its
// type and character set.
func (r *Reader) Columns(ctx context.Context) ([]Column, error) {
	query := `
SELECT table_name, column_name, column_type, character_set_name, character_maximum_length
FROM information_schema.columns
WHERE table_schema = database()
ORDER BY table_name, ordinal_position
`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		var charset sql.NullString
		var maxLength sql.NullInt64
		if err := rows.Scan(&c.TableName, &c.ColumnName, &c.ColumnType, &charset, &maxLength); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		if charset.Valid {
			c.CharacterSet = charset.String
		}
		if maxLength.Valid {
			c.MaxLength = maxLength.Int64
		}
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return columns, nil
}

// Parameters returns a routine's parameters in positional order. The
// result row (ordinal position 0) of a stored function is excluded.
func (r *Reader) Parameters(ctx context.Context, routineName string) ([]Parameter, error) {
	query := `
SELECT parameter_name, dtd_identifier
FROM information_schema.parameters
WHERE specific_schema = database()
  AND specific_name = ?
  AND ordinal_position > 0
ORDER BY ordinal_position
`
	rows, err := r.db.QueryContext(ctx, query, routineName)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters of %s: %w", routineName, err)
	}
	defer rows.Close()

	var params []Parameter
	for rows.Next() {
		var p Parameter
		if err := rows.Scan(&p.Name, &p.DataType); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		params = append(params, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parameters: %w", err)
	}

	return params, nil
}

// CanonicalSQLMode sets the session SQL mode and reads back the
// server's canonical ordering of it. Both statements run on one pinned
// connection; the mode is session state and would not be visible from
// another pool connection.
func (r *Reader) CanonicalSQLMode(ctx context.Context, mode string) (string, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SET sql_mode = ?", mode); err != nil {
		return "", fmt.Errorf("failed to set sql_mode %q: %w", mode, err)
	}

	var canonical string
	if err := conn.QueryRowContext(ctx, "SELECT @@sql_mode").Scan(&canonical); err != nil {
		return "", fmt.Errorf("failed to read back sql_mode: %w", err)
	}

	return canonical, nil
}

// DropRoutine removes a routine of the given type. Dropping a routine
// that no longer exists is not an error.
func (r *Reader) DropRoutine(ctx context.Context, routineType, name string) error {
	if routineType != "PROCEDURE" && routineType != "FUNCTION" {
		return fmt.Errorf("unknown routine type %q for %s", routineType, name)
	}

	query := fmt.Sprintf("DROP %s IF EXISTS `%s`", routineType, name)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to drop %s %s: %w", routineType, name, err)
	}

	return nil
}
