package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// DefaultChunkSize is the transmission unit for large-object parameter
// values when the configuration does not override it.
const DefaultChunkSize = 1024 * 1024

// Chunk is one fixed-size slice of a large-object value, tagged with
// its position in the transmission sequence.
type Chunk struct {
	Index int
	Data  []byte
}

// Chunks splits data into chunks of at most size bytes. The
// concatenation of the chunk data, in index order, equals the input.
// A nil or empty input yields a single empty chunk so that zero-length
// values still initialize their server-side accumulator.
func Chunks(data []byte, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if len(data) == 0 {
		return []Chunk{{Index: 0, Data: nil}}
	}

	chunks := make([]Chunk, 0, (len(data)+size-1)/size)
	for offset := 0; offset < len(data); offset += size {
		end := offset + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Data: data[offset:end]})
	}
	return chunks
}

// LobParam is one large-object argument of a call: the session variable
// the call text references and the value to stream into it.
type LobParam struct {
	Variable string
	Data     []byte
}

// stageLobs transmits every large-object value into its session
// variable. Each variable starts as an empty binary sentinel; chunks
// are appended through a prepared statement, one execution per chunk,
// in index order. Session variables only exist on the connection that
// set them, so every statement runs on the pinned conn.
func stageLobs(ctx context.Context, conn *sql.Conn, chunkSize int, lobs []LobParam) error {
	for _, lob := range lobs {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET %s = _binary ''", lob.Variable)); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", lob.Variable, err)
		}

		stmt, err := conn.PrepareContext(ctx,
			fmt.Sprintf("SET %s = CONCAT(%s, ?)", lob.Variable, lob.Variable))
		if err != nil {
			return fmt.Errorf("failed to prepare chunk append for %s: %w", lob.Variable, err)
		}

		for _, chunk := range Chunks(lob.Data, chunkSize) {
			if _, err := stmt.ExecContext(ctx, chunk.Data); err != nil {
				stmt.Close()
				return fmt.Errorf("failed to send chunk %d of %s: %w", chunk.Index, lob.Variable, err)
			}
		}

		if err := stmt.Close(); err != nil {
			return fmt.Errorf("failed to close chunk statement for %s: %w", lob.Variable, err)
		}
	}
	return nil
}

// releaseLobs frees the staged values server-side. Best effort; the
// session variables would otherwise live for the connection lifetime.
func releaseLobs(ctx context.Context, conn *sql.Conn, lobs []LobParam) {
	for _, lob := range lobs {
		conn.ExecContext(ctx, fmt.Sprintf("SET %s = NULL", lob.Variable))
	}
}

// queryLob runs the prepared-statement streaming path: pin one
// connection, stage every large-object value in chunks, prepare and
// execute the call, fetch all rows while the statement cursor is open,
// advance past any additional result sets, and release the staged
// values before the connection returns to the pool.
func queryLob(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam) (*orderedRows, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if err := stageLobs(ctx, conn, chunkSize, lobs); err != nil {
		return nil, err
	}
	defer releaseLobs(ctx, conn, lobs)

	stmt, err := conn.PrepareContext(ctx, callText)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare call: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
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

// ExecLobNone runs a streaming call that selects nothing.
func ExecLobNone(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam) (int64, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if err := stageLobs(ctx, conn, chunkSize, lobs); err != nil {
		return 0, err
	}
	defer releaseLobs(ctx, conn, lobs)

	stmt, err := conn.PrepareContext(ctx, callText)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare call: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("call failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// ExecLobRow0 is the streaming variant of ExecRow0.
func ExecLobRow0(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam) (map[string]interface{}, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
	if err != nil {
		return nil, err
	}
	return shapeRow0(rows.data)
}

// ExecLobRow1 is the streaming variant of ExecRow1.
func ExecLobRow1(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam) (map[string]interface{}, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
	if err != nil {
		return nil, err
	}
	return shapeRow1(rows.data)
}

// ExecLobRows is the streaming variant of ExecRows.
func ExecLobRows(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam) ([]map[string]interface{}, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
	if err != nil {
		return nil, err
	}
	return rows.data, nil
}

// ExecLobMap is the streaming variant of ExecMap.
func ExecLobMap(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam) (map[string]interface{}, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
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

// ExecLobSingleton0 is the streaming variant of ExecSingleton0.
func ExecLobSingleton0(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam) (interface{}, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
	if err != nil {
		return nil, err
	}
	return shapeSingleton0(rows.data)
}

// ExecLobSingleton1 is the streaming variant of ExecSingleton1.
func ExecLobSingleton1(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam) (interface{}, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
	if err != nil {
		return nil, err
	}
	return shapeSingleton1(rows.data)
}

// ExecLobFunction is the streaming variant of ExecFunction.
func ExecLobFunction(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam) (interface{}, error) {
	return ExecLobSingleton1(ctx, db, callText, chunkSize, lobs)
}

// ExecLobLog is the streaming variant of ExecLog.
func ExecLobLog(ctx context.Context, db *sql.DB, logger *zap.Logger, callText string, chunkSize int, lobs []LobParam) (int64, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
	if err != nil {
		return 0, err
	}

	for _, row := range rows.data {
		fields := make([]zap.Field, 0, len(row))
		for col, v := range row {
			fields = append(fields, zap.Any(col, v))
		}
		logger.Info("routine log row", fields...)
	}
	return int64(len(rows.data)), nil
}

// ExecLobTable is the streaming variant of ExecTable.
func ExecLobTable(ctx context.Context, db *sql.DB, w io.Writer, callText string, chunkSize int, lobs []LobParam) (int64, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
	if err != nil {
		return 0, err
	}

	if err := renderTable(w, rows.columns, rows.data); err != nil {
		return 0, err
	}
	return int64(len(rows.data)), nil
}

// ExecLobRowsWithKey is the streaming variant of ExecRowsWithKey.
func ExecLobRowsWithKey(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam, keys ...string) (map[string]interface{}, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
	if err != nil {
		return nil, err
	}
	return nestByKey(rows.data, keys)
}

// ExecLobRowsWithIndex is the streaming variant of ExecRowsWithIndex.
func ExecLobRowsWithIndex(ctx context.Context, db *sql.DB, callText string, chunkSize int, lobs []LobParam, keys ...string) (map[string]interface{}, error) {
	rows, err := queryLob(ctx, db, callText, chunkSize, lobs)
	if err != nil {
		return nil, err
	}
	return nestByIndex(rows.data, keys)
}

// ExecLobBulk is the streaming variant of ExecBulk. Rows are handed to
// the handler while the statement cursor is open.
func ExecLobBulk(ctx context.Context, db *sql.DB, handler RowHandler, callText string, chunkSize int, lobs []LobParam) (int64, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if err := stageLobs(ctx, conn, chunkSize, lobs); err != nil {
		return 0, err
	}
	defer releaseLobs(ctx, conn, lobs)

	stmt, err := conn.PrepareContext(ctx, callText)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare call: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
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
