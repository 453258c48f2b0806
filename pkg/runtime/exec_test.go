package runtime

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestExecNone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("CALL customer_delete(1)").WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := ExecNone(context.Background(), db, "CALL customer_delete(1)")
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecRow1(t *testing.T) {
	call := "CALL customer_get(1)"

	t.Run("exactly one row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(
			sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "alice"))

		row, err := ExecRow1(context.Background(), db, call)
		require.NoError(t, err)
		assert.Equal(t, int64(1), row["id"])
		assert.Equal(t, "alice", row["name"])
	})

	t.Run("zero rows is a shape error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

		_, err := ExecRow1(context.Background(), db, call)
		var shapeErr *ResultShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, 0, shapeErr.Actual)
	})

	t.Run("two rows is a shape error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(
			sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a").AddRow(2, "b"))

		_, err := ExecRow1(context.Background(), db, call)
		var shapeErr *ResultShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, 2, shapeErr.Actual)
	})
}

func TestExecRow0(t *testing.T) {
	call := "CALL customer_find('alice')"

	t.Run("zero rows yields nil", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		row, err := ExecRow0(context.Background(), db, call)
		require.NoError(t, err)
		assert.Nil(t, row)
	})

	t.Run("two rows is a shape error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(
			sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

		_, err := ExecRow0(context.Background(), db, call)
		var shapeErr *ResultShapeError
		assert.ErrorAs(t, err, &shapeErr)
	})
}

func TestExecRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("CALL customer_all()").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))

	rows, err := ExecRows(context.Background(), db, "CALL customer_all()")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExecSingleton0(t *testing.T) {
	call := "CALL customer_max_id()"

	t.Run("zero rows yields nil", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(sqlmock.NewRows([]string{"max_id"}))

		v, err := ExecSingleton0(context.Background(), db, call)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("one row yields the scalar", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(sqlmock.NewRows([]string{"max_id"}).AddRow(int64(42)))

		v, err := ExecSingleton0(context.Background(), db, call)
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)
	})

	t.Run("two rows is a shape error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(
			sqlmock.NewRows([]string{"max_id"}).AddRow(1).AddRow(2))

		_, err := ExecSingleton0(context.Background(), db, call)
		var shapeErr *ResultShapeError
		assert.ErrorAs(t, err, &shapeErr)
	})
}

func TestExecSingleton1(t *testing.T) {
	call := "CALL customer_count()"

	t.Run("requires exactly one row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(sqlmock.NewRows([]string{"n"}))

		_, err := ExecSingleton1(context.Background(), db, call)
		var shapeErr *ResultShapeError
		assert.ErrorAs(t, err, &shapeErr)
	})

	t.Run("requires exactly one column", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(call).WillReturnRows(
			sqlmock.NewRows([]string{"a", "b"}).AddRow(1, 2))

		_, err := ExecSingleton1(context.Background(), db, call)
		assert.ErrorContains(t, err, "exactly 1 column")
	})
}

func TestExecFunction(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT customer_max_id()").WillReturnRows(
		sqlmock.NewRows([]string{"customer_max_id()"}).AddRow(int64(7)))

	v, err := ExecFunction(context.Background(), db, "SELECT customer_max_id()")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestExecMap(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("CALL customer_names()").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "alice").
			AddRow(2, "bob"))

	m, err := ExecMap(context.Background(), db, "CALL customer_names()")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"1": "alice", "2": "bob"}, m)
}

func TestExecMap_WrongColumnCountWithoutRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("CALL customer_names()").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "email"}))

	_, err := ExecMap(context.Background(), db, "CALL customer_names()")
	assert.ErrorContains(t, err, "exactly 2 columns")
}

func TestExecLog(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("CALL audit_tail()").WillReturnRows(
		sqlmock.NewRows([]string{"message"}).AddRow("first").AddRow("second"))

	core, observed := observer.New(zap.InfoLevel)
	logged, err := ExecLog(context.Background(), db, zap.New(core), "CALL audit_tail()")
	require.NoError(t, err)
	assert.Equal(t, int64(2), logged)
	assert.Equal(t, 2, observed.Len())
}

func TestExecTable(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("CALL customer_all()").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "alice").
			AddRow(2, nil))

	var buf bytes.Buffer
	n, err := ExecTable(context.Background(), db, &buf, "CALL customer_all()")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	out := buf.String()
	assert.Contains(t, out, "id  name")
	assert.Contains(t, out, "1   alice")
	assert.Contains(t, out, "2   NULL")
}

func TestExecBulk(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("CALL customer_all()").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	var seen []map[string]interface{}
	n, err := ExecBulk(context.Background(), db, func(row map[string]interface{}) error {
		seen = append(seen, row)
		return nil
	}, "CALL customer_all()")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Len(t, seen, 2)
}

func TestExecBulk_HandlerErrorStopsFetch(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("CALL customer_all()").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	boom := errors.New("boom")
	n, err := ExecBulk(context.Background(), db, func(map[string]interface{}) error {
		return boom
	}, "CALL customer_all()")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), n)
}

func TestExecBulkInsert(t *testing.T) {
	db, mock := newMock(t)
	prep := mock.ExpectPrepare("INSERT INTO `customer` (`name`, `status`) VALUES (?, ?)")
	prep.ExpectExec().WithArgs("alice", 1).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("bob", 2).WillReturnResult(sqlmock.NewResult(2, 1))

	n, err := ExecBulkInsert(context.Background(), db, "customer", []string{"name", "status"},
		[][]interface{}{{"alice", 1}, {"bob", 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecBulkInsert_RowArityMismatch(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectPrepare("INSERT INTO `customer` (`name`) VALUES (?)")

	_, err := ExecBulkInsert(context.Background(), db, "customer", []string{"name"},
		[][]interface{}{{"alice", "extra"}})
	assert.ErrorContains(t, err, "has 2 values, want 1")
}

func TestExecRowsWithKey(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("CALL orders_all()").WillReturnRows(
		sqlmock.NewRows([]string{"customer_id", "order_id", "total"}).
			AddRow("c1", "o1", 10).
			AddRow("c1", "o2", 20).
			AddRow("c2", "o3", 30))

	got, err := ExecRowsWithKey(context.Background(), db, "CALL orders_all()", "customer_id", "order_id")
	require.NoError(t, err)

	c1, ok := got["c1"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, c1, 2)

	o1, ok := c1["o1"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 10, o1["total"])
}

func TestExecRowsWithIndex(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("CALL orders_all()").WillReturnRows(
		sqlmock.NewRows([]string{"customer_id", "total"}).
			AddRow("c1", 10).
			AddRow("c1", 20).
			AddRow("c2", 30))

	got, err := ExecRowsWithIndex(context.Background(), db, "CALL orders_all()", "customer_id")
	require.NoError(t, err)

	c1, ok := got["c1"].([]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, c1, 2)

	c2, ok := got["c2"].([]map[string]interface{})
	require.True(t, ok)
	assert.Len(t, c2, 1)
}
