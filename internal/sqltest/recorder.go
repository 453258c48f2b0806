// Package sqltest provides a recording database driver for tests that
// assert which connection carried a statement. The pool it opens keeps
// no idle connections, so statements that are not pinned to one
// connection spread across fresh connections instead of reusing one by
// accident.
package sqltest

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Statement is one executed or queried statement together with the id
// of the connection that carried it. Connection ids start at 1 and
// increase with every connection the pool opens.
type Statement struct {
	Conn  int
	Query string
}

// Result is a canned result set served for matching queries.
type Result struct {
	Columns []string
	Rows    [][]driver.Value
}

// Recorder is a database driver whose connections record statement
// traffic. The zero value is ready to use.
type Recorder struct {
	mu      sync.Mutex
	conns   int
	stmts   []Statement
	results map[string]Result
}

var driverNames atomic.Int64

// DB registers the recorder under a fresh driver name and opens a pool
// on it with no idle connections.
func (r *Recorder) DB() (*sql.DB, error) {
	name := fmt.Sprintf("sqltest-%d", driverNames.Add(1))
	sql.Register(name, r)

	db, err := sql.Open(name, "")
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(0)
	return db, nil
}

// SetResult serves res for every query containing substr. Queries
// without a canned result return an empty result set.
func (r *Recorder) SetResult(substr string, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = make(map[string]Result)
	}
	r.results[substr] = res
}

// Statements returns the recorded traffic in execution order.
func (r *Recorder) Statements() []Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Statement, len(r.stmts))
	copy(out, r.stmts)
	return out
}

// Open implements driver.Driver.
func (r *Recorder) Open(string) (driver.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns++
	return &conn{id: r.conns, rec: r}, nil
}

func (r *Recorder) record(connID int, query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stmts = append(r.stmts, Statement{Conn: connID, Query: query})
}

func (r *Recorder) lookup(query string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	for substr, res := range r.results {
		if strings.Contains(query, substr) {
			return res
		}
	}
	return Result{}
}

type conn struct {
	id  int
	rec *Recorder
}

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error { return nil }

func (c *conn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("transactions are not supported")
}

type stmt struct {
	conn  *conn
	query string
}

func (s *stmt) Close() error { return nil }

func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec([]driver.Value) (driver.Result, error) {
	s.conn.rec.record(s.conn.id, s.query)
	return driver.RowsAffected(0), nil
}

func (s *stmt) Query([]driver.Value) (driver.Rows, error) {
	s.conn.rec.record(s.conn.id, s.query)
	res := s.conn.rec.lookup(s.query)
	return &rows{columns: res.Columns, data: res.Rows}, nil
}

type rows struct {
	columns []string
	data    [][]driver.Value
	next    int
}

func (r *rows) Columns() []string { return r.columns }

func (r *rows) Close() error { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.next >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.next])
	r.next++
	return nil
}
