// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package exprc

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/mattn/go-sqlite3"
)

// This file contains a wrapper sql.Driver over the SQLite driver which
// monitors the creation and closing of prepared statements and counts the
// queries reaching the driver. Tests use it to check for statement leaks and
// to check that no query is sent when a statement cannot be bound.

// openedStmts and closedStmts store the pointers to the created/closed
// statements indexed by test case. We use unsafe pointers instead of references
// to the objects because if we stored a reference the runtime.Finalizer would
// not be able to run.
var openedStmts = map[string]map[uintptr]string{}
var closedStmts = map[string]map[uintptr]bool{}
var stmtRegistryMutex sync.RWMutex

// dbQueriesRun and stmtQueriesRun count the number of queries run directly
// against the database and queries that are run through a prepared statement.
// The maps are indexed by the test name. The queriesRunMutex must be used when
// accessing the counts.
var dbQueriesRun = map[string]int{}
var stmtQueriesRun = map[string]int{}
var queriesRunMutex sync.RWMutex

func countQuery(counts map[string]int, testName string) {
	queriesRunMutex.Lock()
	defer queriesRunMutex.Unlock()
	counts[testName]++
}

type Driver struct {
	driver.Driver
}

type Conn struct {
	testName string
	*sqlite3.SQLiteConn
}

type Stmt struct {
	testName string
	*sqlite3.SQLiteStmt
}

func (s *Stmt) Close() error {
	stmtRegistryMutex.Lock()
	defer stmtRegistryMutex.Unlock()
	if _, ok := closedStmts[s.testName]; !ok {
		closedStmts[s.testName] = map[uintptr]bool{}
	}
	closedStmts[s.testName][uintptr(unsafe.Pointer(s))] = true

	return s.SQLiteStmt.Close()
}

func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	rows, err := s.SQLiteStmt.QueryContext(ctx, args)
	if err == nil {
		countQuery(stmtQueriesRun, s.testName)
	}
	return rows, err
}

func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	s, err := c.SQLiteConn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	sm, ok := s.(*sqlite3.SQLiteStmt)
	if !ok {
		panic(fmt.Sprintf("internal error: base driver is not SQLite, got %T", s))
	}
	sPtr := &Stmt{SQLiteStmt: sm, testName: c.testName}

	stmtRegistryMutex.Lock()
	defer stmtRegistryMutex.Unlock()
	if _, ok := openedStmts[c.testName]; !ok {
		openedStmts[c.testName] = map[uintptr]string{}
	}
	openedStmts[c.testName][uintptr(unsafe.Pointer(sPtr))] = query

	return sPtr, nil
}

func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	rows, err := c.SQLiteConn.QueryContext(ctx, query, args)
	if err == nil {
		countQuery(dbQueriesRun, c.testName)
	}
	return rows, err
}

const TestNameTag = "testName"

// Open expects the DSN to contain the test name using the testNameTag
// attribute.
func (d *Driver) Open(name string) (driver.Conn, error) {
	var testName string
	if _, parameters, ok := strings.Cut(name, "?"); ok {
		for _, p := range strings.Split(parameters, "&") {
			if v, ok := strings.CutPrefix(p, TestNameTag+"="); ok {
				testName = v
			}
		}
	}
	if testName == "" {
		panic("internal error: testName is not found in the db DSN")
	}

	baseConn, err := d.Driver.Open(name)
	if err != nil {
		return nil, err
	}
	sqliteConn, ok := baseConn.(*sqlite3.SQLiteConn)
	if !ok {
		panic("internal error: base driver is not SQLite")
	}
	return &Conn{SQLiteConn: sqliteConn, testName: testName}, nil
}

func init() {
	sql.Register("sqlite3_stmtChecked", &Driver{
		&sqlite3.SQLiteDriver{},
	})
}
