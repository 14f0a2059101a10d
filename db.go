// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package exprc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrTXDone is returned when a statement is evaluated on a transaction that
// was already committed or rolled back.
var ErrTXDone = sql.ErrTxDone

// ErrNullResult is the cause of an [ExecutionError] when the database returns
// NULL, which SQLite does when dividing by zero.
var ErrNullResult = errors.New("statement returned NULL")

// ExecutionError reports a failure of the database while evaluating a
// statement. The underlying cause is available through errors.Unwrap.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("cannot evaluate %q: %s", e.SQL, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// DB evaluates compiled statements on a database, caching one prepared
// statement per Statement.
type DB struct {
	// cacheID is used to look up the cached driver prepared statements
	// prepared on this database.
	cacheID uint64
	// sqldb is the underlying database/sql DB object.
	sqldb *sql.DB
}

// NewDB creates a new [DB] from a [sql.DB].
func NewDB(sqldb *sql.DB) *DB {
	if sqldb == nil {
		return nil
	}
	return stmtCache.newDB(sqldb)
}

// PlainDB returns the underlying database object.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

// Eval is [DB.EvalContext] with a background context.
func (db *DB) Eval(s *Statement, bindings map[string]float64) (float64, error) {
	return db.EvalContext(context.Background(), s, bindings)
}

// EvalContext binds the parameters of s from bindings, runs it on the
// database as a scalar query and returns the result. A binding must be given
// for every name in [Statement.Params]; if one is missing the database is not
// contacted and the error wraps [ErrMissingBinding]. Failures of the database,
// including cancellation of ctx, are returned as an [*ExecutionError].
func (db *DB) EvalContext(ctx context.Context, s *Statement, bindings map[string]float64) (float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	args, err := s.gen.Bind(bindings)
	if err != nil {
		return 0, err
	}
	sqlstmt, err := stmtCache.prepareStmt(ctx, db.cacheID, db.sqldb, s)
	if err != nil {
		return 0, &ExecutionError{SQL: s.SQL(), Err: err}
	}
	return scanScalar(s, sqlstmt.QueryRowContext(ctx, args...))
}

// scanScalar reads the single value of row. Scan always closes the row, which
// gives its connection back to the pool on every path.
func scanScalar(s *Statement, row *sql.Row) (float64, error) {
	var v sql.NullFloat64
	if err := row.Scan(&v); err != nil {
		return 0, &ExecutionError{SQL: s.SQL(), Err: err}
	}
	if !v.Valid {
		return 0, &ExecutionError{SQL: s.SQL(), Err: ErrNullResult}
	}
	return v.Float64, nil
}

// TX represents a transaction on the database.
type TX struct {
	sqltx *sql.Tx
	db    *DB
	done  int32
}

func (tx *TX) isDone() bool {
	return atomic.LoadInt32(&tx.done) == 1
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// Begin starts a transaction. A transaction must be ended with a [TX.Commit]
// or [TX.Rollback].
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sqltx, err := db.sqldb.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, err
	}
	return &TX{sqltx: sqltx, db: db}, nil
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	return err
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}

// Eval is [TX.EvalContext] with a background context.
func (tx *TX) Eval(s *Statement, bindings map[string]float64) (float64, error) {
	return tx.EvalContext(context.Background(), s, bindings)
}

// EvalContext evaluates s inside the transaction. It behaves like
// [DB.EvalContext] and returns [ErrTXDone] once the transaction has ended.
func (tx *TX) EvalContext(ctx context.Context, s *Statement, bindings map[string]float64) (float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx.isDone() {
		return 0, ErrTXDone
	}
	args, err := s.gen.Bind(bindings)
	if err != nil {
		return 0, err
	}

	sqlstmt, ok := stmtCache.lookupStmt(tx.db.cacheID, s)
	if !ok {
		return scanScalar(s, tx.sqltx.QueryRowContext(ctx, s.SQL(), args...))
	}
	// Register the prepared statement on the transaction. This does not
	// re-prepare the statement on the driver. The txstmt is closed by
	// database/sql when the transaction is committed or rolled back.
	txstmt := tx.sqltx.StmtContext(ctx, sqlstmt)
	return scanScalar(s, txstmt.QueryRowContext(ctx, args...))
}
