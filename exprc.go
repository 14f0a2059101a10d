// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package exprc

import (
	"fmt"

	"github.com/canonical/exprc/internal/ast"
	"github.com/canonical/exprc/internal/bytecode"
	"github.com/canonical/exprc/internal/prefix"
	"github.com/canonical/exprc/internal/sqlgen"
)

// Node is an expression node built with Param, Const, Add, Sub, Mul and Div.
type Node = ast.Node

// Tree is a validated expression with its ordered parameter list.
type Tree = ast.Tree

// Program is a stack machine instruction sequence.
type Program = bytecode.Program

// Func is a callable assembled from a Program.
type Func = bytecode.Func

// Strategy selects how a Program is assembled into a Func.
type Strategy = bytecode.Strategy

const (
	// Interpreter runs the bytecode on a value stack at every call.
	Interpreter = bytecode.Interpret
	// ClosureCompiler turns every instruction into a closure once, when the
	// Func is assembled.
	ClosureCompiler = bytecode.Compile
)

// Dialect selects the placeholder syntax of generated SQL.
type Dialect = sqlgen.Dialect

const (
	// SQLite writes @name placeholders, bound by name.
	SQLite = sqlgen.SQLite
	// Dqlite writes ?N placeholders, one number per distinct parameter,
	// bound by position.
	Dqlite = sqlgen.Dqlite
	// Postgres writes typed $N placeholders, one number per distinct
	// parameter.
	Postgres = sqlgen.Postgres
	// MySQL writes a ? placeholder for every occurrence of a parameter.
	MySQL = sqlgen.MySQL
)

var (
	// ErrUnsupportedNodeKind is returned when a tree holds a node that is not
	// built by Param, Const or one of the operators.
	ErrUnsupportedNodeKind = ast.ErrUnsupportedNodeKind
	// ErrMissingHandler is returned when a traversal has no handler for a
	// node kind of the tree.
	ErrMissingHandler = ast.ErrMissingHandler
	// ErrInvalidTree is returned by NewTree for a malformed tree.
	ErrInvalidTree = ast.ErrInvalidTree
	// ErrMalformedProgram is returned when a bytecode program cannot run.
	ErrMalformedProgram = bytecode.ErrMalformedProgram
	// ErrArity is returned when a Func is called with the wrong number of
	// arguments.
	ErrArity = bytecode.ErrArity
	// ErrMissingBinding is returned when a statement parameter has no value.
	ErrMissingBinding = sqlgen.ErrMissingBinding
	// ErrUnrepresentable is returned when a constant cannot be written in SQL.
	ErrUnrepresentable = sqlgen.ErrUnrepresentable
)

// Param references the parameter called name. Its position is taken from
// the parameter list given to NewTree.
func Param(name string) Node {
	return ast.NewParameter(name)
}

// Const is a numeric literal.
func Const(v float64) Node {
	return ast.NewConstant(v)
}

// Add is left + right.
func Add(left, right Node) Node {
	return ast.NewBinary(ast.Add, left, right)
}

// Sub is left - right.
func Sub(left, right Node) Node {
	return ast.NewBinary(ast.Sub, left, right)
}

// Mul is left * right.
func Mul(left, right Node) Node {
	return ast.NewBinary(ast.Mul, left, right)
}

// Div is left / right. Division by zero follows IEEE-754 in the bytecode
// backends.
func Div(left, right Node) Node {
	return ast.NewBinary(ast.Div, left, right)
}

// NewTree validates body against the ordered parameter names and returns an
// immutable Tree. Every parameter referenced by body must be declared.
func NewTree(params []string, body Node) (*Tree, error) {
	return ast.NewTree(params, body)
}

// MustTree is the same as [NewTree] except that it panics on error.
func MustTree(params []string, body Node) *Tree {
	t, err := NewTree(params, body)
	if err != nil {
		panic(err)
	}
	return t
}

// Prefix returns the pre-order form of the tree, e.g. "Add(a, b)".
func Prefix(t *Tree) (string, error) {
	return prefix.Print(t)
}

// CompileBytecode generates the stack machine program for the tree.
func CompileBytecode(t *Tree) (*Program, error) {
	return bytecode.Generate(t)
}

// Compile generates and assembles the tree into a callable taking the tree's
// parameters in declaration order. The strategy defaults to [Interpreter].
func Compile(t *Tree, strategy ...Strategy) (f *Func, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot compile expression: %w", err)
		}
	}()

	s, err := pickStrategy(strategy)
	if err != nil {
		return nil, err
	}
	prog, err := bytecode.Generate(t)
	if err != nil {
		return nil, err
	}
	return bytecode.Assemble(prog, s)
}

// Assemble validates a program and turns it into a callable. The strategy
// defaults to [Interpreter].
func Assemble(p *Program, strategy ...Strategy) (f *Func, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot assemble program: %w", err)
		}
	}()

	s, err := pickStrategy(strategy)
	if err != nil {
		return nil, err
	}
	return bytecode.Assemble(p, s)
}

func pickStrategy(strategy []Strategy) (Strategy, error) {
	switch len(strategy) {
	case 0:
		return Interpreter, nil
	case 1:
		return strategy[0], nil
	}
	return 0, fmt.Errorf("expected at most one strategy, got %d", len(strategy))
}

// MustCompile is the same as [Compile] except that it panics on error.
func MustCompile(t *Tree, strategy ...Strategy) *Func {
	f, err := Compile(t, strategy...)
	if err != nil {
		panic(err)
	}
	return f
}

// Statement is a SQL statement generated from a tree, ready to be evaluated
// on any [DB]. The dialect defaults to [SQLite].
type Statement struct {
	// cacheID is used to look up the driver prepared statements associated
	// with this Statement.
	cacheID uint64
	gen     *sqlgen.Statement
}

// CompileSQL generates the SQL statement for the tree.
func CompileSQL(t *Tree, dialect ...Dialect) (s *Statement, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot generate SQL: %w", err)
		}
	}()

	d := SQLite
	switch len(dialect) {
	case 0:
	case 1:
		d = dialect[0]
	default:
		return nil, fmt.Errorf("expected at most one dialect, got %d", len(dialect))
	}
	gen, err := sqlgen.Generate(t, d)
	if err != nil {
		return nil, err
	}
	return stmtCache.newStatement(gen), nil
}

// MustCompileSQL is the same as [CompileSQL] except that it panics on error.
func MustCompileSQL(t *Tree, dialect ...Dialect) *Statement {
	s, err := CompileSQL(t, dialect...)
	if err != nil {
		panic(err)
	}
	return s
}

// SQL returns the text of the statement.
func (s *Statement) SQL() string {
	return s.gen.SQL()
}

// Params returns the distinct parameter names the statement needs bindings
// for, in order of first appearance.
func (s *Statement) Params() []string {
	return s.gen.Params()
}

// Dialect returns the dialect of the statement.
func (s *Statement) Dialect() Dialect {
	return s.gen.Dialect()
}
