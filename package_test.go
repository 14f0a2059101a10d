// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package exprc_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	. "gopkg.in/check.v1"
	_ "modernc.org/sqlite"

	"github.com/canonical/exprc"
	"github.com/canonical/exprc/internal/ast"
	"github.com/canonical/exprc/internal/bytecode"
)

type PackageSuite struct{}

var _ = Suite(&PackageSuite{})

func openDB(c *C, driver string) *exprc.DB {
	sqldb, err := sql.Open(driver, ":memory:")
	c.Assert(err, IsNil)
	return exprc.NewDB(sqldb)
}

var strategies = []exprc.Strategy{exprc.Interpreter, exprc.ClosureCompiler}

func bindings(params []string, args []float64) map[string]float64 {
	m := make(map[string]float64, len(params))
	for i, name := range params {
		m[name] = args[i]
	}
	return m
}

func (s *PackageSuite) TestExamples(c *C) {
	var tests = []struct {
		summary  string
		params   []string
		body     exprc.Node
		args     []float64
		prefix   string
		sql      string
		expected float64
	}{{
		summary:  "a + b",
		params:   []string{"a", "b"},
		body:     exprc.Add(exprc.Param("a"), exprc.Param("b")),
		args:     []float64{1, 2},
		prefix:   "Add(a, b)",
		sql:      "SELECT (@a + @b);",
		expected: 3,
	}, {
		summary: "a - b * c / 2 + d * 3",
		params:  []string{"a", "b", "c", "d"},
		body: exprc.Add(
			exprc.Sub(exprc.Param("a"), exprc.Div(exprc.Mul(exprc.Param("b"), exprc.Param("c")), exprc.Const(2))),
			exprc.Mul(exprc.Param("d"), exprc.Const(3))),
		args:     []float64{1, 2, 3, 4},
		prefix:   "Add(Subtract(a, Divide(Multiply(b, c), 2)), Multiply(d, 3))",
		sql:      "SELECT ((@a - ((@b * @c) / 2.0)) + (@d * 3.0));",
		expected: 10,
	}, {
		summary:  "declared but unused parameter",
		params:   []string{"unused", "x"},
		body:     exprc.Div(exprc.Param("x"), exprc.Const(8)),
		args:     []float64{100, 2},
		prefix:   "Divide(x, 8)",
		sql:      "SELECT (@x / 8.0);",
		expected: 0.25,
	}}

	for _, driver := range []string{"sqlite3", "sqlite"} {
		db := openDB(c, driver)
		for _, t := range tests {
			tree, err := exprc.NewTree(t.params, t.body)
			c.Assert(err, IsNil)

			prefix, err := exprc.Prefix(tree)
			c.Assert(err, IsNil)
			c.Assert(prefix, Equals, t.prefix, Commentf("test %q failed (Prefix)", t.summary))

			for _, strategy := range strategies {
				f, err := exprc.Compile(tree, strategy)
				c.Assert(err, IsNil)
				v, err := f.Call(t.args...)
				c.Assert(err, IsNil)
				c.Assert(v, Equals, t.expected, Commentf("test %q failed (%s)", t.summary, strategy))
			}

			stmt, err := exprc.CompileSQL(tree)
			c.Assert(err, IsNil)
			c.Assert(stmt.SQL(), Equals, t.sql, Commentf("test %q failed (CompileSQL)", t.summary))
			v, err := db.Eval(stmt, bindings(t.params, t.args))
			c.Assert(err, IsNil, Commentf("test %q failed (Eval on %s)", t.summary, driver))
			c.Assert(v, Equals, t.expected, Commentf("test %q failed (Eval on %s)", t.summary, driver))
		}
	}
}

func (s *PackageSuite) TestDivisionByZero(c *C) {
	tree := exprc.MustTree([]string{"a"}, exprc.Div(exprc.Param("a"), exprc.Const(0)))

	direct, err := tree.Eval(5)
	c.Assert(err, IsNil)
	c.Assert(math.IsInf(direct, 1), Equals, true)
	for _, strategy := range strategies {
		v, err := exprc.MustCompile(tree, strategy).Call(5)
		c.Assert(err, IsNil)
		c.Assert(math.IsInf(v, 1), Equals, true)
	}

	// SQLite has no infinity for a division by zero and returns NULL.
	db := openDB(c, "sqlite3")
	_, err = db.Eval(exprc.MustCompileSQL(tree), map[string]float64{"a": 5})
	c.Assert(errors.Is(err, exprc.ErrNullResult), Equals, true)
	var execErr *exprc.ExecutionError
	c.Assert(errors.As(err, &execErr), Equals, true)
	c.Assert(execErr.SQL, Equals, "SELECT (@a / 0.0);")
}

func (s *PackageSuite) TestDqliteDialectOnSQLite(c *C) {
	// dqlite runs SQLite, so its statements must also run on a local engine.
	tree := exprc.MustTree([]string{"a", "b"}, exprc.Sub(exprc.Param("b"), exprc.Div(exprc.Param("a"), exprc.Param("b"))))
	stmt := exprc.MustCompileSQL(tree, exprc.Dqlite)
	c.Assert(stmt.SQL(), Equals, "SELECT (?1 - (?2 / ?1));")
	c.Assert(stmt.Params(), DeepEquals, []string{"b", "a"})
	for _, driver := range []string{"sqlite3", "sqlite"} {
		db := openDB(c, driver)
		v, err := db.Eval(stmt, map[string]float64{"a": 8, "b": 2})
		c.Assert(err, IsNil, Commentf("%s", driver))
		c.Assert(v, Equals, -2.0, Commentf("%s", driver))
		c.Assert(db.PlainDB().Close(), IsNil)
	}
}

func (s *PackageSuite) TestReexportedErrors(c *C) {
	c.Assert(exprc.ErrTXDone, Equals, sql.ErrTxDone)
	c.Assert(exprc.ErrUnsupportedNodeKind, Equals, ast.ErrUnsupportedNodeKind)
	c.Assert(exprc.ErrMissingHandler, Equals, ast.ErrMissingHandler)
	c.Assert(exprc.ErrInvalidTree, Equals, ast.ErrInvalidTree)
	c.Assert(exprc.ErrMalformedProgram, Equals, bytecode.ErrMalformedProgram)
	c.Assert(exprc.ErrArity, Equals, bytecode.ErrArity)

	_, err := exprc.MustCompile(exprc.MustTree([]string{"a"}, exprc.Param("a")), exprc.Interpreter).Call()
	c.Assert(errors.Is(err, exprc.ErrArity), Equals, true)
	_, err = exprc.CompileSQL(exprc.MustTree(nil, exprc.Const(math.NaN())))
	c.Assert(errors.Is(err, exprc.ErrUnrepresentable), Equals, true)
}

func (s *PackageSuite) TestAssembleProgram(c *C) {
	tree := exprc.MustTree([]string{"a", "b"}, exprc.Sub(exprc.Param("a"), exprc.Param("b")))
	prog, err := exprc.CompileBytecode(tree)
	c.Assert(err, IsNil)
	f, err := exprc.Assemble(prog, exprc.ClosureCompiler)
	c.Assert(err, IsNil)
	v, err := f.Call(10, 4)
	c.Assert(err, IsNil)
	c.Assert(v, Equals, 6.0)

	_, err = f.Call(10)
	c.Assert(errors.Is(err, exprc.ErrArity), Equals, true)

	// An operator with a single operand on the stack.
	bad := &exprc.Program{Arity: 1, Code: []bytecode.Instruction{bytecode.Param(0), bytecode.Op(ast.Mul)}}
	_, err = exprc.Assemble(bad)
	c.Assert(errors.Is(err, exprc.ErrMalformedProgram), Equals, true)
}

func (s *PackageSuite) TestMissingBinding(c *C) {
	tree := exprc.MustTree([]string{"a", "b", "c"},
		exprc.Mul(exprc.Add(exprc.Param("a"), exprc.Param("b")), exprc.Param("c")))
	stmt := exprc.MustCompileSQL(tree)
	c.Assert(stmt.Params(), DeepEquals, []string{"a", "b", "c"})

	// A closed database would fail any round trip; the binding error comes
	// first.
	sqldb, err := sql.Open("sqlite3", ":memory:")
	c.Assert(err, IsNil)
	c.Assert(sqldb.Close(), IsNil)
	db := exprc.NewDB(sqldb)
	_, err = db.Eval(stmt, map[string]float64{"a": 1, "b": 2})
	c.Assert(errors.Is(err, exprc.ErrMissingBinding), Equals, true)

	// With the binding present the closed database is reached and fails.
	_, err = db.Eval(stmt, map[string]float64{"a": 1, "b": 2, "c": 3})
	var execErr *exprc.ExecutionError
	c.Assert(errors.As(err, &execErr), Equals, true)
}

func (s *PackageSuite) TestInvalidTree(c *C) {
	_, err := exprc.NewTree([]string{"a"}, exprc.Add(exprc.Param("a"), exprc.Param("b")))
	c.Assert(errors.Is(err, exprc.ErrInvalidTree), Equals, true)
	c.Assert(func() { exprc.MustTree(nil, exprc.Param("a")) }, PanicMatches, `invalid expression tree: parameter "a" not declared`)
}

func (s *PackageSuite) TestCompileOptions(c *C) {
	tree := exprc.MustTree(nil, exprc.Const(1))
	_, err := exprc.Compile(tree, exprc.Interpreter, exprc.ClosureCompiler)
	c.Assert(err, ErrorMatches, "cannot compile expression: expected at most one strategy, got 2")
	_, err = exprc.CompileSQL(tree, exprc.SQLite, exprc.MySQL)
	c.Assert(err, ErrorMatches, "cannot generate SQL: expected at most one dialect, got 2")

	stmt, err := exprc.CompileSQL(exprc.MustTree([]string{"a"}, exprc.Add(exprc.Param("a"), exprc.Param("a"))), exprc.MySQL)
	c.Assert(err, IsNil)
	c.Assert(stmt.SQL(), Equals, "SELECT (? + ?);")
	c.Assert(stmt.Dialect(), Equals, exprc.MySQL)

	_, err = exprc.CompileSQL(exprc.MustTree(nil, exprc.Const(math.NaN())))
	c.Assert(errors.Is(err, exprc.ErrUnrepresentable), Equals, true)
}

func (s *PackageSuite) TestIdempotentCompilation(c *C) {
	tree := exprc.MustTree([]string{"p", "q"},
		exprc.Sub(exprc.Mul(exprc.Param("q"), exprc.Const(1.5)), exprc.Div(exprc.Param("p"), exprc.Param("q"))))

	prog1, err := exprc.CompileBytecode(tree)
	c.Assert(err, IsNil)
	prog2, err := exprc.CompileBytecode(tree)
	c.Assert(err, IsNil)
	c.Assert(prog1, DeepEquals, prog2)

	sql1 := exprc.MustCompileSQL(tree)
	sql2 := exprc.MustCompileSQL(tree)
	c.Assert(sql1.SQL(), Equals, sql2.SQL())
	c.Assert(sql1.Params(), DeepEquals, sql2.Params())

	pre1, err := exprc.Prefix(tree)
	c.Assert(err, IsNil)
	pre2, err := exprc.Prefix(tree)
	c.Assert(err, IsNil)
	c.Assert(pre1, Equals, pre2)
}

func randomNode(r *rand.Rand, params []string, depth int) exprc.Node {
	if depth == 0 || r.Intn(4) == 0 {
		if r.Intn(2) == 0 {
			return exprc.Param(params[r.Intn(len(params))])
		}
		return exprc.Const(float64(r.Intn(19) - 9))
	}
	left := randomNode(r, params, depth-1)
	right := randomNode(r, params, depth-1)
	switch r.Intn(4) {
	case 0:
		return exprc.Add(left, right)
	case 1:
		return exprc.Sub(left, right)
	case 2:
		return exprc.Mul(left, right)
	default:
		return exprc.Div(left, right)
	}
}

func (s *PackageSuite) TestBackendsAgree(c *C) {
	r := rand.New(rand.NewSource(2024))
	params := []string{"a", "b", "c", "d"}
	db := openDB(c, "sqlite3")
	for i := 0; i < 300; i++ {
		tree := exprc.MustTree(params, randomNode(r, params, 5))
		args := make([]float64, len(params))
		for j := range args {
			args[j] = float64(r.Intn(21) - 10)
		}
		expected, err := tree.Eval(args...)
		c.Assert(err, IsNil)

		prog, err := exprc.CompileBytecode(tree)
		c.Assert(err, IsNil)
		leaves, operators := tree.Count()
		c.Assert(prog.Code, HasLen, leaves+operators)

		for _, strategy := range strategies {
			v, err := exprc.MustCompile(tree, strategy).Call(args...)
			c.Assert(err, IsNil)
			if math.IsNaN(expected) {
				c.Assert(math.IsNaN(v), Equals, true)
			} else {
				c.Assert(v, Equals, expected, Commentf("%s: %s with %v", strategy, tree, args))
			}
		}

		if math.IsNaN(expected) || math.IsInf(expected, 0) {
			continue
		}
		v, err := db.Eval(exprc.MustCompileSQL(tree), bindings(params, args))
		if errors.Is(err, exprc.ErrNullResult) {
			// A division by zero inside the tree.
			continue
		}
		c.Assert(err, IsNil)
		c.Assert(v, Equals, expected, Commentf("sql: %s with %v", tree, args))
	}
}

func (s *PackageSuite) TestConcurrentUse(c *C) {
	tree := exprc.MustTree([]string{"x", "y"},
		exprc.Add(exprc.Mul(exprc.Param("x"), exprc.Param("x")), exprc.Param("y")))
	f := exprc.MustCompile(tree, exprc.ClosureCompiler)
	g := exprc.MustCompile(tree, exprc.Interpreter)
	stmt := exprc.MustCompileSQL(tree)
	db := openDB(c, "sqlite")

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := float64(i), float64(2*i)
			want := x*x + y
			for _, fn := range []*exprc.Func{f, g} {
				v, err := fn.Call(x, y)
				if err != nil {
					errs <- err
					return
				}
				if v != want {
					errs <- errors.New("bytecode result mismatch")
					return
				}
			}
			v, err := db.EvalContext(context.Background(), stmt, map[string]float64{"x": x, "y": y})
			if err != nil {
				errs <- err
				return
			}
			if v != want {
				errs <- errors.New("sql result mismatch")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		c.Check(err, IsNil)
	}

	// Concurrent first evaluations share a single prepared statement.
	c.Assert(exprc.PreparedOn(db.CacheID()), Equals, 1)
	runtime.KeepAlive(stmt)
}
