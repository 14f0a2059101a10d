// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlgen

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/canonical/exprc/internal/ast"
)

var (
	// ErrMissingBinding is returned by Bind when a placeholder of the
	// statement has no value.
	ErrMissingBinding = errors.New("missing parameter binding")
	// ErrUnrepresentable is returned by Generate for constants that have no
	// SQL literal, such as NaN and the infinities.
	ErrUnrepresentable = errors.New("constant has no SQL literal")
)

// Statement is a generated SQL statement together with the names of the
// parameters it references. A Statement is immutable.
type Statement struct {
	sql     string
	dialect Dialect
	// params are the distinct parameter names in order of first appearance.
	params []string
	// occurrences are the parameter names in the order their placeholders
	// appear in the SQL, repetitions included.
	occurrences []string
}

// SQL returns the SQL text.
func (s *Statement) SQL() string {
	return s.sql
}

// Dialect returns the dialect the statement was generated for.
func (s *Statement) Dialect() Dialect {
	return s.dialect
}

// Params returns the distinct parameter names referenced by the statement in
// order of first appearance.
func (s *Statement) Params() []string {
	return append([]string(nil), s.params...)
}

// Generate renders the tree body as a single SELECT statement. Every binary
// node is written in infix form inside parentheses, so the SQL engine's
// operator precedence never matters.
func Generate(t *ast.Tree, d Dialect) (*Statement, error) {
	if !d.valid() {
		return nil, fmt.Errorf("unknown dialect %d", int(d))
	}

	var b sqlBuilder
	seen := map[string]int{}
	stmt := &Statement{dialect: d}
	// Visit calls the handlers left to right, so parameters are numbered in
	// the order their placeholders appear in the SQL.
	expr, err := ast.Visit(t.Body(), ast.Handlers[string]{
		Parameter: func(p *ast.Parameter) (string, error) {
			n, ok := seen[p.Name]
			if !ok {
				n = len(stmt.params)
				seen[p.Name] = n
				stmt.params = append(stmt.params, p.Name)
			}
			stmt.occurrences = append(stmt.occurrences, p.Name)
			return d.placeholder(p.Name, n), nil
		},
		Constant: func(c *ast.Constant) (string, error) {
			return literal(c.Value)
		},
		Binary: func(n *ast.Binary, left, right string) (string, error) {
			return "(" + left + " " + n.Op.Symbol() + " " + right + ")", nil
		},
	})
	if err != nil {
		return nil, err
	}
	b.writeSelect(expr)
	stmt.sql = b.getSQL()
	return stmt, nil
}

// literal writes v as a SQL REAL literal. Integral values get a fractional
// part so that the engine never falls back to integer division.
func literal(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: %v", ErrUnrepresentable, v)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	if math.Signbit(v) {
		// "a - -1.0" would start a comment.
		s = "(" + s + ")"
	}
	return s, nil
}

// Bind returns the query arguments for the statement, taking the value of
// every parameter from values. All missing names are reported together and
// nothing is returned in that case. Names in values that the statement does
// not reference are ignored.
func (s *Statement) Bind(values map[string]float64) ([]any, error) {
	var missing []string
	for _, name := range s.params {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingBinding, strings.Join(missing, ", "))
	}

	names := s.params
	if s.dialect.bindsOccurrences() {
		names = s.occurrences
	}
	args := make([]any, 0, len(names))
	for _, name := range names {
		if s.dialect.bindsNames() {
			args = append(args, sql.Named(name, values[name]))
		} else {
			args = append(args, values[name])
		}
	}
	return args, nil
}

// sqlBuilder is used to generate the SQL string piece by piece.
type sqlBuilder struct {
	buf bytes.Buffer
}

// writeSelect writes a scalar SELECT of expr.
func (b *sqlBuilder) writeSelect(expr string) {
	b.buf.WriteString("SELECT ")
	b.buf.WriteString(expr)
	b.buf.WriteString(";")
}

// getSQL returns the generated SQL string.
func (b *sqlBuilder) getSQL() string {
	return b.buf.String()
}
