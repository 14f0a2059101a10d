// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package prefix renders expression trees in pre-order function-call form,
// e.g. "Add(a, Multiply(b, 2))". The output is meant for debugging and tests.
package prefix

import (
	"strconv"
	"strings"

	"github.com/canonical/exprc/internal/ast"
)

// Print returns the prefix form of the tree body.
func Print(t *ast.Tree) (string, error) {
	return PrintNode(t.Body())
}

// PrintNode returns the prefix form of an expression node.
func PrintNode(n ast.Node) (string, error) {
	return ast.Visit(n, ast.Handlers[string]{
		Parameter: func(p *ast.Parameter) (string, error) {
			return p.Name, nil
		},
		Constant: func(c *ast.Constant) (string, error) {
			return strconv.FormatFloat(c.Value, 'g', -1, 64), nil
		},
		Binary: func(b *ast.Binary, left, right string) (string, error) {
			var sb strings.Builder
			sb.Grow(len(left) + len(right) + 12)
			sb.WriteString(b.Op.Name())
			sb.WriteByte('(')
			sb.WriteString(left)
			sb.WriteString(", ")
			sb.WriteString(right)
			sb.WriteByte(')')
			return sb.String(), nil
		},
	})
}
