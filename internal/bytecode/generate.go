// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package bytecode

import (
	"fmt"

	"github.com/canonical/exprc/internal/ast"
)

// Generate emits the post-order instruction sequence for the tree: both
// operands of a binary node are emitted before the node's Operate, so the
// operands are always on the stack when the operator runs.
func Generate(t *ast.Tree) (*Program, error) {
	leaves, operators := t.Count()
	p := &Program{
		Arity: t.Arity(),
		Names: t.Params(),
		Code:  make([]Instruction, 0, leaves+operators),
	}
	err := ast.Walk(t.Body(), ast.PostOrder, func(n ast.Node) error {
		switch n := n.(type) {
		case *ast.Parameter:
			p.emit(Param(n.Index))
		case *ast.Constant:
			p.emit(Const(n.Value))
		case *ast.Binary:
			p.emit(Op(n.Op))
		default:
			return fmt.Errorf("%w: %T", ast.ErrUnsupportedNodeKind, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
