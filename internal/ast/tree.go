// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package ast

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTree is returned by NewTree when the body does not agree with the
// declared parameter list.
var ErrInvalidTree = errors.New("invalid expression tree")

// Tree is a validated expression body together with its ordered parameter
// list. A Tree is immutable and safe for concurrent use.
type Tree struct {
	params []string
	body   Node
}

// NewTree checks the body against params and returns a Tree whose Parameter
// nodes all carry their declared position. The returned body is a fresh copy;
// the nodes passed in are never modified and may be shared between trees.
func NewTree(params []string, body Node) (t *Tree, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("%w: %s", ErrInvalidTree, err)
		}
	}()

	index := make(map[string]int, len(params))
	for i, name := range params {
		if name == "" {
			return nil, fmt.Errorf("parameter %d has an empty name", i)
		}
		if j, ok := index[name]; ok {
			return nil, fmt.Errorf("parameter %q declared at positions %d and %d", name, j, i)
		}
		index[name] = i
	}

	resolved, err := resolve(body, index)
	if err != nil {
		return nil, err
	}
	return &Tree{params: append([]string(nil), params...), body: resolved}, nil
}

// resolve copies n, binding every parameter reference to its declared index.
func resolve(n Node, index map[string]int) (Node, error) {
	switch n := n.(type) {
	case *Parameter:
		i, ok := index[n.Name]
		if !ok {
			return nil, fmt.Errorf("parameter %q not declared", n.Name)
		}
		if n.Index != Unresolved && n.Index != i {
			return nil, fmt.Errorf("parameter %q has index %d, declared at position %d", n.Name, n.Index, i)
		}
		return &Parameter{Name: n.Name, Index: i}, nil
	case *Constant:
		return &Constant{Value: n.Value}, nil
	case *Binary:
		if !n.Op.Valid() {
			return nil, fmt.Errorf("unknown operator %d", int(n.Op))
		}
		left, err := resolve(n.Left, index)
		if err != nil {
			return nil, err
		}
		right, err := resolve(n.Right, index)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: n.Op, Left: left, Right: right}, nil
	default:
		return nil, unsupported(n)
	}
}

// Params returns a copy of the ordered parameter names.
func (t *Tree) Params() []string {
	return append([]string(nil), t.params...)
}

// Arity is the number of declared parameters.
func (t *Tree) Arity() int {
	return len(t.params)
}

// Body returns the root of the expression. The nodes must not be modified.
func (t *Tree) Body() Node {
	return t.body
}

// String returns the tree in lambda form, e.g. "(a, b) => (a + b)".
func (t *Tree) String() string {
	return "(" + strings.Join(t.params, ", ") + ") => " + t.body.String()
}
