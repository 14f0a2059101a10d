// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package ast

import "fmt"

// Eval evaluates the tree directly by walking it. args are given in
// declaration order.
func (t *Tree) Eval(args ...float64) (float64, error) {
	if len(args) != len(t.params) {
		return 0, fmt.Errorf("expected %d arguments, got %d", len(t.params), len(args))
	}
	return Visit(t.body, Handlers[float64]{
		Parameter: func(p *Parameter) (float64, error) {
			return args[p.Index], nil
		},
		Constant: func(c *Constant) (float64, error) {
			return c.Value, nil
		},
		Binary: func(b *Binary, left, right float64) (float64, error) {
			return b.Op.Apply(left, right), nil
		},
	})
}

// Count returns the number of leaves and binary operators in the tree.
func (t *Tree) Count() (leaves, operators int) {
	// The body of a Tree only holds known node kinds, so Walk cannot fail.
	_ = Walk(t.body, PreOrder, func(n Node) error {
		if _, ok := n.(*Binary); ok {
			operators++
		} else {
			leaves++
		}
		return nil
	})
	return leaves, operators
}
