// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package ast

import (
	"errors"
	"fmt"
)

// ErrUnsupportedNodeKind is returned when a traversal meets a node that is not
// a *Parameter, *Constant or *Binary.
var ErrUnsupportedNodeKind = errors.New("unsupported node kind")

func unsupported(n Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrUnsupportedNodeKind)
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedNodeKind, n)
}

// ErrMissingHandler is returned by Visit when the tree holds a node kind
// whose handler is nil.
var ErrMissingHandler = errors.New("missing handler")

// Handlers holds one function per node kind. Binary receives the results of
// visiting its left and right children, in that order. A handler may be left
// nil when the visited trees never hold its node kind.
type Handlers[T any] struct {
	Parameter func(p *Parameter) (T, error)
	Constant  func(c *Constant) (T, error)
	Binary    func(b *Binary, left, right T) (T, error)
}

// Visit folds the tree rooted at n bottom-up using h. The first error
// returned by a handler stops the traversal.
func Visit[T any](n Node, h Handlers[T]) (T, error) {
	var zero T
	switch n := n.(type) {
	case *Parameter:
		if h.Parameter == nil {
			return zero, fmt.Errorf("%w for *ast.Parameter", ErrMissingHandler)
		}
		return h.Parameter(n)
	case *Constant:
		if h.Constant == nil {
			return zero, fmt.Errorf("%w for *ast.Constant", ErrMissingHandler)
		}
		return h.Constant(n)
	case *Binary:
		if h.Binary == nil {
			return zero, fmt.Errorf("%w for *ast.Binary", ErrMissingHandler)
		}
		left, err := Visit(n.Left, h)
		if err != nil {
			return zero, err
		}
		right, err := Visit(n.Right, h)
		if err != nil {
			return zero, err
		}
		return h.Binary(n, left, right)
	default:
		return zero, unsupported(n)
	}
}

// Order is the position at which Walk reports a binary node relative to its
// children.
type Order int

const (
	// PreOrder reports a node before its children.
	PreOrder Order = iota
	// InOrder reports a node between its left and right child.
	InOrder
	// PostOrder reports a node after its children.
	PostOrder
)

func (o Order) String() string {
	switch o {
	case PreOrder:
		return "pre-order"
	case InOrder:
		return "in-order"
	case PostOrder:
		return "post-order"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// Walk calls fn for every node of the tree rooted at n in the given order.
// Leaves are reported once. Walk stops at the first error returned by fn.
func Walk(n Node, order Order, fn func(Node) error) error {
	if order < PreOrder || order > PostOrder {
		return fmt.Errorf("invalid traversal order %d", int(order))
	}
	return walk(n, order, fn)
}

func walk(n Node, order Order, fn func(Node) error) error {
	switch n := n.(type) {
	case *Parameter, *Constant:
		return fn(n)
	case *Binary:
		if order == PreOrder {
			if err := fn(n); err != nil {
				return err
			}
		}
		if err := walk(n.Left, order, fn); err != nil {
			return err
		}
		if order == InOrder {
			if err := fn(n); err != nil {
				return err
			}
		}
		if err := walk(n.Right, order, fn); err != nil {
			return err
		}
		if order == PostOrder {
			return fn(n)
		}
		return nil
	default:
		return unsupported(n)
	}
}
