// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package ast

import (
	"fmt"
	"strconv"
)

// Op is the kind of a binary arithmetic operator.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
)

// Name returns the long name of the operator used in prefix output.
func (op Op) Name() string {
	switch op {
	case Add:
		return "Add"
	case Sub:
		return "Subtract"
	case Mul:
		return "Multiply"
	case Div:
		return "Divide"
	}
	return "Op(" + strconv.Itoa(int(op)) + ")"
}

// Symbol returns the infix symbol of the operator.
func (op Op) Symbol() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	}
	return "?"
}

// Valid reports whether op is one of the four arithmetic operators.
func (op Op) Valid() bool {
	return op >= Add && op <= Div
}

// Apply computes left op right with IEEE-754 semantics.
func (op Op) Apply(left, right float64) float64 {
	switch op {
	case Add:
		return left + right
	case Sub:
		return left - right
	case Mul:
		return left * right
	case Div:
		return left / right
	}
	panic(fmt.Sprintf("internal error: unknown operator %d", int(op)))
}

// Node is an expression node. The set of node kinds is closed: Parameter,
// Constant and Binary.
type Node interface {
	// String returns an infix representation for debugging purposes.
	String() string

	// node is a marker method.
	node()
}

// Unresolved is the index of a Parameter that has not been bound to a
// position in a Tree's parameter list yet.
const Unresolved = -1

// Parameter references one of the declared parameters of a Tree.
type Parameter struct {
	Name string
	// Index is the position of Name in Tree.Params, or Unresolved.
	Index int
}

func (p *Parameter) String() string {
	return p.Name
}

// Marker function for Node.
func (p *Parameter) node() {}

// Constant is a floating point literal.
type Constant struct {
	Value float64
}

func (c *Constant) String() string {
	return strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// Marker function for Node.
func (c *Constant) node() {}

// Binary applies Op to the results of Left and Right.
type Binary struct {
	Op    Op
	Left  Node
	Right Node
}

func (b *Binary) String() string {
	return "(" + nodeString(b.Left) + " " + b.Op.Symbol() + " " + nodeString(b.Right) + ")"
}

// Marker function for Node.
func (b *Binary) node() {}

func nodeString(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

// NewParameter returns an unresolved parameter reference.
func NewParameter(name string) *Parameter {
	return &Parameter{Name: name, Index: Unresolved}
}

// NewIndexedParameter returns a parameter reference with an explicit
// position. NewTree checks that the position matches the declaration.
func NewIndexedParameter(name string, index int) *Parameter {
	return &Parameter{Name: name, Index: index}
}

// NewConstant returns a constant node.
func NewConstant(v float64) *Constant {
	return &Constant{Value: v}
}

// NewBinary returns a binary operator node.
func NewBinary(op Op, left, right Node) *Binary {
	return &Binary{Op: op, Left: left, Right: right}
}
