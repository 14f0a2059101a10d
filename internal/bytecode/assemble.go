// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package bytecode

import (
	"errors"
	"fmt"

	"github.com/canonical/exprc/internal/ast"
)

// ErrArity is returned when a Func is called with the wrong number of
// arguments.
var ErrArity = errors.New("wrong number of arguments")

// Strategy selects how Assemble turns a program into a Func.
type Strategy int

const (
	// Interpret runs the instructions against a value stack on every call.
	Interpret Strategy = iota
	// Compile translates every instruction into a Go closure once, at
	// assembly time, and calls the resulting closure tree.
	Compile
)

func (s Strategy) String() string {
	switch s {
	case Interpret:
		return "interpret"
	case Compile:
		return "compile"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy returns the Strategy named by s.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "interpret":
		return Interpret, nil
	case "compile":
		return Compile, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// Func is an assembled program. It is immutable and safe for concurrent use.
type Func struct {
	arity    int
	strategy Strategy
	run      func(args []float64) float64
}

// Assemble validates the program and builds a callable from it. A program
// that fails Validate is never assembled.
func Assemble(p *Program, s Strategy) (*Func, error) {
	depth, err := maxDepth(p)
	if err != nil {
		return nil, err
	}
	// Copy the code so that later changes to p cannot affect the Func.
	code := append([]Instruction(nil), p.Code...)

	f := &Func{arity: p.Arity, strategy: s}
	switch s {
	case Interpret:
		f.run = interpreter(code, depth)
	case Compile:
		f.run = compile(code, depth)
	default:
		return nil, fmt.Errorf("unknown strategy %d", int(s))
	}
	return f, nil
}

// MustAssemble is the same as Assemble except that it panics on error.
func MustAssemble(p *Program, s Strategy) *Func {
	f, err := Assemble(p, s)
	if err != nil {
		panic(err)
	}
	return f
}

// Arity returns the number of arguments Call expects.
func (f *Func) Arity() int {
	return f.arity
}

// Strategy returns the strategy the Func was assembled with.
func (f *Func) Strategy() Strategy {
	return f.strategy
}

// Call runs the function with args given in parameter declaration order.
func (f *Func) Call(args ...float64) (float64, error) {
	if len(args) != f.arity {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrArity, f.arity, len(args))
	}
	return f.run(args), nil
}

// interpreter returns a function running code on a fresh value stack for
// every call. code must have been validated.
func interpreter(code []Instruction, depth int) func([]float64) float64 {
	return func(args []float64) float64 {
		stack := make([]float64, 0, depth)
		for _, in := range code {
			switch in.Code {
			case PushParam:
				stack = append(stack, args[in.Index])
			case PushConst:
				stack = append(stack, in.Value)
			case Operate:
				n := len(stack)
				right := stack[n-1]
				left := stack[n-2]
				stack[n-2] = in.Op.Apply(left, right)
				stack = stack[:n-1]
			}
		}
		return stack[0]
	}
}

type step func(args []float64) float64

// compile assembles one closure per instruction. The operand stack is
// simulated once here, so calling the result touches no stack at all.
// code must have been validated.
func compile(code []Instruction, depth int) func([]float64) float64 {
	stack := make([]step, 0, depth)
	for _, in := range code {
		switch in.Code {
		case PushParam:
			i := in.Index
			stack = append(stack, func(args []float64) float64 { return args[i] })
		case PushConst:
			v := in.Value
			stack = append(stack, func([]float64) float64 { return v })
		case Operate:
			n := len(stack)
			right := stack[n-1]
			left := stack[n-2]
			stack[n-2] = operate(in.Op, left, right)
			stack = stack[:n-1]
		}
	}
	return stack[0]
}

func operate(op ast.Op, left, right step) step {
	switch op {
	case ast.Add:
		return func(args []float64) float64 { return left(args) + right(args) }
	case ast.Sub:
		return func(args []float64) float64 { return left(args) - right(args) }
	case ast.Mul:
		return func(args []float64) float64 { return left(args) * right(args) }
	case ast.Div:
		return func(args []float64) float64 { return left(args) / right(args) }
	}
	panic(fmt.Sprintf("internal error: unknown operator %d", int(op)))
}
