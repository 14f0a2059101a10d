// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package bytecode

import (
	"errors"
	"fmt"
)

// ErrMalformedProgram is returned when an instruction sequence does not leave
// exactly one value on the stack, or cannot be executed at all.
var ErrMalformedProgram = errors.New("malformed instruction sequence")

func malformed(addr int, format string, a ...any) error {
	return fmt.Errorf("%w: instruction %d: %s", ErrMalformedProgram, addr, fmt.Sprintf(format, a...))
}

// Validate simulates the stack depth of the program and reports the first
// instruction that would underflow the stack or read an argument that does
// not exist. A valid program ends with exactly one value on the stack.
func Validate(p *Program) error {
	_, err := maxDepth(p)
	return err
}

// maxDepth validates p and returns the deepest the stack gets while running
// it.
func maxDepth(p *Program) (int, error) {
	if p == nil {
		return 0, fmt.Errorf("%w: nil program", ErrMalformedProgram)
	}
	if p.Arity < 0 {
		return 0, fmt.Errorf("%w: negative arity %d", ErrMalformedProgram, p.Arity)
	}
	if len(p.Code) == 0 {
		return 0, fmt.Errorf("%w: empty program", ErrMalformedProgram)
	}
	depth, deepest := 0, 0
	for addr, in := range p.Code {
		switch in.Code {
		case PushParam:
			if in.Index < 0 || in.Index >= p.Arity {
				return 0, malformed(addr, "parameter index %d out of range [0, %d)", in.Index, p.Arity)
			}
			depth++
		case PushConst:
			depth++
		case Operate:
			if !in.Op.Valid() {
				return 0, malformed(addr, "unknown operator %d", int(in.Op))
			}
			if depth < 2 {
				return 0, malformed(addr, "%s needs 2 operands, stack has %d", in, depth)
			}
			depth--
		default:
			return 0, malformed(addr, "unknown opcode %d", int(in.Code))
		}
		if depth > deepest {
			deepest = depth
		}
	}
	if depth != 1 {
		return 0, fmt.Errorf("%w: program leaves %d values on the stack, want 1", ErrMalformedProgram, depth)
	}
	return deepest, nil
}
