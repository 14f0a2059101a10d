// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/canonical/exprc/internal/ast"
)

// Opcode identifies the action of an Instruction.
type Opcode uint8

const (
	// PushParam pushes the argument at Index.
	PushParam Opcode = iota
	// PushConst pushes Value.
	PushConst
	// Operate pops the right then the left operand and pushes left Op right.
	Operate
)

func (c Opcode) String() string {
	switch c {
	case PushParam:
		return "PUSHPARAM"
	case PushConst:
		return "PUSHCONST"
	case Operate:
		return "OPERATE"
	}
	return "Opcode(" + strconv.Itoa(int(c)) + ")"
}

// Instruction is a single stack machine instruction. Only the field relevant
// to Code is meaningful.
type Instruction struct {
	Code  Opcode
	Index int
	Value float64
	Op    ast.Op
}

// Param returns a PushParam instruction.
func Param(index int) Instruction {
	return Instruction{Code: PushParam, Index: index}
}

// Const returns a PushConst instruction.
func Const(v float64) Instruction {
	return Instruction{Code: PushConst, Value: v}
}

// Op returns an Operate instruction.
func Op(op ast.Op) Instruction {
	return Instruction{Code: Operate, Op: op}
}

func (in Instruction) String() string {
	switch in.Code {
	case PushParam:
		return "PushParam(" + strconv.Itoa(in.Index) + ")"
	case PushConst:
		return "PushConst(" + strconv.FormatFloat(in.Value, 'g', -1, 64) + ")"
	case Operate:
		return "Operate(" + in.Op.Name() + ")"
	}
	return in.Code.String()
}

// Program is a flat instruction sequence for a stack machine taking Arity
// arguments. Names, when set, holds the parameter names for listings.
type Program struct {
	Arity int
	Names []string
	Code  []Instruction
}

// emit appends an instruction to the program.
func (p *Program) emit(in Instruction) {
	p.Code = append(p.Code, in)
}

// String returns the program as an explain listing with one instruction per
// line: address, opcode, operand and a comment.
func (p *Program) String() string {
	var sb strings.Builder
	for addr, in := range p.Code {
		var operand, comment string
		switch in.Code {
		case PushParam:
			operand = strconv.Itoa(in.Index)
			if in.Index >= 0 && in.Index < len(p.Names) {
				comment = p.Names[in.Index]
			}
		case PushConst:
			operand = strconv.FormatFloat(in.Value, 'g', -1, 64)
		case Operate:
			operand = in.Op.Symbol()
			comment = in.Op.Name()
		}
		fmt.Fprintf(&sb, "%d %s %s", addr, in.Code, operand)
		if comment != "" {
			sb.WriteString(" ; ")
			sb.WriteString(comment)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
