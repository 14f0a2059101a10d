// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package parse reads infix arithmetic such as "a - b * c / 2 + d * 3" into
// an expression tree.
package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/canonical/exprc/internal/ast"
)

func NewParser() *Parser {
	return &Parser{}
}

type Parser struct {
	input string
	pos   int
	// nextPos is start of the next char.
	nextPos int
	// char is the rune starting at pos. char is set to 0 when pos reaches the
	// end of input.
	char rune
	// lineNum is the number of the current line of the input.
	lineNum int
	// lineStart is the position of the first char of the current line in the
	// input.
	lineStart int
	// seen holds the parameter names in order of first appearance.
	seen []string
}

// Parse reads input into a tree. When params is nil the tree declares the
// parameters in order of first appearance, otherwise every parameter used by
// input must be in params.
func (p *Parser) Parse(input string, params []string) (t *ast.Tree, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot parse expression: %w", err)
		}
	}()

	p.init(input)

	p.skipBlanks()
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipBlanks()
	if p.pos < len(p.input) {
		return nil, p.errorHere(fmt.Errorf("unexpected %q after expression", p.char))
	}

	if params == nil {
		params = p.seen
	}
	return ast.NewTree(params, body)
}

// Params returns the parameter names found by the last call to Parse, in
// order of first appearance.
func (p *Parser) Params() []string {
	return append([]string(nil), p.seen...)
}

// init resets the state of the parser and sets the input string.
func (p *Parser) init(input string) {
	p.input = input
	p.pos = 0
	p.nextPos = 0
	p.char = 0
	p.lineNum = 1
	p.lineStart = 0
	p.seen = nil
	p.advanceChar()
}

// colNum calculates the current column number taking into account line breaks.
func (p *Parser) colNum() int {
	return p.pos - p.lineStart + 1
}

// advanceChar moves the parser to the next character in the input. It also
// takes care of updating the line and column numbers if it encounters line
// breaks.
func (p *Parser) advanceChar() bool {
	if p.nextPos >= len(p.input) {
		p.char = 0
		p.pos = p.nextPos
		return false
	}
	if p.char == '\n' {
		p.lineStart = p.nextPos
		p.lineNum++
	}
	var size int
	p.char, size = utf8.DecodeRuneInString(p.input[p.nextPos:])
	p.pos = p.nextPos
	p.nextPos += size
	return true
}

// errorAt wraps an error with line and column information.
func errorAt(err error, line int, column int, input string) error {
	if strings.ContainsRune(input, '\n') {
		return fmt.Errorf("line %d, column %d: %w", line, column, err)
	}
	return fmt.Errorf("column %d: %w", column, err)
}

func (p *Parser) errorHere(err error) error {
	return errorAt(err, p.lineNum, p.colNum(), p.input)
}

// skipChar jumps over the current char if it matches the char passed as a
// parameter. Returns true in that case, false otherwise.
func (p *Parser) skipChar(c rune) bool {
	if p.pos < len(p.input) && p.char == c {
		p.advanceChar()
		return true
	}
	return false
}

// skipBlanks advances the parser past spaces, tabs and newlines. Returns
// whether the parser position was changed.
func (p *Parser) skipBlanks() bool {
	mark := p.pos
	for p.pos < len(p.input) {
		switch p.char {
		case ' ', '\t', '\r', '\n':
			p.advanceChar()
		default:
			return p.pos != mark
		}
	}
	return p.pos != mark
}

// isNameChar returns true if the given char can be part of a name. It returns
// false otherwise.
func isNameChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

// isInitialNameChar returns true if the given char can appear at the start of a
// name. It returns false otherwise.
func isInitialNameChar(c rune) bool {
	return unicode.IsLetter(c) || c == '_'
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

// binaryOps maps operator chars to their operation.
var binaryOps = map[rune]ast.Op{
	'+': ast.Add,
	'-': ast.Sub,
	'*': ast.Mul,
	'/': ast.Div,
}

// parseExpr parses a sum of terms. Operators of the same precedence are left
// associative.
func (p *Parser) parseExpr() (ast.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipBlanks()
		if p.char != '+' && p.char != '-' || p.pos >= len(p.input) {
			return left, nil
		}
		op := binaryOps[p.char]
		p.advanceChar()
		p.skipBlanks()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(op, left, right)
	}
}

// parseTerm parses a product of factors.
func (p *Parser) parseTerm() (ast.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		p.skipBlanks()
		if p.char != '*' && p.char != '/' || p.pos >= len(p.input) {
			return left, nil
		}
		op := binaryOps[p.char]
		p.advanceChar()
		p.skipBlanks()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(op, left, right)
	}
}

// parseFactor parses a number, a parameter name or a parenthesised
// expression.
func (p *Parser) parseFactor() (ast.Node, error) {
	if p.pos >= len(p.input) {
		return nil, p.errorHere(errors.New("unexpected end of input, expected operand"))
	}

	switch {
	case p.char == '(':
		openLine, openCol := p.lineNum, p.colNum()
		p.advanceChar()
		p.skipBlanks()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipBlanks()
		if !p.skipChar(')') {
			return nil, errorAt(errors.New("missing closing parenthesis"), openLine, openCol, p.input)
		}
		return inner, nil
	case p.char == '-':
		line, col := p.lineNum, p.colNum()
		p.advanceChar()
		if !isDigit(p.char) && p.char != '.' || p.pos >= len(p.input) {
			return nil, errorAt(errors.New("unary minus only applies to numbers"), line, col, p.input)
		}
		v, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		return ast.NewConstant(-v), nil
	case isDigit(p.char) || p.char == '.':
		v, err := p.parseNumber()
		if err != nil {
			return nil, err
		}
		return ast.NewConstant(v), nil
	case isInitialNameChar(p.char):
		return ast.NewParameter(p.parseName()), nil
	}
	return nil, p.errorHere(fmt.Errorf("unexpected character %q, expected operand", p.char))
}

// parseName reads a parameter name and records its first appearance.
func (p *Parser) parseName() string {
	mark := p.pos
	for p.pos < len(p.input) && isNameChar(p.char) {
		p.advanceChar()
	}
	name := p.input[mark:p.pos]
	for _, s := range p.seen {
		if s == name {
			return name
		}
	}
	p.seen = append(p.seen, name)
	return name
}

// parseNumber reads a decimal number with an optional fraction and exponent.
func (p *Parser) parseNumber() (float64, error) {
	mark, col := p.pos, p.colNum()
	for p.pos < len(p.input) && isDigit(p.char) {
		p.advanceChar()
	}
	if p.skipChar('.') {
		for p.pos < len(p.input) && isDigit(p.char) {
			p.advanceChar()
		}
	}
	if p.char == 'e' || p.char == 'E' {
		p.advanceChar()
		if p.char == '+' || p.char == '-' {
			p.advanceChar()
		}
		for p.pos < len(p.input) && isDigit(p.char) {
			p.advanceChar()
		}
	}
	if p.pos < len(p.input) && isInitialNameChar(p.char) {
		return 0, p.errorHere(fmt.Errorf("unexpected %q in number", p.char))
	}

	literal := p.input[mark:p.pos]
	v, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, errorAt(fmt.Errorf("number %s out of range", literal), p.lineNum, col, p.input)
		}
		return 0, errorAt(fmt.Errorf("invalid number %q", literal), p.lineNum, col, p.input)
	}
	return v, nil
}
