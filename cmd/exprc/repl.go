// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
)

const prompt = "exprc> "

const replHelp = `Enter an expression such as "a - b * c / 2" to evaluate it.

Commands:
  :params a,b,c   fix the parameter order (":params" alone restores
                  order of appearance)
  :args a=1,b=2   set parameter values
  :sql            toggle printing of the generated SQL
  :bytecode       toggle printing of the bytecode listing
  :help           show this message
  exit, quit      leave the session
`

// prompter reads one line of input.
type prompter interface {
	Prompt(string) (string, error)
}

// scanPrompter reads lines from a non interactive input.
type scanPrompter struct {
	scanner *bufio.Scanner
}

func (p *scanPrompter) Prompt(string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

// repl runs an interactive session. Line editing and history are used when
// reading from the terminal.
func (s *session) repl(in io.Reader) error {
	if in != os.Stdin || !liner.TerminalSupported() {
		return s.loop(&scanPrompter{scanner: bufio.NewScanner(in)})
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(s.complete)

	historyFile := filepath.Join(os.TempDir(), ".exprc_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprint(s.out, "Type ':help' for commands, 'exit' or Ctrl+D to quit\n")
	return s.loop(&historyPrompter{line})
}

// historyPrompter records every non blank line in the liner history.
type historyPrompter struct {
	line *liner.State
}

func (p *historyPrompter) Prompt(text string) (string, error) {
	input, err := p.line.Prompt(text)
	if err == nil && strings.TrimSpace(input) != "" {
		p.line.AppendHistory(input)
	}
	return input, err
}

func (s *session) loop(p prompter) error {
	for {
		input, err := p.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(s.out, "^C")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("cannot read input: %w", err)
		}
		if quit := s.handle(input); quit {
			return nil
		}
	}
}

// handle runs one line of input and reports whether the session is over.
// Errors are printed, they do not end the session.
func (s *session) handle(input string) bool {
	trimmed := strings.TrimSpace(input)
	switch {
	case trimmed == "":
		return false
	case trimmed == "exit" || trimmed == "quit":
		return true
	case strings.HasPrefix(trimmed, ":"):
		if err := s.command(trimmed[1:]); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		return false
	}
	if err := s.evaluate(context.Background(), trimmed); err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *session) command(cmd string) error {
	name, rest, _ := strings.Cut(cmd, " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "params":
		s.params = nil
		if rest != "" {
			s.params = splitList(rest)
		}
		fmt.Fprintf(s.out, "params: %s\n", s.describeParams())
	case "args":
		if rest == "" {
			fmt.Fprintf(s.out, "args: %s\n", s.describeArgs())
			return nil
		}
		bindings, err := parseBindings(rest)
		if err != nil {
			return err
		}
		for k, v := range bindings {
			s.args[k] = v
		}
		fmt.Fprintf(s.out, "args: %s\n", s.describeArgs())
	case "sql":
		s.showSQL = !s.showSQL
		fmt.Fprintf(s.out, "sql: %s\n", onOff(s.showSQL))
	case "bytecode":
		s.showBytecode = !s.showBytecode
		fmt.Fprintf(s.out, "bytecode: %s\n", onOff(s.showBytecode))
	case "help":
		fmt.Fprint(s.out, replHelp)
	default:
		return fmt.Errorf("unknown command %q, try :help", ":"+name)
	}
	return nil
}

func (s *session) describeParams() string {
	if s.params == nil {
		return "order of appearance"
	}
	return strings.Join(s.params, ", ")
}

func (s *session) describeArgs() string {
	if len(s.args) == 0 {
		return "none"
	}
	names := make([]string, 0, len(s.args))
	for name := range s.args {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%g", name, s.args[name]))
	}
	return strings.Join(parts, ", ")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

var commands = []string{":params", ":args", ":sql", ":bytecode", ":help", "exit", "quit"}

// complete offers the commands and the parameter names with a value.
func (s *session) complete(line string) []string {
	start := strings.LastIndexAny(line, " +-*/(") + 1
	head, word := line[:start], line[start:]
	if word == "" {
		return nil
	}
	var candidates []string
	if start == 0 {
		candidates = append(candidates, commands...)
	}
	for name := range s.args {
		candidates = append(candidates, name)
	}
	sort.Strings(candidates)
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, word) {
			out = append(out, head+c)
		}
	}
	return out
}
