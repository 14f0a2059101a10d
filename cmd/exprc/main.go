// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Command exprc compiles arithmetic expressions and evaluates them through
// every backend: the tree evaluator, both bytecode strategies and SQL.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/canonical/exprc"
	"github.com/canonical/exprc/internal/config"
	"github.com/canonical/exprc/internal/dqlite"
	"github.com/canonical/exprc/internal/parse"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "exprc: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: exprc [flags]

Evaluates EXPR when -e is given, otherwise starts an interactive session.

flags:
`

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("exprc", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	var (
		configPath = flags.String("config", "", "path to a YAML config file")
		expression = flags.String("e", "", "expression to evaluate, e.g. \"a + b * 2\"")
		params     = flags.String("params", "", "comma separated parameter order, defaults to order of appearance")
		values     = flags.String("args", "", "parameter values, e.g. a=1,b=2")
		driverName = flags.String("driver", "", "database/sql driver: sqlite3, sqlite, postgres, mysql or dqlite")
		dsn        = flags.String("dsn", "", "data source name passed to the driver")
		strategy   = flags.String("strategy", "", "bytecode strategy: interpret or compile")
		verbose    = flags.Bool("v", false, "print the bytecode listing")
	)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		return err
	}
	if *driverName != "" {
		cfg.Driver = *driverName
	}
	if *dsn != "" {
		cfg.DSN = *dsn
	}
	if *strategy != "" {
		cfg.Strategy = *strategy
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := log.New(stderr, "exprc: ", log.LstdFlags)
	sess, err := newSession(ctx, cfg, stdout, logger)
	if err != nil {
		return err
	}
	defer sess.close()
	sess.showBytecode = *verbose

	if *params != "" {
		sess.params = splitList(*params)
	}
	if *values != "" {
		if sess.args, err = parseBindings(*values); err != nil {
			return err
		}
	}

	if *expression == "" {
		return sess.repl(stdin)
	}
	return sess.evaluate(ctx, *expression)
}

// session holds the state shared by the evaluations of a run.
type session struct {
	out      io.Writer
	logger   *log.Logger
	strategy exprc.Strategy
	dialect  exprc.Dialect
	timeout  time.Duration
	db       *exprc.DB
	parser   *parse.Parser

	// params, when set, fixes the parameter order of parsed expressions.
	params []string
	args   map[string]float64

	showSQL      bool
	showBytecode bool
}

func newSession(ctx context.Context, cfg *config.Config, out io.Writer, logger *log.Logger) (*session, error) {
	strategy, err := cfg.AssembleStrategy()
	if err != nil {
		return nil, err
	}
	dialect, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	sqldb, err := openDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		out:      out,
		logger:   logger,
		strategy: strategy,
		dialect:  dialect,
		timeout:  cfg.Timeout,
		db:       exprc.NewDB(sqldb),
		parser:   parse.NewParser(),
		args:     map[string]float64{},
		showSQL:  true,
	}, nil
}

func openDB(ctx context.Context, cfg *config.Config, logger *log.Logger) (*sql.DB, error) {
	if cfg.Driver == "dqlite" {
		logf := func(l dqlite.LogLevel, format string, a ...interface{}) {
			logger.Printf("dqlite %s: %s", l, fmt.Sprintf(format, a...))
		}
		return dqlite.Open(ctx, cfg.Dqlite.Nodes, cfg.Dqlite.Database, logf)
	}
	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s database: %w", cfg.Driver, err)
	}
	return sqldb, nil
}

func (s *session) close() {
	if err := s.db.PlainDB().Close(); err != nil {
		s.logger.Printf("cannot close database: %v", err)
	}
}

// evaluate parses input and prints its forms and its value through every
// backend.
func (s *session) evaluate(ctx context.Context, input string) error {
	tree, err := s.parser.Parse(input, s.params)
	if err != nil {
		return err
	}

	pre, err := exprc.Prefix(tree)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "prefix:    %s\n", pre)

	if s.showBytecode {
		prog, err := exprc.CompileBytecode(tree)
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, prog)
	}

	stmt, err := exprc.CompileSQL(tree, s.dialect)
	if err != nil {
		return err
	}
	if s.showSQL {
		fmt.Fprintf(s.out, "sql:       %s\n", stmt.SQL())
	}

	args := make([]float64, 0, tree.Arity())
	var missing []string
	for _, name := range tree.Params() {
		v, ok := s.args[name]
		if !ok {
			missing = append(missing, name)
		}
		args = append(args, v)
	}
	if len(missing) > 0 {
		fmt.Fprintf(s.out, "missing values for %s\n", strings.Join(missing, ", "))
		return nil
	}

	v, err := tree.Eval(args...)
	s.printResult("tree", v, err)

	f, err := exprc.Compile(tree, s.strategy)
	if err != nil {
		return err
	}
	v, err = f.Call(args...)
	s.printResult(s.strategy.String(), v, err)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	v, err = s.db.EvalContext(ctx, stmt, s.args)
	s.printResult(s.dialect.String(), v, err)
	return nil
}

func (s *session) printResult(backend string, v float64, err error) {
	label := backend + ":"
	if err != nil {
		fmt.Fprintf(s.out, "%-10s error: %v\n", label, err)
		return
	}
	fmt.Fprintf(s.out, "%-10s %s\n", label, strconv.FormatFloat(v, 'g', -1, 64))
}

// parseBindings reads "a=1,b=2".
func parseBindings(s string) (map[string]float64, error) {
	bindings := map[string]float64{}
	for _, item := range splitList(s) {
		name, value, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid binding %q, expected name=value", item)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
		bindings[name] = v
	}
	return bindings, nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
