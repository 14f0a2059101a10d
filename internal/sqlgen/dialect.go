// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlgen

import (
	"fmt"
	"strconv"
)

// Dialect selects the placeholder syntax of the generated SQL and the way
// values are bound to those placeholders.
type Dialect int

const (
	// SQLite writes @name placeholders bound with sql.Named.
	SQLite Dialect = iota
	// Dqlite writes ?N placeholders, numbered by first appearance and reused
	// when a parameter appears again. Values are bound by position, as the
	// dqlite wire protocol carries no parameter names.
	Dqlite
	// Postgres writes $N placeholders, numbered by first appearance and
	// reused when a parameter appears again.
	Postgres
	// MySQL writes a ? placeholder for every occurrence of a parameter.
	MySQL
)

var dialectNames = map[Dialect]string{
	SQLite:   "sqlite",
	Dqlite:   "dqlite",
	Postgres: "postgres",
	MySQL:    "mysql",
}

func (d Dialect) String() string {
	if name, ok := dialectNames[d]; ok {
		return name
	}
	return "Dialect(" + strconv.Itoa(int(d)) + ")"
}

// ParseDialect returns the dialect with the given name.
func ParseDialect(name string) (Dialect, error) {
	for d, n := range dialectNames {
		if n == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dialect %q", name)
}

func (d Dialect) valid() bool {
	_, ok := dialectNames[d]
	return ok
}

// placeholder returns the token for the parameter called name, which is the
// n-th distinct parameter (from zero) in the statement.
func (d Dialect) placeholder(name string, n int) string {
	switch d {
	case Postgres:
		// Untyped parameters leave operators ambiguous in Postgres.
		return "$" + strconv.Itoa(n+1) + "::double precision"
	case Dqlite:
		return "?" + strconv.Itoa(n+1)
	case MySQL:
		return "?"
	default:
		return "@" + name
	}
}

// bindsOccurrences reports whether a value is passed for every placeholder
// occurrence rather than once per distinct parameter.
func (d Dialect) bindsOccurrences() bool {
	return d == MySQL
}

// bindsNames reports whether values are passed with sql.Named.
func (d Dialect) bindsNames() bool {
	return d == SQLite
}
