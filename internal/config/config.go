// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package config holds the settings of the exprc command: which database the
// SQL backend runs on and how bytecode is assembled.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/canonical/exprc/internal/bytecode"
	"github.com/canonical/exprc/internal/sqlgen"
)

// Config is the top level configuration.
type Config struct {
	// Driver is the database/sql driver name. One of sqlite3, sqlite,
	// postgres, mysql or dqlite.
	Driver string `yaml:"driver"`
	// DSN is passed to sql.Open. Unused for dqlite.
	DSN      string        `yaml:"dsn"`
	Dqlite   DqliteConfig  `yaml:"dqlite"`
	Strategy string        `yaml:"strategy"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DqliteConfig locates a dqlite cluster.
type DqliteConfig struct {
	// Nodes are the addresses of the cluster nodes, host:port.
	Nodes    []string `yaml:"nodes"`
	Database string   `yaml:"database"`
}

// Defaults returns a configuration evaluating SQL on an in-memory SQLite
// database.
func Defaults() *Config {
	return &Config{
		Driver:   "sqlite3",
		DSN:      ":memory:",
		Strategy: bytecode.Interpret.String(),
		Timeout:  5 * time.Second,
		Dqlite: DqliteConfig{
			Database: "exprc",
		},
	}
}

// driverDialects maps every supported driver to the SQL dialect it speaks.
var driverDialects = map[string]sqlgen.Dialect{
	"sqlite3":  sqlgen.SQLite,
	"sqlite":   sqlgen.SQLite,
	"dqlite":   sqlgen.Dqlite,
	"postgres": sqlgen.Postgres,
	"mysql":    sqlgen.MySQL,
}

// Load reads the configuration file at path with ${VAR} references replaced
// through getenv. Fields missing from the file keep their default. An empty
// path returns the defaults.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Parse(interpolateEnv(data, getenv), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML data over cfg.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document leaves cfg untouched.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		value := getenv(string(parts[1]))
		if value == "" && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Validate checks the configuration is usable, e.g. after flags have been
// applied.
func (c *Config) Validate() error {
	if _, ok := driverDialects[c.Driver]; !ok {
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.Driver == "dqlite" {
		if len(c.Dqlite.Nodes) == 0 {
			return fmt.Errorf("dqlite driver needs at least one node address")
		}
		if c.Dqlite.Database == "" {
			return fmt.Errorf("dqlite driver needs a database name")
		}
	} else if c.DSN == "" {
		return fmt.Errorf("driver %q needs a dsn", c.Driver)
	}
	if _, err := bytecode.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", c.Timeout)
	}
	return nil
}

// Dialect returns the SQL dialect of the configured driver.
func (c *Config) Dialect() (sqlgen.Dialect, error) {
	d, ok := driverDialects[c.Driver]
	if !ok {
		return 0, fmt.Errorf("unsupported driver %q", c.Driver)
	}
	return d, nil
}

// AssembleStrategy returns the configured bytecode strategy.
func (c *Config) AssembleStrategy() (bytecode.Strategy, error) {
	return bytecode.ParseStrategy(c.Strategy)
}
