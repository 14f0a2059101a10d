// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package dqlite opens database/sql handles on a dqlite cluster, for
// statements generated with the Dqlite dialect.
package dqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/canonical/go-dqlite/client"
	dqlitedriver "github.com/canonical/go-dqlite/driver"
)

// ErrNoNodes is returned by Open when no node address is given.
var ErrNoNodes = errors.New("no dqlite node addresses")

// LogFunc receives the log messages of the dqlite client.
type LogFunc = client.LogFunc

// LogLevel is the severity of a dqlite client message.
type LogLevel = client.LogLevel

// Open returns a handle on the named database of the cluster reachable at
// nodes. No connection is made until the handle is used.
func Open(ctx context.Context, nodes []string, database string, logf LogFunc) (*sql.DB, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}
	if database == "" {
		return nil, fmt.Errorf("empty database name")
	}

	infos := make([]client.NodeInfo, 0, len(nodes))
	for _, address := range nodes {
		infos = append(infos, client.NodeInfo{Address: address})
	}
	store := client.NewInmemNodeStore()
	if err := store.Set(ctx, infos); err != nil {
		return nil, fmt.Errorf("cannot store dqlite nodes: %w", err)
	}

	var options []dqlitedriver.Option
	if logf != nil {
		options = append(options, dqlitedriver.WithLogFunc(logf))
	}
	drv, err := dqlitedriver.New(store, options...)
	if err != nil {
		return nil, fmt.Errorf("cannot create dqlite driver: %w", err)
	}
	return sql.OpenDB(&connector{driver: drv, database: database}), nil
}

// connector opens connections to one database through a dqlite driver. It
// lets a driver be used without registering it globally.
type connector struct {
	driver   *dqlitedriver.Driver
	database string
}

func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.driver.Open(c.database)
}

func (c *connector) Driver() driver.Driver {
	return c.driver
}
