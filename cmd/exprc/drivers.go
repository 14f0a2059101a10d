package main

// Database driver imports for side-effect registration with database/sql.
// The dqlite driver is not registered; it is opened through internal/dqlite.

import (
	_ "github.com/go-sql-driver/mysql" // mysql
	_ "github.com/lib/pq"              // postgres
	_ "github.com/mattn/go-sqlite3"    // sqlite3
	_ "modernc.org/sqlite"             // sqlite
)
