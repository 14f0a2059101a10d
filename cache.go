// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package exprc

import (
	"context"
	"database/sql"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/canonical/exprc/internal/sqlgen"
)

// stmtIDCount and dbIDCount are used to generate unique IDs.
var stmtIDCount uint64
var dbIDCount uint64

type dbID = uint64
type stmtID = uint64

// stmtCache stores the driver prepared statements associated to the
// Statement objects.
var stmtCache = newStatementCache()

// statementCache caches the sql.Stmt objects associated with each Statement.
// A Statement can correspond to multiple sql.Stmt values on different
// databases. The cache is indexed by the Statement ID and the DB ID.
//
// The cache closes sql.Stmt objects with a finalizer on the Statement.
// Similarly a finalizer is set on DB objects to close all statements prepared
// on the DB, close the DB, and remove references to the DB from the cache.
//
// The mutex must be locked when accessing either the stmtDBCache or the
// dbStmtCache.
type statementCache struct {
	stmtDBCache map[stmtID]map[dbID]*sql.Stmt
	dbStmtCache map[dbID]map[stmtID]bool
	mutex       sync.RWMutex
}

var once sync.Once
var singleStmtCache *statementCache

// newStatementCache returns the single instance of the statement cache.
func newStatementCache() *statementCache {
	once.Do(func() {
		singleStmtCache = &statementCache{
			stmtDBCache: map[stmtID]map[dbID]*sql.Stmt{},
			dbStmtCache: map[dbID]map[stmtID]bool{},
		}
	})
	return singleStmtCache
}

// newStatement returns a new Statement and allocates it in the cache. A
// finalizer is set on the Statement to remove all sql.Stmt values associated
// with it from the cache and then run Close on them.
func (sc *statementCache) newStatement(gen *sqlgen.Statement) *Statement {
	cacheID := atomic.AddUint64(&stmtIDCount, 1)
	s := &Statement{gen: gen, cacheID: cacheID}
	sc.mutex.Lock()
	sc.stmtDBCache[cacheID] = map[dbID]*sql.Stmt{}
	sc.mutex.Unlock()
	runtime.SetFinalizer(s, sc.removeAndCloseStmtFunc)
	return s
}

// newDB returns a new DB and allocates it in the cache. A finalizer is set on
// the DB which removes it from the cache, closes all sql.Stmt values prepared
// upon it and then closes the sql.DB.
func (sc *statementCache) newDB(sqldb *sql.DB) *DB {
	cacheID := atomic.AddUint64(&dbIDCount, 1)
	sc.mutex.Lock()
	sc.dbStmtCache[cacheID] = map[stmtID]bool{}
	sc.mutex.Unlock()
	db := &DB{sqldb: sqldb, cacheID: cacheID}
	runtime.SetFinalizer(db, sc.removeAndCloseDBFunc)
	return db
}

// prepareSubstrate is an object that statements can be prepared on, e.g. a
// sql.DB or sql.Conn.
type prepareSubstrate interface {
	PrepareContext(context.Context, string) (*sql.Stmt, error)
}

// lookupStmt returns the sql.Stmt already prepared for s on the database, if
// there is one.
func (sc *statementCache) lookupStmt(dbID dbID, s *Statement) (*sql.Stmt, bool) {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	sqlstmt, ok := sc.stmtDBCache[s.cacheID][dbID]
	return sqlstmt, ok
}

// prepareStmt prepares a Statement on a prepareSubstrate. It first checks the
// cache to see if it has already been prepared on the DB. The
// prepareSubstrate must be associated with the DB identified by dbID.
func (sc *statementCache) prepareStmt(ctx context.Context, dbID dbID, ps prepareSubstrate, s *Statement) (*sql.Stmt, error) {
	if sqlstmt, ok := sc.lookupStmt(dbID, s); ok {
		return sqlstmt, nil
	}
	sqlstmt, err := ps.PrepareContext(ctx, s.SQL())
	if err != nil {
		return nil, err
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	// Check if a statement has been inserted by someone else since we last
	// checked.
	if sqlstmtAlt, ok := sc.stmtDBCache[s.cacheID][dbID]; ok {
		sqlstmt.Close()
		return sqlstmtAlt, nil
	}
	sc.stmtDBCache[s.cacheID][dbID] = sqlstmt
	sc.dbStmtCache[dbID][s.cacheID] = true
	return sqlstmt, nil
}

// removeAndCloseStmtFunc removes a Statement from the statement caches and
// closes its driver prepared statements.
func (sc *statementCache) removeAndCloseStmtFunc(s *Statement) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	dbCache := sc.stmtDBCache[s.cacheID]
	for dbCacheID, sqlstmt := range dbCache {
		sqlstmt.Close()
		delete(sc.dbStmtCache[dbCacheID], s.cacheID)
	}
	delete(sc.stmtDBCache, s.cacheID)
}

// removeAndCloseDBFunc closes and removes from the cache all sql.Stmt values
// prepared on the database, removes the database from the cache, then closes
// the sql.DB.
func (sc *statementCache) removeAndCloseDBFunc(db *DB) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	statementCache := sc.dbStmtCache[db.cacheID]
	for statementCacheID := range statementCache {
		dbCache := sc.stmtDBCache[statementCacheID]
		dbCache[db.cacheID].Close()
		delete(dbCache, db.cacheID)
	}
	delete(sc.dbStmtCache, db.cacheID)
	db.sqldb.Close()
}
