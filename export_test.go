package exprc

func (s *Statement) CacheID() uint64 {
	return s.cacheID
}

func (db *DB) CacheID() uint64 {
	return db.cacheID
}

// PreparedOn returns the number of driver prepared statements cached for the
// database with the given ID.
func PreparedOn(dbID uint64) int {
	stmtCache.mutex.RLock()
	defer stmtCache.mutex.RUnlock()
	return len(stmtCache.dbStmtCache[dbID])
}
