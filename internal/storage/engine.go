package storage

import (
	"github.com/edirooss/vermilion/internal/cmderr"
)

// Engine owns the N logical databases, per spec §3.
type Engine struct {
	dbs []*Database
}

// NewEngine creates an engine with n logical databases (default 16).
func NewEngine(n int) *Engine {
	dbs := make([]*Database, n)
	for i := range dbs {
		dbs[i] = newDatabase()
	}
	return &Engine{dbs: dbs}
}

// DB returns database index, or an InvalidDatabase error if out of
// range (spec §4.1 "Failure semantics").
func (e *Engine) DB(index int) (*Database, error) {
	if index < 0 || index >= len(e.dbs) {
		return nil, cmderr.New("DB index is out of range")
	}
	return e.dbs[index], nil
}

// NumDatabases returns the configured database count.
func (e *Engine) NumDatabases() int { return len(e.dbs) }

// FlushAll empties every database.
func (e *Engine) FlushAll() {
	for _, db := range e.dbs {
		db.Flush()
	}
}

// TotalMemory sums memory usage across every database.
func (e *Engine) TotalMemory() int64 {
	var total int64
	for _, db := range e.dbs {
		total += db.TotalMemory()
	}
	return total
}

// Databases exposes the underlying slice for the snapshot engine's
// SELECT_DB loop. Index i corresponds to database i.
func (e *Engine) Databases() []*Database { return e.dbs }
