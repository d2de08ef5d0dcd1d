// internal/tenancy/entry.go
//
// Cache entry for one per-schema pool.
//
// The registry stores a pointer to entry in its sync.Map, along with a
// `lastSeen` UnixNano timestamp used by the evictor for idle and LRU
// eviction.  The pool itself is never handed to callers except through
// Registry.Get, so the evictor is the only code that closes it.
package tenancy

import "github.com/jmoiron/sqlx"

type entry struct {
	db       *sqlx.DB
	lastSeen int64 // UnixNano
}
