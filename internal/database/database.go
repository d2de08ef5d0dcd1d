// Package database centralises sqlx connection helpers.  The driver is
// lib/pq: every admission cycle lives in a Postgres schema of one shared
// database, selected per pool through the `search_path` run-time
// parameter.
//
// Public entry points:
//
//	Open(url)                     – eager helper that pings; used for the
//	                                directory pool so boot fails fast.
//	OpenWithOptions(url, opts)    – lazy pool with fine-grained sizing; no
//	                                round-trip is forced at creation time.
//	ForSchema(url, schema)        – derive a DSN pinned to one schema.
//
// Callers should Close() the returned *sqlx.DB when no longer needed.
package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Options tunes one connection pool.  The tenancy registry keeps tenant
// pools small; the directory pool may be larger.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open returns a pinged *sqlx.DB with conservative pool sizes: 15 max
// open, 5 idle, and a 30-minute connection lifetime.  Suitable for the
// process-wide directory pool or for test setups.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := open(dsn, Options{MaxOpenConns: 15, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute})
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenWithOptions lets callers tune sizing per pool.  Used by the tenancy
// registry to keep per-schema resource usage small.  The pool is lazy: no
// network round-trip happens until the first query, so construction never
// fails against an unreachable or not-yet-provisioned schema.
func OpenWithOptions(dsn string, opts Options) (*sqlx.DB, error) {
	return open(dsn, opts)
}

func open(dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return db, nil
}

// ForSchema pins a Postgres DSN to one schema by adding a `search_path`
// run-time parameter.  Both URL-style (`postgres://…`) and key-value
// DSNs are handled; lib/pq forwards unknown parameters to the server as
// session settings.
func ForSchema(dsn, schema string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("database: parse url: %w", err)
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	return dsn + " search_path=" + schema, nil
}
