// internal/tenancy/registry.go
//
// Connection registry: schema name → pooled *sqlx.DB.
//
// Context
// -------
// One running process serves every admission cycle; each cycle is a
// Postgres schema with its own small connection pool.  The registry owns
// two caching policies for the same kind of object:
//
//   - the "main" slot — the pool that unprefixed (“default”) requests
//     route to.  Exempt from TTL; replaced atomically by SetMain when the
//     current cycle changes.
//   - the ephemeral cache — sync.Map of lazily-opened pools, deduplicated
//     through singleflight and evicted by the background loop after the
//     configured idle TTL.
//
// Unlike a cooperatively-scheduled runtime, Go runs handlers on OS
// threads, so every mutation path (main swap, insert-on-miss, eviction)
// is serialized here with explicit locks.
//
// Notes
// -----
//   - Pools are lazy; Get never forces a network round-trip.
//   - Close is the shutdown hook: it drains the main slot and the cache so
//     the process exits without leaking sockets.
//   - A Get racing the evictor can hand out a pool whose Close is already
//     in flight.  In-flight queries still finish (sql.DB.Close waits for
//     checked-out connections), and the next Get reopens the pool; only a
//     query issued on the returned handle after the close completes sees
//     sql.ErrConnDone.  The window is accepted rather than holding a lock
//     across every Get.
//   - Oxford commas, two spaces after periods.
package tenancy

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sigedu/admision/internal/metrics"
)

// Static defaults.  Override via the database section of conf/global.yaml.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 50
	EvictInterval = 5 * time.Minute
)

// DefaultTenant is the reserved name that routes to the main slot.
var DefaultTenant = "default"

// ErrNotInitialized is returned when the main slot is read before boot
// wired it to the directory's current cycle.  That is an ops error, so
// callers should surface it loudly rather than fall back silently.
var ErrNotInitialized = errors.New("tenancy: main pool not initialized")

// ErrInvalidTenant is returned for a schema name outside the slug
// charset.  The name ends up inside a DSN, so anything else is rejected
// before a pool is opened.
var ErrInvalidTenant = errors.New("tenancy: invalid tenant name")

// ValidName reports whether s is a well-formed schema name: lowercase
// alphanumerics and underscores, within the Postgres identifier limit.
// Every legitimately provisioned cycle satisfies this by construction.
func ValidName(s string) bool {
	if s == "" || len(s) > 63 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// OpenFunc opens a pool bound to one schema.  Injected so tests can
// substitute fakes and so the registry stays ignorant of DSN mechanics.
type OpenFunc func(schema string) (*sqlx.DB, error)

// Registry lazily opens per-schema pools, caches them, and evicts them on
// idle TTL or LRU pressure.  The main slot lives beside the cache.
type Registry struct {
	open        OpenFunc
	sfg         singleflight.Group
	m           sync.Map
	evictTicker *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
	idleTTL     time.Duration
	maxEntries  int

	mainMu   sync.RWMutex
	main     *sqlx.DB
	mainName string
}

// New constructs a Registry and starts the background evictor.  The main
// slot stays empty until SetMain is called (normally at boot, from the
// directory's current cycle).
func New(open OpenFunc, idleTTL time.Duration, maxEntries int) *Registry {
	r := &Registry{
		open:       open,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
		done:       make(chan struct{}),
	}
	r.evictTicker = time.NewTicker(EvictInterval)
	go r.evictLoop()
	return r
}

// Get returns the pool for schema, opening it on demand.  The reserved
// name "default" (or an empty string) resolves to the main slot.  Two
// immediate calls for the same schema return the same pool.
func (r *Registry) Get(schema string) (*sqlx.DB, error) {
	if schema == "" || schema == DefaultTenant {
		r.mainMu.RLock()
		defer r.mainMu.RUnlock()
		if r.main == nil {
			zap.L().Error("default pool requested before initialization")
			return nil, ErrNotInitialized
		}
		return r.main, nil
	}

	// The name flows into a DSN; reject anything outside the slug
	// charset before it reaches the opener.
	if !ValidName(schema) {
		zap.L().Warn("rejected malformed tenant name", zap.String("schema", schema))
		return nil, ErrInvalidTenant
	}

	if v, ok := r.m.Load(schema); ok {
		ent := v.(*entry)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		return ent.db, nil
	}

	v, err, _ := r.sfg.Do(schema, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if v, ok := r.m.Load(schema); ok {
			ent := v.(*entry)
			atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
			return ent.db, nil
		}
		db, err := r.open(schema)
		if err != nil {
			metrics.TenantPoolOpenErrorsTotal.Inc()
			return nil, err
		}
		ent := &entry{
			db:       db,
			lastSeen: time.Now().UnixNano(),
		}
		r.m.Store(schema, ent)
		metrics.TenantPoolOpenTotal.Inc()
		metrics.ActiveTenantPools.Inc()
		zap.L().Info("tenant pool opened", zap.String("schema", schema))
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sqlx.DB), nil
}

// SetMain opens a fresh pool for schema, swaps it into the main slot, and
// only then closes the previous pool, so there is no window in which
// Get("default") has neither.  In-flight queries on the old pool finish
// normally; sql.DB.Close waits for checked-out connections.
func (r *Registry) SetMain(schema string) (*sqlx.DB, error) {
	if !ValidName(schema) {
		return nil, ErrInvalidTenant
	}
	db, err := r.open(schema)
	if err != nil {
		metrics.TenantPoolOpenErrorsTotal.Inc()
		return nil, err
	}

	r.mainMu.Lock()
	old, oldName := r.main, r.mainName
	r.main, r.mainName = db, schema
	r.mainMu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			zap.L().Warn("closing previous main pool",
				zap.String("schema", oldName), zap.Error(err))
		}
	}
	zap.L().Info("main pool set", zap.String("schema", schema))
	return db, nil
}

// MainTenant reports the schema currently behind the main slot, or ""
// when the slot is empty.
func (r *Registry) MainTenant() string {
	r.mainMu.RLock()
	defer r.mainMu.RUnlock()
	return r.mainName
}

// Close stops the evictor and closes the main pool plus every cached
// pool.  Safe to call more than once.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		r.evictTicker.Stop()
		close(r.done)

		r.mainMu.Lock()
		if r.main != nil {
			if err := r.main.Close(); err != nil {
				zap.L().Warn("closing main pool", zap.String("schema", r.mainName), zap.Error(err))
			}
			r.main, r.mainName = nil, ""
		}
		r.mainMu.Unlock()

		r.m.Range(func(key, value any) bool {
			ent := value.(*entry)
			if err := ent.db.Close(); err != nil {
				zap.L().Warn("closing tenant pool", zap.Any("schema", key), zap.Error(err))
			}
			r.m.Delete(key)
			metrics.ActiveTenantPools.Dec()
			return true
		})
		zap.L().Info("tenant registry closed")
	})
}
