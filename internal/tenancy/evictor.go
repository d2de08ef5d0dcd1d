// internal/tenancy/evictor.go
//
// Eviction loop for the registry cache.  Every EvictInterval it scans the
// map and removes:
//
//   - pools idle longer than idleTTL
//   - least-recently-used pools when map size exceeds maxEntries
//
// Close errors are logged and never abort the eviction; the entry is
// removed regardless so a later Get opens a fresh pool.  The main slot is
// not part of the map and is therefore exempt.
package tenancy

import (
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sigedu/admision/internal/metrics"
)

func (r *Registry) evictLoop() {
	for {
		select {
		case <-r.done:
			return
		case <-r.evictTicker.C:
		}
		r.evictOnce(time.Now().UnixNano())
	}
}

// evictOnce runs one idle pass and, when the cache is over maxEntries,
// one LRU pass.  Split from the loop so tests can drive it directly.
func (r *Registry) evictOnce(now int64) {
	var count int

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	r.m.Range(func(key, value any) bool {
		count++
		ent := value.(*entry)
		idle := time.Duration(now - atomic.LoadInt64(&ent.lastSeen))
		if idle > r.idleTTL {
			if err := ent.db.Close(); err != nil {
				zap.L().Warn("closing evicted pool",
					zap.Any("schema", key), zap.Error(err))
			}
			r.m.Delete(key)
			count--
			zap.L().Info("tenant pool evicted",
				zap.Any("schema", key),
				zap.Duration("idle", idle.Truncate(time.Second)))
			metrics.TenantPoolEvictTotal.Inc()
			metrics.ActiveTenantPools.Dec()
		}
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if r.maxEntries > 0 && count > r.maxEntries {
		type kv struct {
			key string
			at  int64
		}
		var all []kv
		r.m.Range(func(key, value any) bool {
			ent := value.(*entry)
			all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&ent.lastSeen)})
			return true
		})
		sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
		for i := 0; i < count-r.maxEntries && i < len(all); i++ {
			if v, ok := r.m.Load(all[i].key); ok {
				if err := v.(*entry).db.Close(); err != nil {
					zap.L().Warn("closing evicted pool",
						zap.String("schema", all[i].key), zap.Error(err))
				}
				r.m.Delete(all[i].key)
				zap.L().Info("tenant pool evicted (LRU pressure)",
					zap.String("schema", all[i].key))
				metrics.TenantPoolEvictTotal.Inc()
				metrics.ActiveTenantPools.Dec()
			}
		}
	}
}
