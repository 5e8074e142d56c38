// Package cache implements the TTL content cache for fetched catalogs. Every
// record carries its storage timestamp, and expiry is checked on read: an
// expired record behaves exactly like a missing one and is deleted in the
// same pass, so the next successful fetch rewrites it.
//
// Reads go through an in-memory hot layer first and fall back to the
// persistent key/value store, so a restart costs one extra store read per
// key rather than a refetch from the provider.
package cache

import (
	"encoding/json"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"iptv-catalog/work/config"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/metrics"
	"iptv-catalog/work/store"
	"iptv-catalog/work/types"
)

// storePrefix namespaces cache records inside the shared key/value store.
const storePrefix = "cache_"

// Record is the stored shape of one cached payload.
type Record struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// ContentCache is a TTL cache keyed by content type and filter.
type ContentCache struct {
	hot     *gocache.Cache
	store   *store.Store
	ttl     time.Duration
	enabled bool
	logger  *logger.Logger
}

// Key builds the cache key for a content type and optional filter. An empty
// filter means the unfiltered catalog and maps to the reserved segment "all".
func Key(kind types.Kind, filter string) string {
	if filter == "" {
		filter = "all"
	}
	return string(kind) + ":" + filter
}

// New builds a content cache backed by st. TTL and the enabled switch come
// from the config; the hot layer evicts on the same TTL so both layers agree
// on freshness.
func New(st *store.Store, cfg *config.Config, log *logger.Logger) *ContentCache {
	return &ContentCache{
		hot:     gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		store:   st,
		ttl:     cfg.CacheTTL,
		enabled: cfg.CacheEnabled,
		logger:  log,
	}
}

// Get loads the cached payload for key into out. It reports false on a
// disabled cache, a missing record, an expired record or a decode failure;
// expired and undecodable records are removed so they are not rechecked.
func (c *ContentCache) Get(key string, out any) bool {
	if !c.enabled {
		return false
	}

	rec, fromHot := c.lookup(key)
	if rec == nil {
		metrics.CacheMisses.WithLabelValues(keyType(key)).Inc()
		return false
	}

	if time.Since(rec.StoredAt) >= c.ttl {
		c.logger.Debug("{cache - Get} key %s expired after %s, evicting", key, c.ttl)
		c.Invalidate(key)
		metrics.CacheMisses.WithLabelValues(keyType(key)).Inc()
		return false
	}

	if err := json.Unmarshal(rec.Payload, out); err != nil {
		c.logger.Warn("{cache - Get} undecodable record for key %s: %v", key, err)
		c.Invalidate(key)
		metrics.CacheMisses.WithLabelValues(keyType(key)).Inc()
		return false
	}

	if !fromHot {
		c.hot.Set(key, rec, gocache.DefaultExpiration)
	}
	metrics.CacheHits.WithLabelValues(keyType(key)).Inc()
	return true
}

// Age returns how long ago the record for key was stored, or false when no
// live record exists. Useful for surfacing freshness without decoding.
func (c *ContentCache) Age(key string) (time.Duration, bool) {
	if !c.enabled {
		return 0, false
	}
	rec, _ := c.lookup(key)
	if rec == nil {
		return 0, false
	}
	age := time.Since(rec.StoredAt)
	if age >= c.ttl {
		return 0, false
	}
	return age, true
}

// Set stores v under key in both layers. Marshal or store failures degrade
// to a skipped write; the caller keeps its freshly fetched data either way.
func (c *ContentCache) Set(key string, v any) {
	if !c.enabled {
		return
	}

	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("{cache - Set} could not encode payload for key %s: %v", key, err)
		return
	}

	rec := &Record{StoredAt: time.Now(), Payload: payload}
	c.hot.Set(key, rec, gocache.DefaultExpiration)

	if err := c.store.SetJSON(storePrefix+key, rec); err != nil {
		c.logger.Warn("{cache - Set} persistent write failed for key %s: %v", key, err)
	}
}

// Invalidate removes the record for key from both layers.
func (c *ContentCache) Invalidate(key string) {
	c.hot.Delete(key)
	c.store.Remove(storePrefix + key)
}

// InvalidateKind removes every cached record for one content type.
func (c *ContentCache) InvalidateKind(kind types.Kind) {
	prefix := string(kind) + ":"
	for key := range c.hot.Items() {
		if strings.HasPrefix(key, prefix) {
			c.hot.Delete(key)
		}
	}
	c.store.RemovePrefix(storePrefix + prefix)
}

// Flush drops everything from both layers.
func (c *ContentCache) Flush() {
	c.hot.Flush()
	c.store.RemovePrefix(storePrefix)
}

func (c *ContentCache) lookup(key string) (*Record, bool) {
	if v, ok := c.hot.Get(key); ok {
		if rec, ok := v.(*Record); ok {
			return rec, true
		}
	}

	var rec Record
	if ok := c.store.GetJSON(storePrefix+key, &rec); !ok {
		return nil, false
	}
	return &rec, false
}

// keyType extracts the content-type segment of a cache key for metrics.
func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
