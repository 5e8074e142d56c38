package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EntriesIngested counts entries produced by ingestion passes, labeled by the
// content kind the classifier assigned. Counter, only increases.
var EntriesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptv_catalog_entries_ingested_total",
	Help: "Total entries produced by ingestion passes",
}, []string{"kind"})

// CacheHits counts content-cache hits per cache key type.
var CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptv_catalog_cache_hits_total",
	Help: "Content cache hits",
}, []string{"type"})

// CacheMisses counts content-cache misses (including TTL expiries) per cache
// key type.
var CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptv_catalog_cache_misses_total",
	Help: "Content cache misses",
}, []string{"type"})

// StoreErrors counts persistent-store failures by operation. These are
// absorbed (the store is best-effort) so the metric is the only place they
// surface besides the log.
var StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptv_catalog_store_errors_total",
	Help: "Persistent key-value store errors",
}, []string{"op"})

// IngestDuration records how long the last ingestion pass took per kind.
var IngestDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "iptv_catalog_ingest_duration_seconds",
	Help: "Duration of the most recent ingestion pass",
}, []string{"kind"})
