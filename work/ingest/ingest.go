// Package ingest orchestrates the catalog pipeline: fetch from the
// configured provider, classify, organize into groups, and cache the result.
// It owns the background refresh loop and the single-flight guard that keeps
// a manual refresh from racing a scheduled one for the same cache key.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"

	"iptv-catalog/work/cache"
	"iptv-catalog/work/classify"
	"iptv-catalog/work/client"
	"iptv-catalog/work/config"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/metrics"
	"iptv-catalog/work/organize"
	"iptv-catalog/work/store"
	"iptv-catalog/work/types"
	"iptv-catalog/work/xtream"
)

// staleKeyPrefix namespaces the last-good catalog copies kept outside the
// TTL cache. They back the degraded-mode fallback when the provider is
// unreachable and the TTL record has already expired.
const staleKeyPrefix = "cached_"

// Source fetches raw entries for one content type. The M3U and Xtream
// providers both satisfy it, so the pipeline after the fetch is identical.
// HandlesFilter reports whether the filter was applied server-side; when it
// was not, the engine narrows by normalized group label after classification.
type Source interface {
	Fetch(ctx context.Context, kind types.Kind, filter string) ([]*types.Entry, error)
	HandlesFilter() bool
}

// Engine runs ingestion passes and serves assembled catalogs.
type Engine struct {
	cfg        *config.Config
	source     Source
	classifier *classify.Classifier
	cache      *cache.ContentCache
	store      *store.Store
	logger     *logger.Logger

	flight   singleflight.Group
	catalogs *xsync.MapOf[string, *types.Catalog]
	pool     *ants.Pool

	refreshStop chan struct{}
	refreshDone chan struct{}
}

// New builds an engine over the configured provider. The worker pool sizes
// to WorkerThreads and runs the per-kind tasks of a refresh pass.
func New(cfg *config.Config, src Source, cc *cache.ContentCache, st *store.Store, log *logger.Logger) (*Engine, error) {
	pool, err := ants.NewPool(cfg.WorkerThreads)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh worker pool: %w", err)
	}

	return &Engine{
		cfg:        cfg,
		source:     src,
		classifier: classify.New(),
		cache:      cc,
		store:      st,
		logger:     log,
		catalogs:   xsync.NewMapOf[string, *types.Catalog](),
		pool:       pool,
	}, nil
}

// NewSource builds the provider source matching the configured connection
// type.
func NewSource(cfg *config.Config, httpClient *client.HeaderSettingClient, log *logger.Logger) (Source, error) {
	switch cfg.ConnectionType {
	case config.ConnectionXtream:
		return &xtreamSource{client: xtream.NewClient(cfg, httpClient, log)}, nil
	case config.ConnectionM3U:
		return &m3uSource{cfg: cfg, client: httpClient, logger: log}, nil
	default:
		return nil, fmt.Errorf("unknown connection type %q", cfg.ConnectionType)
	}
}

// Catalog returns the catalog for kind, optionally narrowed by filter (a
// category id for structured providers, a group label for playlists).
//
// Resolution order: TTL cache, then a single-flighted ingestion pass, then,
// only when the provider fails, the last successfully ingested copy
// regardless of age. Only when all three come up empty does the error
// propagate.
func (e *Engine) Catalog(ctx context.Context, kind types.Kind, filter string) (*types.Catalog, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}

	key := cache.Key(kind, filter)

	var cached types.Catalog
	if e.cache.Get(key, &cached) {
		cached.FromCache = true
		e.logger.Debug("{ingest - Catalog} cache hit for %s", key)
		return &cached, nil
	}

	v, err, shared := e.flight.Do(key, func() (any, error) {
		return e.ingest(ctx, kind, filter)
	})
	if err != nil {
		if stale := e.staleCatalog(key); stale != nil {
			e.logger.Warn("{ingest - Catalog} provider failed for %s, serving stale copy from %s: %v",
				key, stale.FetchedAt.Format(time.RFC3339), err)
			return stale, nil
		}
		return nil, err
	}
	if shared {
		e.logger.Debug("{ingest - Catalog} joined in-flight ingestion for %s", key)
	}

	return v.(*types.Catalog), nil
}

// ingest runs one full pipeline pass for a cache key and stores the result
// in the TTL cache, the stale-copy store and the in-memory registry.
func (e *Engine) ingest(ctx context.Context, kind types.Kind, filter string) (*types.Catalog, error) {
	key := cache.Key(kind, filter)
	start := time.Now()

	raw, err := e.source.Fetch(ctx, kind, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s catalog: %w", kind, err)
	}

	entries := e.selectKind(kind, raw)
	if filter != "" && !e.source.HandlesFilter() {
		entries = filterByGroup(kind, entries, filter)
	}

	catalog := &types.Catalog{
		Kind:      kind,
		Entries:   entries,
		Groups:    organize.Organize(kind, entries),
		FetchedAt: time.Now(),
	}

	metrics.EntriesIngested.WithLabelValues(string(kind)).Add(float64(len(entries)))
	metrics.IngestDuration.WithLabelValues(string(kind)).Set(time.Since(start).Seconds())
	e.logger.Info("{ingest - ingest} %s: %d entries in %d groups (%s)",
		key, len(entries), len(catalog.Groups), time.Since(start).Round(time.Millisecond))

	e.cache.Set(key, catalog)
	if err := e.store.SetJSON(staleKeyPrefix+key, catalog); err != nil {
		e.logger.Warn("{ingest - ingest} could not persist stale copy for %s: %v", key, err)
	}
	e.catalogs.Store(key, catalog)

	return catalog, nil
}

// selectKind applies the classifier and keeps the entries belonging to kind.
// Entries arriving with a kind already set keep it: a structured provider's
// endpoint is a stronger signal than name heuristics, which stay in charge
// of raw playlists only.
func (e *Engine) selectKind(kind types.Kind, raw []*types.Entry) []*types.Entry {
	out := make([]*types.Entry, 0, len(raw))
	for _, entry := range raw {
		if !entry.Kind.Valid() {
			entry.Kind = e.classifier.Classify(entry)
		}
		if entry.Kind == kind {
			out = append(out, entry)
		}
	}
	return out
}

func filterByGroup(kind types.Kind, entries []*types.Entry, filter string) []*types.Entry {
	out := make([]*types.Entry, 0, len(entries))
	for _, entry := range entries {
		if organize.GroupLabel(kind, entry.Group) == filter {
			out = append(out, entry)
		}
	}
	return out
}

// staleCatalog loads the last successfully ingested copy for key, bypassing
// TTL. Returns nil when none was ever stored.
func (e *Engine) staleCatalog(key string) *types.Catalog {
	if cat, ok := e.catalogs.Load(key); ok {
		stale := *cat
		stale.FromCache = true
		return &stale
	}

	var stored types.Catalog
	if ok := e.store.GetJSON(staleKeyPrefix+key, &stored); !ok {
		return nil
	}
	stored.FromCache = true
	return &stored
}

// Cached returns the in-memory catalog for a key when one exists, without
// triggering ingestion. Handlers use it for id lookups on play actions.
func (e *Engine) Cached(kind types.Kind, filter string) (*types.Catalog, bool) {
	return e.catalogs.Load(cache.Key(kind, filter))
}

// FindEntry looks an entry id up across the in-memory catalogs for kind.
func (e *Engine) FindEntry(kind types.Kind, id string) (*types.Entry, bool) {
	var found *types.Entry
	e.catalogs.Range(func(key string, cat *types.Catalog) bool {
		if cat.Kind != kind {
			return true
		}
		for _, entry := range cat.Entries {
			if entry.ID == id {
				found = entry
				return false
			}
		}
		return true
	})
	return found, found != nil
}

// Refresh re-ingests the unfiltered catalog of every kind on the worker
// pool, invalidating the TTL records first so each pass fetches fresh data.
// It blocks until all kinds finish and returns the first error seen.
func (e *Engine) Refresh(ctx context.Context) error {
	kinds := []types.Kind{types.KindLive, types.KindMovie, types.KindSeries}
	errs := make(chan error, len(kinds))

	for _, kind := range kinds {
		k := kind
		if err := e.pool.Submit(func() {
			e.cache.Invalidate(cache.Key(k, ""))
			_, err, _ := e.flight.Do(cache.Key(k, ""), func() (any, error) {
				return e.ingest(ctx, k, "")
			})
			errs <- err
		}); err != nil {
			errs <- fmt.Errorf("failed to schedule %s refresh: %w", k, err)
		}
	}

	var firstErr error
	for range kinds {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StartRefreshLoop kicks off periodic background refreshes. A non-positive
// interval disables the loop.
func (e *Engine) StartRefreshLoop(ctx context.Context) {
	if e.cfg.RefreshInterval <= 0 || e.refreshStop != nil {
		return
	}

	e.refreshStop = make(chan struct{})
	e.refreshDone = make(chan struct{})

	go func() {
		defer close(e.refreshDone)
		ticker := time.NewTicker(e.cfg.RefreshInterval)
		defer ticker.Stop()

		e.logger.Info("{ingest - StartRefreshLoop} refreshing every %s", e.cfg.RefreshInterval)
		for {
			select {
			case <-ticker.C:
				if err := e.Refresh(ctx); err != nil {
					e.logger.Warn("{ingest - StartRefreshLoop} refresh pass failed: %v", err)
				}
			case <-e.refreshStop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the refresh loop and releases the worker pool.
func (e *Engine) Stop() {
	if e.refreshStop != nil {
		close(e.refreshStop)
		<-e.refreshDone
		e.refreshStop = nil
	}
	e.pool.Release()
}
