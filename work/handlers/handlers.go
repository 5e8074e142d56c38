// Package handlers implements the catalog HTTP API: per-kind catalog and
// group listings, play and favorite actions, account info, manual refresh
// and an M3U re-export guarded by a derived token.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"iptv-catalog/work/client"
	"iptv-catalog/work/config"
	"iptv-catalog/work/ingest"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/parser"
	"iptv-catalog/work/recent"
	"iptv-catalog/work/types"
	"iptv-catalog/work/utils"
	"iptv-catalog/work/xtream"
)

// Handler bundles the collaborators every endpoint needs.
type Handler struct {
	cfg     *config.Config
	engine  *ingest.Engine
	recents *recent.Manager
	panel   *xtream.Client // nil for playlist providers
	http    *client.HeaderSettingClient
	logger  *logger.Logger
}

// New builds the API handler set. panel may be nil when the provider is a
// plain playlist; the account endpoint then answers 404.
func New(cfg *config.Config, engine *ingest.Engine, recents *recent.Manager, panel *xtream.Client, httpClient *client.HeaderSettingClient, log *logger.Logger) *Handler {
	return &Handler{
		cfg:     cfg,
		engine:  engine,
		recents: recents,
		panel:   panel,
		http:    httpClient,
		logger:  log,
	}
}

// Register attaches every route to the router.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/{kind:live|movie|series}/catalog", h.HandleCatalog).Methods(http.MethodGet)
	api.HandleFunc("/{kind:live|movie|series}/groups", h.HandleGroups).Methods(http.MethodGet)
	api.HandleFunc("/{kind:live|movie|series}/recent", h.HandleRecents).Methods(http.MethodGet)
	api.HandleFunc("/{kind:live|movie|series}/recent", h.HandleClearRecents).Methods(http.MethodDelete)
	api.HandleFunc("/{kind:live|movie|series}/favorites", h.HandleFavorites).Methods(http.MethodGet)
	api.HandleFunc("/{kind:live|movie|series}/favorites/toggle", h.HandleToggleFavorite).Methods(http.MethodPost)
	api.HandleFunc("/{kind:live|movie|series}/play", h.HandlePlay).Methods(http.MethodPost)
	api.HandleFunc("/account", h.HandleAccount).Methods(http.MethodGet)
	api.HandleFunc("/refresh", h.HandleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/stats", h.HandleStats).Methods(http.MethodGet)

	r.HandleFunc("/playlist/{token}.m3u", h.HandlePlaylist).Methods(http.MethodGet)
}

func pathKind(r *http.Request) types.Kind {
	return types.Kind(mux.Vars(r)["kind"])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("{handlers - writeJSON} encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HandleCatalog serves the organized catalog for a kind. Query parameters:
// group narrows to one category (id or normalized label, provider
// dependent), q searches entry names case-insensitively.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	kind := pathKind(r)
	group := r.URL.Query().Get("group")
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	catalog, err := h.engine.Catalog(r.Context(), kind, group)
	if err != nil {
		h.logger.Error("{handlers - HandleCatalog} %s: %v", kind, err)
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	if query != "" {
		catalog = searchCatalog(catalog, query)
	}

	writeJSON(w, http.StatusOK, catalog)
}

// searchCatalog rebuilds a catalog keeping only entries whose name contains
// the query. The cached catalog is never mutated.
func searchCatalog(catalog *types.Catalog, query string) *types.Catalog {
	matched := make([]*types.Entry, 0, len(catalog.Entries))
	for _, e := range catalog.Entries {
		if strings.Contains(strings.ToLower(e.Name), query) {
			matched = append(matched, e)
		}
	}

	groups := make([]*types.Group, 0, len(catalog.Groups))
	for _, g := range catalog.Groups {
		kept := make([]*types.Entry, 0, len(g.Entries))
		for _, e := range g.Entries {
			if strings.Contains(strings.ToLower(e.Name), query) {
				kept = append(kept, e)
			}
		}
		if len(kept) > 0 {
			groups = append(groups, &types.Group{Name: g.Name, Entries: kept, Count: len(kept)})
		}
	}

	return &types.Catalog{
		Kind:      catalog.Kind,
		Entries:   matched,
		Groups:    groups,
		FetchedAt: catalog.FetchedAt,
		FromCache: catalog.FromCache,
	}
}

// HandleGroups serves the group summaries for a kind without entry bodies.
func (h *Handler) HandleGroups(w http.ResponseWriter, r *http.Request) {
	kind := pathKind(r)

	catalog, err := h.engine.Catalog(r.Context(), kind, "")
	if err != nil {
		h.logger.Error("{handlers - HandleGroups} %s: %v", kind, err)
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	type groupSummary struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	summaries := make([]groupSummary, 0, len(catalog.Groups))
	for _, g := range catalog.Groups {
		summaries = append(summaries, groupSummary{Name: g.Name, Count: g.Count})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// HandleRecents serves the recently played list for a kind.
func (h *Handler) HandleRecents(w http.ResponseWriter, r *http.Request) {
	list := h.recents.Recents(pathKind(r))
	if list == nil {
		list = []types.Entry{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleClearRecents empties the recently played list for a kind.
func (h *Handler) HandleClearRecents(w http.ResponseWriter, r *http.Request) {
	h.recents.ClearRecents(pathKind(r))
	w.WriteHeader(http.StatusNoContent)
}

// HandleFavorites serves the favorites list for a kind.
func (h *Handler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	list := h.recents.Favorites(pathKind(r))
	if list == nil {
		list = []types.Entry{}
	}
	writeJSON(w, http.StatusOK, list)
}

type idRequest struct {
	ID string `json:"id"`
}

// lookupEntry resolves a request body id against the in-memory catalogs,
// ingesting the unfiltered catalog first if nothing is loaded yet.
func (h *Handler) lookupEntry(r *http.Request, kind types.Kind) (*types.Entry, int, error) {
	var req idRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		return nil, http.StatusBadRequest, fmt.Errorf("body must carry an entry id")
	}

	if _, ok := h.engine.Cached(kind, ""); !ok {
		if _, err := h.engine.Catalog(r.Context(), kind, ""); err != nil {
			return nil, http.StatusBadGateway, fmt.Errorf("catalog unavailable")
		}
	}

	entry, ok := h.engine.FindEntry(kind, req.ID)
	if !ok {
		return nil, http.StatusNotFound, fmt.Errorf("unknown entry id %q", req.ID)
	}
	return entry, http.StatusOK, nil
}

// HandleToggleFavorite stars or unstars an entry and answers with the new
// state and the updated list.
func (h *Handler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	kind := pathKind(r)

	entry, status, err := h.lookupEntry(r, kind)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	list, starred := h.recents.ToggleFavorite(kind, *entry)
	writeJSON(w, http.StatusOK, map[string]any{
		"favorite":  starred,
		"favorites": list,
	})
}

// HandlePlay records a play action and answers with the playable URL. Live
// HLS masters are resolved to their best variant; series containers carry no
// direct URL and answer 409.
func (h *Handler) HandlePlay(w http.ResponseWriter, r *http.Request) {
	kind := pathKind(r)

	entry, status, err := h.lookupEntry(r, kind)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	if entry.URL == "" {
		writeError(w, http.StatusConflict, "entry has no direct stream url")
		return
	}

	playURL := entry.URL
	if kind == types.KindLive {
		resolved, err := parser.ResolveVariant(r.Context(), h.http, entry.URL)
		if err != nil {
			h.logger.Warn("{handlers - HandlePlay} variant resolution failed for %s: %v",
				utils.LogURL(h.cfg, entry.URL), err)
		} else {
			playURL = resolved
		}
	}

	h.recents.RecordPlay(kind, *entry)
	writeJSON(w, http.StatusOK, map[string]string{"url": playURL})
}

// HandleAccount proxies the provider's subscription status. Playlist
// providers have no account endpoint.
func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	if h.panel == nil {
		writeError(w, http.StatusNotFound, "provider has no account api")
		return
	}

	info, err := h.panel.AccountInfo(r.Context())
	if err != nil {
		h.logger.Error("{handlers - HandleAccount} %v", err)
		writeError(w, http.StatusBadGateway, "account info unavailable")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleRefresh triggers a full re-ingestion of every kind and blocks until
// it completes.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Refresh(r.Context()); err != nil {
		h.logger.Error("{handlers - HandleRefresh} %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// HandleStats reports per-kind entry and group counts from the in-memory
// catalogs, without triggering ingestion.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	type kindStats struct {
		Entries   int    `json:"entries"`
		Groups    int    `json:"groups"`
		FetchedAt string `json:"fetchedAt,omitempty"`
	}

	stats := make(map[string]kindStats, 3)
	for _, kind := range []types.Kind{types.KindLive, types.KindMovie, types.KindSeries} {
		s := kindStats{}
		if cat, ok := h.engine.Cached(kind, ""); ok {
			s.Entries = cat.Total()
			s.Groups = len(cat.Groups)
			s.FetchedAt = cat.FetchedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		stats[string(kind)] = s
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandlePlaylist re-exports the full catalog as an extended M3U playlist.
// The path token must match the one derived from the configured secret, so
// the playlist URL is shareable with players without exposing credentials.
func (h *Handler) HandlePlaylist(w http.ResponseWriter, r *http.Request) {
	expected := utils.DeriveToken(h.cfg.Secret)
	if expected == "" {
		writeError(w, http.StatusForbidden, "playlist export disabled, no secret configured")
		return
	}
	if mux.Vars(r)["token"] != expected {
		writeError(w, http.StatusForbidden, "invalid playlist token")
		return
	}

	var all []*types.Entry
	for _, kind := range []types.Kind{types.KindLive, types.KindMovie, types.KindSeries} {
		catalog, err := h.engine.Catalog(r.Context(), kind, "")
		if err != nil {
			h.logger.Warn("{handlers - HandlePlaylist} skipping %s: %v", kind, err)
			continue
		}
		all = append(all, catalog.Entries...)
	}

	w.Header().Set("Content-Type", "application/x-mpegurl")
	w.Header().Set("Content-Disposition", `attachment; filename="catalog.m3u"`)

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, e := range all {
		if e.URL == "" {
			continue // series containers are not directly playable
		}
		fmt.Fprintf(&b, "#EXTINF:-1 tvg-id=%q tvg-logo=%q group-title=%q,%s\n%s\n",
			e.ID, e.Logo, e.Group, e.Name, e.URL)
	}
	if _, err := w.Write([]byte(b.String())); err != nil {
		h.logger.Warn("{handlers - HandlePlaylist} write failed: %v", err)
	}
}
