package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv-catalog/work/cache"
	"iptv-catalog/work/client"
	"iptv-catalog/work/config"
	"iptv-catalog/work/ingest"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/recent"
	"iptv-catalog/work/store"
	"iptv-catalog/work/types"
	"iptv-catalog/work/utils"
)

type fixedSource struct {
	entries []*types.Entry
}

func (s *fixedSource) Fetch(ctx context.Context, kind types.Kind, filter string) ([]*types.Entry, error) {
	out := make([]*types.Entry, len(s.entries))
	for i, e := range s.entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

func (s *fixedSource) HandlesFilter() bool { return false }

func testEntries(liveURL string) []*types.Entry {
	return []*types.Entry{
		{ID: "1", Name: "Globo News", Group: "Notícias", URL: liveURL},
		{ID: "2", Name: "ESPN HD", Group: "Sports | Live", URL: "http://h/live/2.ts"},
		{ID: "3", Name: "Avengers (2024) Dublado", Group: "VOD | Ação", URL: "http://h/movie/3.mp4"},
		{ID: "4", Name: "Breaking Bad S01E01", Group: "Séries | Drama", URL: ""},
	}
}

func newTestRouter(t *testing.T, liveURL string) (*mux.Router, *config.Config) {
	t.Helper()

	log := logger.New("error")
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		CacheEnabled:  true,
		CacheTTL:      time.Hour,
		WorkerThreads: 2,
		RecentLimit:   10,
		Secret:        "test-secret",
		UserAgent:     "test-agent",
	}

	src := &fixedSource{entries: testEntries(liveURL)}
	engine, err := ingest.New(cfg, src, cache.New(st, cfg, log), st, log)
	require.NoError(t, err)
	t.Cleanup(engine.Stop)

	h := New(cfg, engine, recent.NewManager(st, cfg, log), nil, client.New(cfg), log)
	r := mux.NewRouter()
	h.Register(r)
	return r, cfg
}

func doJSON(t *testing.T, r *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleCatalog(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodGet, "/api/live/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)

	var cat types.Catalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cat))
	assert.Equal(t, types.KindLive, cat.Kind)
	assert.Equal(t, 2, cat.Total())
}

func TestHandleCatalogSearch(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodGet, "/api/live/catalog?q=globo", "")
	require.Equal(t, http.StatusOK, w.Code)

	var cat types.Catalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cat))
	require.Equal(t, 1, cat.Total())
	assert.Equal(t, "Globo News", cat.Entries[0].Name)
}

func TestHandleCatalogUnknownKind404(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodGet, "/api/radio/catalog", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGroups(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodGet, "/api/movie/groups", "")
	require.Equal(t, http.StatusOK, w.Code)

	var groups []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "Ação", groups[0].Name)
	assert.Equal(t, 1, groups[0].Count)
}

func TestPlayRecordsRecent(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodPost, "/api/movie/play", `{"id":"3"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "http://h/movie/3.mp4", resp["url"])

	w = doJSON(t, r, http.MethodGet, "/api/movie/recent", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []types.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "3", list[0].ID)
}

func TestPlayResolvesLiveMaster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/master.m3u8" {
			w.Write([]byte("#EXTM3U\n" +
				"#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=500000\nlow/index.m3u8\n" +
				"#EXT-X-STREAM-INF:PROGRAM-ID=1,BANDWIDTH=2000000\nhigh/index.m3u8\n"))
			return
		}
		http.NotFound(w, req)
	}))
	defer srv.Close()

	r, _ := newTestRouter(t, srv.URL+"/master.m3u8")

	w := doJSON(t, r, http.MethodPost, "/api/live/play", `{"id":"1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, srv.URL+"/high/index.m3u8", resp["url"])
}

func TestPlaySeriesWithoutURL409(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodPost, "/api/series/play", `{"id":"4"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPlayUnknownID404(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodPost, "/api/movie/play", `{"id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleFavorite(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodPost, "/api/live/favorites/toggle", `{"id":"2"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Favorite  bool          `json:"favorite"`
		Favorites []types.Entry `json:"favorites"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Favorite)
	require.Len(t, resp.Favorites, 1)

	w = doJSON(t, r, http.MethodPost, "/api/live/favorites/toggle", `{"id":"2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Favorite)
	assert.Empty(t, resp.Favorites)
}

func TestAccountWithoutPanel404(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodGet, "/api/account", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefresh(t *testing.T) {
	r, _ := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]struct {
		Entries int `json:"entries"`
		Groups  int `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats["live"].Entries)
	assert.Equal(t, 1, stats["movie"].Entries)
	assert.Equal(t, 1, stats["series"].Entries)
}

func TestPlaylistTokenGuard(t *testing.T) {
	r, cfg := newTestRouter(t, "http://h/live/1.ts")

	w := doJSON(t, r, http.MethodGet, "/playlist/wrong-token.m3u", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	token := utils.DeriveToken(cfg.Secret)
	w = doJSON(t, r, http.MethodGet, "/playlist/"+token+".m3u", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "#EXTM3U\n"))
	assert.Contains(t, body, "Globo News")
	// series containers have no playable URL and stay out of the export
	assert.NotContains(t, body, "Breaking Bad")
}
