// Package xtream implements the client for Xtream-Codes style provider
// panels. It speaks the player_api.php JSON protocol for the three content
// types plus account info, and translates every response row into the common
// catalog Entry shape so structured sources join the classification pipeline
// right after the parser stage.
package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/ratelimit"

	"iptv-catalog/work/client"
	"iptv-catalog/work/config"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/types"
	"iptv-catalog/work/utils"
)

// FlexString tolerates the panel's habit of returning the same field as a
// JSON string in one deployment and a number in another.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Float parses the value as a float, returning 0 for empty or junk input.
func (f FlexString) Float() float64 {
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0
	}
	return v
}

// Category is one row of a get_*_categories response.
type Category struct {
	CategoryID   FlexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
}

// LiveStream is one row of a get_live_streams response.
type LiveStream struct {
	StreamID     int        `json:"stream_id"`
	Name         string     `json:"name"`
	CategoryID   FlexString `json:"category_id"`
	StreamIcon   string     `json:"stream_icon"`
	EpgChannelID string     `json:"epg_channel_id"`
	IsAdult      FlexString `json:"is_adult"`
	Added        FlexString `json:"added"`
}

// VODStream is one row of a get_vod_streams response.
type VODStream struct {
	StreamID           int        `json:"stream_id"`
	Name               string     `json:"name"`
	CategoryID         FlexString `json:"category_id"`
	StreamIcon         string     `json:"stream_icon"`
	ContainerExtension string     `json:"container_extension"`
	Rating             FlexString `json:"rating"`
	Rating5            FlexString `json:"rating_5based"`
	Added              FlexString `json:"added"`
	IsAdult            FlexString `json:"is_adult"`
}

// SeriesItem is one row of a get_series response. Series rows have no
// playable URL of their own; playback requires resolving an episode, so the
// mapped Entry carries an empty URL.
type SeriesItem struct {
	SeriesID    int        `json:"series_id"`
	Name        string     `json:"name"`
	CategoryID  FlexString `json:"category_id"`
	Cover       string     `json:"cover"`
	Plot        string     `json:"plot"`
	Cast        string     `json:"cast"`
	Director    string     `json:"director"`
	Genre       string     `json:"genre"`
	ReleaseDate string     `json:"releaseDate"`
	Rating      FlexString `json:"rating"`
	Rating5     FlexString `json:"rating_5based"`
	EpisodeRun  FlexString `json:"episode_run_time"`
}

// AccountInfo is the player_api.php response with no action parameter.
type AccountInfo struct {
	UserInfo struct {
		Username       string     `json:"username"`
		Status         string     `json:"status"`
		ExpDate        FlexString `json:"exp_date"`
		IsTrial        FlexString `json:"is_trial"`
		ActiveCons     FlexString `json:"active_cons"`
		MaxConnections FlexString `json:"max_connections"`
	} `json:"user_info"`
	ServerInfo struct {
		URL            string     `json:"url"`
		Port           FlexString `json:"port"`
		ServerProtocol string     `json:"server_protocol"`
		TimezoneName   string     `json:"timezone"`
	} `json:"server_info"`
}

// Client talks to one provider panel. Construct it explicitly with NewClient
// and share the instance; it is safe for concurrent use and rate limits its
// own requests.
type Client struct {
	host     string
	username string
	password string
	http     *client.HeaderSettingClient
	limiter  ratelimit.Limiter
	cfg      *config.Config
	logger   *logger.Logger
}

// NewClient builds a panel client from the configured credentials. The rate
// limiter caps request frequency so category and stream fetches for all
// three kinds do not hammer the panel.
func NewClient(cfg *config.Config, httpClient *client.HeaderSettingClient, log *logger.Logger) *Client {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		host:     strings.TrimRight(cfg.XtreamHost, "/"),
		username: cfg.XtreamUsername,
		password: cfg.XtreamPassword,
		http:     httpClient,
		limiter:  ratelimit.New(rps),
		cfg:      cfg,
		logger:   log,
	}
}

// Host returns the configured panel base URL without a trailing slash.
func (c *Client) Host() string { return c.host }

func (c *Client) apiURL(action string, params url.Values) string {
	q := url.Values{}
	q.Set("username", c.username)
	q.Set("password", c.password)
	if action != "" {
		q.Set("action", action)
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return c.host + "/player_api.php?" + q.Encode()
}

// fetchList is the generic GET-and-decode helper shared by every list
// endpoint. Panels answer errors with HTTP 200 and a JSON object instead of
// an array, which surfaces here as a decode failure.
func fetchList[T any](ctx context.Context, c *Client, action string, params url.Values) ([]T, error) {
	body, err := c.get(ctx, c.apiURL(action, params))
	if err != nil {
		return nil, err
	}

	var data []T
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", action, err)
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	c.limiter.Take()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("panel request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("panel returned HTTP %d for %s", resp.StatusCode, utils.LogURL(c.cfg, rawURL))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read panel response: %w", err)
	}

	c.logger.Debug("{xtream - get} %s answered %d bytes", utils.LogURL(c.cfg, rawURL), len(body))
	return body, nil
}

func categoriesAction(kind types.Kind) string {
	switch kind {
	case types.KindMovie:
		return "get_vod_categories"
	case types.KindSeries:
		return "get_series_categories"
	default:
		return "get_live_categories"
	}
}

// Categories lists the panel's category taxonomy for one content type.
func (c *Client) Categories(ctx context.Context, kind types.Kind) ([]types.Category, error) {
	rows, err := fetchList[Category](ctx, c, categoriesAction(kind), nil)
	if err != nil {
		return nil, err
	}

	cats := make([]types.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, types.Category{
			ID:   row.CategoryID.String(),
			Name: row.CategoryName,
			Kind: kind,
		})
	}
	return cats, nil
}

// categoryNames builds the id-to-name join used to turn category ids into
// group labels. A panel where categories fail to load still yields entries,
// just with empty groups for the organizer's fallback to fill.
func (c *Client) categoryNames(ctx context.Context, kind types.Kind) map[string]string {
	cats, err := c.Categories(ctx, kind)
	if err != nil {
		c.logger.Warn("{xtream - categoryNames} categories unavailable for %s: %v", kind, err)
		return nil
	}
	names := make(map[string]string, len(cats))
	for _, cat := range cats {
		names[cat.ID] = cat.Name
	}
	return names
}

// Entries fetches the panel's streams for kind, optionally narrowed to one
// category id, and maps every row into a catalog Entry.
func (c *Client) Entries(ctx context.Context, kind types.Kind, categoryID string) ([]*types.Entry, error) {
	params := url.Values{}
	if categoryID != "" {
		params.Set("category_id", categoryID)
	}

	names := c.categoryNames(ctx, kind)

	switch kind {
	case types.KindMovie:
		rows, err := fetchList[VODStream](ctx, c, "get_vod_streams", params)
		if err != nil {
			return nil, err
		}
		entries := make([]*types.Entry, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, c.vodEntry(&row, names))
		}
		return entries, nil

	case types.KindSeries:
		rows, err := fetchList[SeriesItem](ctx, c, "get_series", params)
		if err != nil {
			return nil, err
		}
		entries := make([]*types.Entry, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, c.seriesEntry(&row, names))
		}
		return entries, nil

	default:
		rows, err := fetchList[LiveStream](ctx, c, "get_live_streams", params)
		if err != nil {
			return nil, err
		}
		entries := make([]*types.Entry, 0, len(rows))
		for _, row := range rows {
			entries = append(entries, c.liveEntry(&row, names))
		}
		return entries, nil
	}
}

// AccountInfo fetches the subscription status for the configured credentials.
func (c *Client) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	body, err := c.get(ctx, c.apiURL("", nil))
	if err != nil {
		return nil, err
	}

	var info AccountInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse account info: %w", err)
	}
	return &info, nil
}

// LiveURL builds the playable URL for a live stream id.
func (c *Client) LiveURL(streamID int) string {
	return fmt.Sprintf("%s/live/%s/%s/%d.ts", c.host, c.username, c.password, streamID)
}

// MovieURL builds the playable URL for a VOD stream id with its container
// extension, defaulting to mp4 when the panel reports none.
func (c *Client) MovieURL(streamID int, ext string) string {
	if ext == "" {
		ext = "mp4"
	}
	return fmt.Sprintf("%s/movie/%s/%s/%d.%s", c.host, c.username, c.password, streamID, ext)
}

func entryID(kind types.Kind, id int) string {
	return fmt.Sprintf("%s-%d", kind, id)
}

func (c *Client) liveEntry(row *LiveStream, names map[string]string) *types.Entry {
	return &types.Entry{
		ID:    entryID(types.KindLive, row.StreamID),
		Name:  row.Name,
		Logo:  row.StreamIcon,
		Group: names[row.CategoryID.String()],
		URL:   c.LiveURL(row.StreamID),
		Kind:  types.KindLive,
		Metadata: &types.Metadata{
			EpgID:   row.EpgChannelID,
			Added:   row.Added.String(),
			IsAdult: row.IsAdult.String() == "1",
		},
	}
}

func (c *Client) vodEntry(row *VODStream, names map[string]string) *types.Entry {
	return &types.Entry{
		ID:    entryID(types.KindMovie, row.StreamID),
		Name:  row.Name,
		Logo:  row.StreamIcon,
		Group: names[row.CategoryID.String()],
		URL:   c.MovieURL(row.StreamID, row.ContainerExtension),
		Kind:  types.KindMovie,
		Metadata: &types.Metadata{
			Rating:    row.Rating.String(),
			Rating5:   row.Rating5.Float(),
			Added:     row.Added.String(),
			IsAdult:   row.IsAdult.String() == "1",
			Extension: row.ContainerExtension,
		},
	}
}

func (c *Client) seriesEntry(row *SeriesItem, names map[string]string) *types.Entry {
	return &types.Entry{
		ID:    entryID(types.KindSeries, row.SeriesID),
		Name:  row.Name,
		Logo:  row.Cover,
		Group: names[row.CategoryID.String()],
		URL:   "", // playable only after an episode is chosen
		Kind:  types.KindSeries,
		Metadata: &types.Metadata{
			Year:     row.ReleaseDate,
			Rating:   row.Rating.String(),
			Rating5:  row.Rating5.Float(),
			Plot:     row.Plot,
			Genre:    row.Genre,
			Cast:     row.Cast,
			Director: row.Director,
			Duration: row.EpisodeRun.String(),
		},
	}
}
