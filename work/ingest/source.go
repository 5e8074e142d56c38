package ingest

import (
	"context"

	"iptv-catalog/work/client"
	"iptv-catalog/work/config"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/parser"
	"iptv-catalog/work/types"
	"iptv-catalog/work/xtream"
)

// xtreamSource narrows by category id on the panel itself, so the filter is
// consumed before entries reach the pipeline.
type xtreamSource struct {
	client *xtream.Client
}

func (s *xtreamSource) Fetch(ctx context.Context, kind types.Kind, filter string) ([]*types.Entry, error) {
	return s.client.Entries(ctx, kind, filter)
}

func (s *xtreamSource) HandlesFilter() bool { return true }

// Client exposes the underlying panel client for account-info lookups.
func (s *xtreamSource) Client() *xtream.Client { return s.client }

// m3uSource fetches the one raw playlist the provider exposes. A playlist
// has no server-side filtering, so the engine narrows by group label after
// classification.
type m3uSource struct {
	cfg    *config.Config
	client *client.HeaderSettingClient
	logger *logger.Logger
}

func (s *m3uSource) Fetch(ctx context.Context, kind types.Kind, filter string) ([]*types.Entry, error) {
	return parser.FetchAndParse(ctx, s.client, s.cfg.M3UURL)
}

func (s *m3uSource) HandlesFilter() bool { return false }
