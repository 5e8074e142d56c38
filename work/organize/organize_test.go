package organize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv-catalog/work/types"
)

func entry(name, group string, kind types.Kind) *types.Entry {
	return &types.Entry{Name: name, Group: group, Kind: kind}
}

func TestOrganizeLiveSortsAlphabetically(t *testing.T) {
	entries := []*types.Entry{
		entry("Zebra TV", "Sports", types.KindLive),
		entry("Alpha News", "News", types.KindLive),
		entry("Beta Sports", "Sports", types.KindLive),
	}

	groups := Organize(types.KindLive, entries)
	require.Len(t, groups, 2)

	assert.Equal(t, "News", groups[0].Name)
	assert.Equal(t, "Sports", groups[1].Name)

	// entries inside a group sort by name
	assert.Equal(t, "Beta Sports", groups[1].Entries[0].Name)
	assert.Equal(t, "Zebra TV", groups[1].Entries[1].Name)
}

func TestOrganizeMoviesSortByCount(t *testing.T) {
	entries := []*types.Entry{
		entry("A", "Drama", types.KindMovie),
		entry("B", "Ação", types.KindMovie),
		entry("C", "Ação", types.KindMovie),
		entry("D", "Drama", types.KindMovie),
		entry("E", "Ação", types.KindMovie),
	}

	groups := Organize(types.KindMovie, entries)
	require.Len(t, groups, 2)

	assert.Equal(t, "Ação", groups[0].Name)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, "Drama", groups[1].Name)
	assert.Equal(t, 2, groups[1].Count)
}

func TestOrganizeSkipsOtherKinds(t *testing.T) {
	entries := []*types.Entry{
		entry("Movie", "Drama", types.KindMovie),
		entry("Channel", "Sports", types.KindLive),
	}

	groups := Organize(types.KindMovie, entries)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Count)
}

func TestGroupLabel(t *testing.T) {
	tests := []struct {
		name string
		kind types.Kind
		raw  string
		want string
	}{
		{"live passthrough", types.KindLive, "Sports | Live", "Sports | Live"},
		{"live empty falls back", types.KindLive, "  ", types.DefaultGroup},
		{"movie leading vendor segments", types.KindMovie, "VOD | Filmes | Ação", "Ação"},
		{"movie trailing vendor segment", types.KindMovie, "Ação | Filmes", "Ação"},
		{"movie non-vendor segments kept", types.KindMovie, "Amazon | Ação", "Amazon | Ação"},
		{"movie vendor prefix", types.KindMovie, "FILMES - Drama", "Drama"},
		{"movie vod prefix", types.KindMovie, "VOD: Terror", "Terror"},
		{"movie bare generic falls back", types.KindMovie, "Filmes", types.FallbackMovieGroup},
		{"movie bare english generic falls back", types.KindMovie, "Movies", types.FallbackMovieGroup},
		{"movie empty falls back", types.KindMovie, "", types.FallbackMovieGroup},
		{"movie only prefix falls back", types.KindMovie, "Filmes - ", types.FallbackMovieGroup},
		{"series leading vendor segment", types.KindSeries, "Séries | Netflix", "Netflix"},
		{"series bare generic falls back", types.KindSeries, "Series", types.FallbackSeriesGroup},
		{"series empty falls back", types.KindSeries, "", types.FallbackSeriesGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GroupLabel(tt.kind, tt.raw))
		})
	}
}
