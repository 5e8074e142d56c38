package recent

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iptv-catalog/work/config"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/store"
	"iptv-catalog/work/types"
)

func e(id string) types.Entry {
	return types.Entry{ID: id, Name: "entry " + id}
}

func TestPush(t *testing.T) {
	t.Run("prepends", func(t *testing.T) {
		list := Push([]types.Entry{e("a"), e("b")}, e("c"), 10)
		require.Len(t, list, 3)
		assert.Equal(t, "c", list[0].ID)
	})

	t.Run("dedupes by id and moves to front", func(t *testing.T) {
		list := Push([]types.Entry{e("a"), e("b"), e("c")}, e("b"), 10)
		require.Len(t, list, 3)
		assert.Equal(t, "b", list[0].ID)
		assert.Equal(t, "a", list[1].ID)
		assert.Equal(t, "c", list[2].ID)
	})

	t.Run("caps at limit", func(t *testing.T) {
		var list []types.Entry
		for i := 0; i < 15; i++ {
			list = Push(list, e(fmt.Sprintf("id-%d", i)), 10)
		}
		require.Len(t, list, 10)
		assert.Equal(t, "id-14", list[0].ID)
		assert.Equal(t, "id-5", list[9].ID)
	})

	t.Run("does not modify input", func(t *testing.T) {
		orig := []types.Entry{e("a"), e("b")}
		Push(orig, e("c"), 10)
		require.Len(t, orig, 2)
		assert.Equal(t, "a", orig[0].ID)
	})
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	log := logger.New("error")
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{RecentLimit: 10}
	return NewManager(st, cfg, log)
}

func TestManagerRecordPlay(t *testing.T) {
	m := newTestManager(t)

	m.RecordPlay(types.KindMovie, e("m1"))
	m.RecordPlay(types.KindMovie, e("m2"))
	m.RecordPlay(types.KindMovie, e("m1"))

	list := m.Recents(types.KindMovie)
	require.Len(t, list, 2)
	assert.Equal(t, "m1", list[0].ID)
	assert.Equal(t, "m2", list[1].ID)

	// kinds are independent lists
	assert.Empty(t, m.Recents(types.KindLive))
}

func TestManagerToggleFavorite(t *testing.T) {
	m := newTestManager(t)

	list, starred := m.ToggleFavorite(types.KindLive, e("c1"))
	assert.True(t, starred)
	require.Len(t, list, 1)
	assert.True(t, m.IsFavorite(types.KindLive, "c1"))

	list, starred = m.ToggleFavorite(types.KindLive, e("c1"))
	assert.False(t, starred)
	assert.Empty(t, list)
	assert.False(t, m.IsFavorite(types.KindLive, "c1"))
}

func TestManagerClearRecents(t *testing.T) {
	m := newTestManager(t)

	m.RecordPlay(types.KindSeries, e("s1"))
	m.ClearRecents(types.KindSeries)
	assert.Empty(t, m.Recents(types.KindSeries))
}
