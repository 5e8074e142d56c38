// Package recent maintains the bounded, deduplicated per-kind lists of
// recently played and favorited entries. Lists are most-recent-first, capped
// at a configured length, and keyed by entry id. They persist in the
// key-value store as independent copies, so a catalog refresh never mutates
// what a user already played or starred.
package recent

import (
	"iptv-catalog/work/config"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/store"
	"iptv-catalog/work/types"
)

// Push returns list with entry moved to the front, any prior element with
// the same id removed, and the result truncated to limit. The input slice is
// not modified.
func Push(list []types.Entry, entry types.Entry, limit int) []types.Entry {
	out := make([]types.Entry, 0, len(list)+1)
	out = append(out, entry)
	for _, e := range list {
		if e.ID == entry.ID {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Remove returns list without any element matching id.
func Remove(list []types.Entry, id string) []types.Entry {
	out := make([]types.Entry, 0, len(list))
	for _, e := range list {
		if e.ID == id {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Contains reports whether list holds an element with id.
func Contains(list []types.Entry, id string) bool {
	for _, e := range list {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Manager persists recents and favorites through the key-value store. Store
// failures degrade to empty lists on read and skipped writes; the lists are
// convenience state, never worth failing a request over.
type Manager struct {
	store  *store.Store
	limit  int
	logger *logger.Logger
}

// NewManager builds a list manager with the configured cap.
func NewManager(st *store.Store, cfg *config.Config, log *logger.Logger) *Manager {
	return &Manager{store: st, limit: cfg.RecentLimit, logger: log}
}

// storage key suffixes per kind, kept compatible with the mobile app's
// AsyncStorage layout
func kindSuffix(kind types.Kind) string {
	switch kind {
	case types.KindMovie:
		return "movies"
	case types.KindSeries:
		return "series"
	default:
		return "channels"
	}
}

func recentKey(kind types.Kind) string   { return "recent_" + kindSuffix(kind) }
func favoriteKey(kind types.Kind) string { return "favorite_" + kindSuffix(kind) }

// Recents returns the recently played list for kind, most recent first.
func (m *Manager) Recents(kind types.Kind) []types.Entry {
	return m.load(recentKey(kind))
}

// Favorites returns the favorites list for kind, most recently starred first.
func (m *Manager) Favorites(kind types.Kind) []types.Entry {
	return m.load(favoriteKey(kind))
}

// RecordPlay moves entry to the front of kind's recently played list and
// returns the updated list.
func (m *Manager) RecordPlay(kind types.Kind, entry types.Entry) []types.Entry {
	list := Push(m.load(recentKey(kind)), entry, m.limit)
	m.save(recentKey(kind), list)
	return list
}

// ToggleFavorite stars entry when absent and unstars it when present. It
// returns the updated list and whether the entry is now a favorite.
func (m *Manager) ToggleFavorite(kind types.Kind, entry types.Entry) ([]types.Entry, bool) {
	key := favoriteKey(kind)
	list := m.load(key)

	if Contains(list, entry.ID) {
		list = Remove(list, entry.ID)
		m.save(key, list)
		return list, false
	}

	list = Push(list, entry, m.limit)
	m.save(key, list)
	return list, true
}

// IsFavorite reports whether the entry id is starred for kind.
func (m *Manager) IsFavorite(kind types.Kind, id string) bool {
	return Contains(m.load(favoriteKey(kind)), id)
}

// ClearRecents empties the recently played list for kind.
func (m *Manager) ClearRecents(kind types.Kind) {
	if err := m.store.Remove(recentKey(kind)); err != nil {
		m.logger.Warn("{recent - ClearRecents} %v", err)
	}
}

func (m *Manager) load(key string) []types.Entry {
	var list []types.Entry
	if ok := m.store.GetJSON(key, &list); !ok {
		return nil
	}
	return list
}

func (m *Manager) save(key string, list []types.Entry) {
	if err := m.store.SetJSON(key, list); err != nil {
		m.logger.Warn("{recent - save} could not persist %s: %v", key, err)
	}
}
