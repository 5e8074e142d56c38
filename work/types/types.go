package types

import (
	"time"
)

// Kind classifies a catalog entry into one of the three content categories the
// application can browse. The classifier assigns it; the parser never does.
type Kind string

// Supported content kinds. KindLive is the default when classification finds
// no stronger signal.
const (
	KindLive   Kind = "live"
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Valid reports whether k is one of the three known content kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindLive, KindMovie, KindSeries:
		return true
	}
	return false
}

// Fallback display labels used when the source provides no usable value.
const (
	PlaceholderName    = "Untitled"
	DefaultGroup       = "Uncategorized"
	FallbackMovieGroup = "Other Movies"
	FallbackSeriesGroup = "Other Series"
)

// Metadata holds the optional descriptive fields only a structured catalog
// API (Xtream) can supply. M3U-sourced entries leave it nil.
type Metadata struct {
	Year      string  `json:"year,omitempty"`
	Rating    string  `json:"rating,omitempty"`
	Plot      string  `json:"plot,omitempty"`
	Genre     string  `json:"genre,omitempty"`
	Cast      string  `json:"cast,omitempty"`
	Director  string  `json:"director,omitempty"`
	Duration  string  `json:"duration,omitempty"`
	Added     string  `json:"added,omitempty"`
	Rating5   float64 `json:"rating5,omitempty"`
	EpgID     string  `json:"epgChannelId,omitempty"`
	IsAdult   bool    `json:"isAdult,omitempty"`
	Extension string  `json:"extension,omitempty"`
}

// Entry is one playable unit of the catalog. The id is unique within a single
// ingestion pass; it is NOT stable across passes, so persisted references
// (recents, favorites) carry a full copy of the entry rather than an id alone.
type Entry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Logo     string    `json:"logo,omitempty"`
	Group    string    `json:"group"`
	URL      string    `json:"url,omitempty"` // empty for series pending episode resolution
	Kind     Kind      `json:"kind,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Group is a browsable bucket of entries sharing a normalized group label.
// Invariant: Count == len(Entries) and a group is never created empty.
type Group struct {
	Name    string   `json:"name"`
	Entries []*Entry `json:"entries"`
	Count   int      `json:"count"`
}

// Category mirrors one category exposed by a structured catalog API,
// before any streams for it have been fetched.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Catalog is the complete result of one ingestion pass for a single content
// kind: the classified entries plus their group organization. Catalogs are
// recomputed wholesale on every pass, never incrementally updated.
type Catalog struct {
	Kind      Kind      `json:"kind"`
	Entries   []*Entry  `json:"entries"`
	Groups    []*Group  `json:"groups"`
	FetchedAt time.Time `json:"fetchedAt"`
	FromCache bool      `json:"fromCache,omitempty"`
}

// Total returns the number of entries in the catalog.
func (c *Catalog) Total() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}
