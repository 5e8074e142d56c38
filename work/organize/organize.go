// Package organize buckets classified entries into named groups and orders
// the result for presentation. Live groups sort alphabetically; movie and
// series groups sort by descending entry count so the largest catalogs come
// first.
package organize

import (
	"sort"
	"strings"

	"github.com/grafana/regexp"

	"iptv-catalog/work/types"
)

// Group-label cleanup for on-demand catalogs. Provider playlists decorate
// VOD groups with pipe-delimited vendor tags on either side ("VOD | Ação",
// "Ação | Filmes") or with a dash/colon prefix ("FILMES - Drama"); only the
// generic tags get stripped, never the label users actually care about.
var (
	pipeSplitRegex    = regexp.MustCompile(`\s*[|]\s*`)
	vendorPrefixRegex = regexp.MustCompile(`(?i)^(vod|filmes?|movies?|series?|séries?)\s*[-:]\s*`)
	genericLabelRegex = regexp.MustCompile(`(?i)^(vod|filmes?|movies?|series?|séries?)$`)
)

// Organize buckets entries of a single kind into groups and sorts both the
// group list and each group's entries. Entries whose kind does not match are
// skipped. The input slice is not modified.
func Organize(kind types.Kind, entries []*types.Entry) []*types.Group {
	buckets := make(map[string][]*types.Entry)
	order := make([]string, 0, 16)

	for _, e := range entries {
		if e.Kind != kind {
			continue
		}
		label := GroupLabel(kind, e.Group)
		if _, seen := buckets[label]; !seen {
			order = append(order, label)
		}
		buckets[label] = append(buckets[label], e)
	}

	groups := make([]*types.Group, 0, len(order))
	for _, label := range order {
		members := buckets[label]
		sort.SliceStable(members, func(i, j int) bool {
			return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
		})
		groups = append(groups, &types.Group{
			Name:    label,
			Entries: members,
			Count:   len(members),
		})
	}

	switch kind {
	case types.KindLive:
		sort.SliceStable(groups, func(i, j int) bool {
			return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
		})
	default:
		// biggest catalogs first; ties break alphabetically for stable output
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].Count != groups[j].Count {
				return groups[i].Count > groups[j].Count
			}
			return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
		})
	}

	return groups
}

// GroupLabel normalizes a raw group-title for the given kind. Live labels
// pass through untouched apart from whitespace trimming; movie and series
// labels lose generic vendor segments at either end of the pipe chain plus
// any dash/colon vendor prefix, and fall back to a kind-specific default
// when nothing usable remains.
func GroupLabel(kind types.Kind, raw string) string {
	label := strings.TrimSpace(raw)

	if kind == types.KindLive {
		if label == "" {
			return types.DefaultGroup
		}
		return label
	}

	if label != "" {
		segs := pipeSplitRegex.Split(label, -1)
		for len(segs) > 0 && isGenericSegment(segs[0]) {
			segs = segs[1:]
		}
		for len(segs) > 0 && isGenericSegment(segs[len(segs)-1]) {
			segs = segs[:len(segs)-1]
		}
		label = strings.TrimSpace(strings.Join(segs, " | "))
		label = strings.TrimSpace(vendorPrefixRegex.ReplaceAllString(label, ""))
		if genericLabelRegex.MatchString(label) {
			label = ""
		}
	}

	if label == "" {
		return fallbackLabel(kind)
	}
	return label
}

func isGenericSegment(s string) bool {
	return genericLabelRegex.MatchString(strings.TrimSpace(s))
}

func fallbackLabel(kind types.Kind) string {
	if kind == types.KindSeries {
		return types.FallbackSeriesGroup
	}
	return types.FallbackMovieGroup
}
