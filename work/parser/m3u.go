package parser

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/grafana/regexp"

	"iptv-catalog/work/client"
	"iptv-catalog/work/logger"
	"iptv-catalog/work/types"
)

// Attribute extraction from #EXTINF lines. Attribute names match
// case-insensitively; only tvg-logo and group-title are consumed, everything
// else on the line is ignored.
var (
	logoAttrRegex  = regexp.MustCompile(`(?i)tvg-logo="([^"]*)"`)
	groupAttrRegex = regexp.MustCompile(`(?i)group-title="([^"]*)"`)
)

// urlSchemes are the line prefixes accepted as playback URLs.
var urlSchemes = []string{"http", "rtmp", "rtsp"}

// Parse converts raw extended-M3U text into an ordered sequence of entries.
//
// The parser keeps a single pending entry: an #EXTINF line starts one, the
// next URL line completes and emits it. A metadata line with no URL before
// the next metadata line is dropped (the accumulator is overwritten), a URL
// line with no pending named entry is dropped, and every other line is
// ignored. No input is an error; malformed text just yields fewer entries.
//
// Each call is independent and side-effect free. Entry ids are fresh per
// call, so two parses of the same text agree on every field except id.
func Parse(rawText string) []*types.Entry {
	return ParseReader(strings.NewReader(rawText))
}

// ParseReader is Parse over an io.Reader, for callers that stream the
// playlist body instead of holding it in memory.
func ParseReader(r io.Reader) []*types.Entry {
	var entries []*types.Entry
	var pending *types.Entry

	scanner := bufio.NewScanner(r)
	// some playlists carry very long URL lines
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#EXTINF:") {
			pending = parseExtinf(line)
			continue
		}

		if isURLLine(line) {
			// a URL only completes an entry when a named metadata line
			// precedes it; a bare URL is malformed input
			if pending != nil && pending.Name != "" {
				pending.URL = line
				entries = append(entries, pending)
				pending = nil
			}
			continue
		}

		// comments, #EXTM3U headers and unrecognized directives fall through
	}

	return entries
}

// parseExtinf builds a pending entry from one #EXTINF line. The display name
// is the text after the LAST comma outside quotes; attribute values may
// themselves contain commas, so a first-comma split would truncate names.
func parseExtinf(line string) *types.Entry {
	info := strings.TrimPrefix(line, "#EXTINF:")

	name := ""
	if idx := lastUnquotedComma(info); idx >= 0 {
		name = strings.TrimSpace(info[idx+1:])
	}
	if name == "" {
		name = types.PlaceholderName
	}

	entry := &types.Entry{
		ID:    uuid.NewString(),
		Name:  name,
		Group: types.DefaultGroup,
	}

	if m := logoAttrRegex.FindStringSubmatch(info); m != nil && m[1] != "" {
		entry.Logo = m[1]
	}
	if m := groupAttrRegex.FindStringSubmatch(info); m != nil && m[1] != "" {
		entry.Group = m[1]
	}

	return entry
}

// lastUnquotedComma returns the index of the last comma that is not inside a
// quoted attribute value, or -1.
func lastUnquotedComma(s string) int {
	inQuotes := false
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				return i
			}
		}
	}
	return -1
}

func isURLLine(line string) bool {
	for _, scheme := range urlSchemes {
		if strings.HasPrefix(line, scheme) {
			return true
		}
	}
	return false
}

// FetchAndParse downloads the playlist at url and parses it. Transport
// failures are returned to the caller, which falls back to the last cached
// catalog; parse-level problems never produce an error.
func FetchAndParse(ctx context.Context, httpClient *client.HeaderSettingClient, url string) ([]*types.Entry, error) {
	text, err := httpClient.FetchText(ctx, url)
	if err != nil {
		return nil, err
	}

	entries := Parse(text)
	logger.Debug("{parser - FetchAndParse} parsed %d entries", len(entries))
	return entries, nil
}
