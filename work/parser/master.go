package parser

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/grafov/m3u8"

	"iptv-catalog/work/client"
	"iptv-catalog/work/logger"
)

// ResolveVariant resolves an HLS playlist URL to a directly playable media
// playlist URL. A master playlist resolves to its highest-bandwidth variant;
// a media playlist (or anything that fails to decode as HLS) resolves to the
// input URL unchanged, so callers can pass every live URL through without
// first sniffing the format.
func ResolveVariant(ctx context.Context, httpClient *client.HeaderSettingClient, playlistURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("playlist fetch returned HTTP %d", resp.StatusCode)
	}

	playlist, listType, err := m3u8.DecodeFrom(bufio.NewReader(resp.Body), true)
	if err != nil {
		// not HLS at all; hand the original URL back
		logger.Debug("{parser - ResolveVariant} not an HLS playlist, keeping original URL: %v", err)
		return playlistURL, nil
	}

	if listType != m3u8.MASTER {
		return playlistURL, nil
	}

	master := playlist.(*m3u8.MasterPlaylist)
	var best *m3u8.Variant
	for _, variant := range master.Variants {
		if variant == nil {
			continue
		}
		if best == nil || variant.Bandwidth > best.Bandwidth {
			best = variant
		}
	}
	if best == nil {
		return playlistURL, nil
	}

	resolved := resolveURL(best.URI, playlistURL)
	logger.Debug("{parser - ResolveVariant} selected variant bandwidth=%d", best.Bandwidth)
	return resolved, nil
}

// resolveURL makes a possibly relative variant URI absolute against the
// master playlist URL.
func resolveURL(ref, base string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
