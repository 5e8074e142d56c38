package utils

import (
	"encoding/base64"
	"net/url"
	"strings"

	"golang.org/x/crypto/scrypt"

	"iptv-catalog/work/config"
)

// LogURL returns the URL as-is or an obfuscated form, depending on the
// obfuscation setting. Use it for every URL that reaches a log line, since
// provider URLs routinely embed credentials.
func LogURL(cfg *config.Config, url string) string {
	if cfg.ObfuscateUrls {
		return ObfuscateURL(url)
	}
	return url
}

// ObfuscateURL masks the path, query and fragment of a URL, keeping only
// scheme and host.
//
// Example:
//
//	Input:  "http://example.com/user/pass/stream.m3u8?token=abc"
//	Output: "http://example.com/***?***"
func ObfuscateURL(urlStr string) string {
	if urlStr == "" {
		return ""
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return "***OBFUSCATED***"
	}
	result := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		result += "/***"
	}
	if u.RawQuery != "" {
		result += "?***"
	}
	if u.Fragment != "" {
		result += "#***"
	}
	return result
}

// SanitizeName converts a display name into a URL- and filename-safe slug.
func SanitizeName(name string) string {
	sanitized := name
	replacements := map[string]string{
		" ":  "_",
		",":  "_",
		"\"": "",
		"'":  "",
		"/":  "_",
		"\\": "_",
		"?":  "_",
		"&":  "_",
		"=":  "_",
		":":  "_",
		";":  "_",
		"|":  "_",
		"*":  "_",
		"<":  "_",
		">":  "_",
	}
	for old, repl := range replacements {
		sanitized = strings.ReplaceAll(sanitized, old, repl)
	}
	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	return strings.Trim(sanitized, "_")
}

// tokenSalt is fixed: tokens must survive restarts, so the derivation cannot
// use a random salt.
const tokenSalt = "iptv-catalog.playlist.v1"

// DeriveToken stretches the configured secret into a short URL-safe token
// used to guard the playlist endpoint. Returns "" when no secret is set,
// which disables the guard.
func DeriveToken(secret string) string {
	if secret == "" {
		return ""
	}
	dk, err := scrypt.Key([]byte(secret), []byte(tokenSalt), 16384, 8, 1, 32)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(dk)[:12]
}
