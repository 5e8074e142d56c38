package config

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"sync"
	"time"
)

// Connection types a provider can be configured with. An M3U provider exposes
// one raw playlist URL; an Xtream provider exposes a structured catalog API.
const (
	ConnectionM3U    = "m3u"
	ConnectionXtream = "xtream"
)

// Config holds all application configuration for the catalog service:
// provider connection details, caching, refresh scheduling and HTTP serving.
type Config struct {
	ListenAddr      string        `json:"listenAddr"`      // Address the HTTP API binds to
	BaseURL         string        `json:"baseURL"`         // Externally visible base URL
	ConnectionType  string        `json:"connectionType"`  // "m3u" or "xtream"
	M3UURL          string        `json:"m3uUrl"`          // Playlist URL for m3u providers
	XtreamHost      string        `json:"xtreamHost"`      // Server URL for xtream providers
	XtreamUsername  string        `json:"xtreamUsername"`  // Xtream account username
	XtreamPassword  string        `json:"xtreamPassword"`  // Xtream account password
	CacheEnabled    bool          `json:"cacheEnabled"`    // Whether the content cache is consulted
	CacheTTL        time.Duration `json:"cacheTTL"`        // Freshness window for cached catalogs
	RefreshInterval time.Duration `json:"refreshInterval"` // Background re-ingestion interval
	WorkerThreads   int           `json:"workerThreads"`   // Worker pool size for refresh tasks
	RecentLimit     int           `json:"recentLimit"`     // Max length of recently-played lists
	RateLimit       int           `json:"rateLimit"`       // Xtream API requests per second
	Debug           bool          `json:"debug"`           // Enable debug logging
	ObfuscateUrls   bool          `json:"obfuscateUrls"`   // Mask provider URLs in logs
	UserAgent       string        `json:"userAgent"`       // HTTP User-Agent for provider requests
	ReqOrigin       string        `json:"reqOrigin"`       // HTTP Origin header for provider requests
	ReqReferrer     string        `json:"reqReferrer"`     // HTTP Referer header for provider requests
	Secret          string        `json:"secret"`          // Optional secret guarding the playlist endpoint
	DatabasePath    string        `json:"databasePath"`    // SQLite file backing the key-value store
}

// ConfigFile is the JSON on-disk shape of Config. Duration fields are strings
// (e.g. "1h", "30m") and parsed into time.Duration on load.
type ConfigFile struct {
	ListenAddr      string `json:"listenAddr"`
	BaseURL         string `json:"baseURL"`
	ConnectionType  string `json:"connectionType"`
	M3UURL          string `json:"m3uUrl"`
	XtreamHost      string `json:"xtreamHost"`
	XtreamUsername  string `json:"xtreamUsername"`
	XtreamPassword  string `json:"xtreamPassword"`
	CacheEnabled    *bool  `json:"cacheEnabled,omitempty"`
	CacheTTL        string `json:"cacheTTL"`
	RefreshInterval string `json:"refreshInterval"`
	WorkerThreads   int    `json:"workerThreads"`
	RecentLimit     int    `json:"recentLimit"`
	RateLimit       int    `json:"rateLimit"`
	Debug           bool   `json:"debug"`
	ObfuscateUrls   bool   `json:"obfuscateUrls"`
	UserAgent       string `json:"userAgent"`
	ReqOrigin       string `json:"reqOrigin"`
	ReqReferrer     string `json:"reqReferrer"`
	Secret          string `json:"secret"`
	DatabasePath    string `json:"databasePath"`
}

var (
	configCache *Config      // Cached configuration instance
	configMutex sync.RWMutex // Guards configCache
)

// DefaultConfigPath is used when IPTV_CATALOG_CONFIG is not set.
const DefaultConfigPath = "/settings/config.json"

// LoadConfig loads the configuration from file or returns the cached
// instance. Missing or invalid files fall back to defaults, and every loaded
// config is run through validation so downstream code never sees a zero
// duration or empty address.
func LoadConfig() *Config {
	configMutex.RLock()
	if configCache != nil {
		defer configMutex.RUnlock()
		return configCache
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	// double-check under the write lock
	if configCache != nil {
		return configCache
	}

	configPath := os.Getenv("IPTV_CATALOG_CONFIG")
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	config, err := loadFromFile(configPath)
	if err != nil {
		log.Printf("Failed to load config from %s: %v", configPath, err)
		log.Printf("Falling back to default configuration...")
		config = getDefaultConfig()
	}

	validateAndSetDefaults(config)
	configCache = config

	if config.Debug {
		log.Printf("Configuration loaded:")
		log.Printf("  Connection type: %s", config.ConnectionType)
		log.Printf("  Provider: %s", obfuscateURL(config.providerURL()))
		log.Printf("  Cache: enabled=%v ttl=%s", config.CacheEnabled, config.CacheTTL)
		log.Printf("  Refresh interval: %s", config.RefreshInterval)
	}

	return config
}

// loadFromFile reads and parses the configuration from a JSON file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var configFile ConfigFile
	if err := json.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return convertFromFile(&configFile)
}

// convertFromFile converts a ConfigFile to Config, parsing duration strings.
func convertFromFile(cf *ConfigFile) (*Config, error) {
	config := &Config{
		ListenAddr:     cf.ListenAddr,
		BaseURL:        cf.BaseURL,
		ConnectionType: cf.ConnectionType,
		M3UURL:         cf.M3UURL,
		XtreamHost:     cf.XtreamHost,
		XtreamUsername: cf.XtreamUsername,
		XtreamPassword: cf.XtreamPassword,
		CacheEnabled:   true,
		WorkerThreads:  cf.WorkerThreads,
		RecentLimit:    cf.RecentLimit,
		RateLimit:      cf.RateLimit,
		Debug:          cf.Debug,
		ObfuscateUrls:  cf.ObfuscateUrls,
		UserAgent:      cf.UserAgent,
		ReqOrigin:      cf.ReqOrigin,
		ReqReferrer:    cf.ReqReferrer,
		Secret:         cf.Secret,
		DatabasePath:   cf.DatabasePath,
	}

	if cf.CacheEnabled != nil {
		config.CacheEnabled = *cf.CacheEnabled
	}

	var err error
	if cf.CacheTTL != "" {
		if config.CacheTTL, err = time.ParseDuration(cf.CacheTTL); err != nil {
			return nil, fmt.Errorf("invalid cacheTTL: %w", err)
		}
	}
	if cf.RefreshInterval != "" {
		if config.RefreshInterval, err = time.ParseDuration(cf.RefreshInterval); err != nil {
			return nil, fmt.Errorf("invalid refreshInterval: %w", err)
		}
	}

	return config, nil
}

// getDefaultConfig returns a baseline configuration used when no file is
// present.
func getDefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		BaseURL:         "http://localhost:8080",
		ConnectionType:  ConnectionM3U,
		CacheEnabled:    true,
		CacheTTL:        time.Hour,
		RefreshInterval: 12 * time.Hour,
		WorkerThreads:   4,
		RecentLimit:     10,
		RateLimit:       5,
		Debug:           false,
		ObfuscateUrls:   true,
		UserAgent:       "VLC/3.0.18 LibVLC/3.0.18",
		DatabasePath:    "/data/catalog.db",
	}
}

// validateAndSetDefaults fills defaults for missing or invalid values.
func validateAndSetDefaults(config *Config) {
	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8080"
	}
	if config.ConnectionType != ConnectionXtream {
		config.ConnectionType = ConnectionM3U
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Hour
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = 12 * time.Hour
	}
	if config.WorkerThreads <= 0 {
		config.WorkerThreads = 4
	}
	if config.RecentLimit <= 0 {
		config.RecentLimit = 10
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}
	if config.UserAgent == "" {
		config.UserAgent = "VLC/3.0.18 LibVLC/3.0.18"
	}
	if config.DatabasePath == "" {
		config.DatabasePath = "/data/catalog.db"
	}
}

// providerURL returns the URL of whichever provider type is configured.
func (c *Config) providerURL() string {
	if c.ConnectionType == ConnectionXtream {
		return c.XtreamHost
	}
	return c.M3UURL
}

// HasProvider reports whether a usable provider is configured.
func (c *Config) HasProvider() bool {
	if c.ConnectionType == ConnectionXtream {
		return c.XtreamHost != "" && c.XtreamUsername != "" && c.XtreamPassword != ""
	}
	return c.M3UURL != ""
}

// CreateExampleConfig writes an example config file to path.
func CreateExampleConfig(path string) error {
	enabled := true
	example := ConfigFile{
		ListenAddr:      ":8080",
		BaseURL:         "http://localhost:8080",
		ConnectionType:  ConnectionM3U,
		M3UURL:          "http://example.com/playlist.m3u",
		XtreamHost:      "",
		XtreamUsername:  "",
		XtreamPassword:  "",
		CacheEnabled:    &enabled,
		CacheTTL:        "1h",
		RefreshInterval: "12h",
		WorkerThreads:   4,
		RecentLimit:     10,
		RateLimit:       5,
		Debug:           false,
		ObfuscateUrls:   true,
		UserAgent:       "VLC/3.0.18 LibVLC/3.0.18",
		DatabasePath:    "/data/catalog.db",
	}

	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ClearConfigCache resets the cached config, forcing a reload on the next
// LoadConfig call. Used by the graceful restart path.
func ClearConfigCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	configCache = nil
}

// obfuscateURL masks sensitive parts of a URL for logging.
func obfuscateURL(urlStr string) string {
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
	return result
}
