package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func loadFrom(t *testing.T, body string) *Config {
	t.Helper()
	t.Setenv("IPTV_CATALOG_CONFIG", writeConfig(t, body))
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)
	return LoadConfig()
}

func TestLoadConfigFromFile(t *testing.T) {
	cfg := loadFrom(t, `{
		"listenAddr": ":9090",
		"connectionType": "xtream",
		"xtreamHost": "http://panel.example:8080",
		"xtreamUsername": "u",
		"xtreamPassword": "p",
		"cacheTTL": "30m",
		"refreshInterval": "6h",
		"workerThreads": 8,
		"recentLimit": 25,
		"secret": "s3cret"
	}`)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, ConnectionXtream, cfg.ConnectionType)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 6*time.Hour, cfg.RefreshInterval)
	assert.Equal(t, 8, cfg.WorkerThreads)
	assert.Equal(t, 25, cfg.RecentLimit)
	assert.True(t, cfg.CacheEnabled)
	assert.True(t, cfg.HasProvider())
}

func TestLoadConfigDefaultsOnMissingFile(t *testing.T) {
	t.Setenv("IPTV_CATALOG_CONFIG", filepath.Join(t.TempDir(), "absent.json"))
	ClearConfigCache()
	t.Cleanup(ClearConfigCache)

	cfg := LoadConfig()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ConnectionM3U, cfg.ConnectionType)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 12*time.Hour, cfg.RefreshInterval)
	assert.Equal(t, 10, cfg.RecentLimit)
	assert.False(t, cfg.HasProvider())
}

func TestLoadConfigInvalidDurationFallsBack(t *testing.T) {
	cfg := loadFrom(t, `{"cacheTTL": "soon"}`)
	// the whole file is rejected, so defaults apply
	assert.Equal(t, time.Hour, cfg.CacheTTL)
}

func TestLoadConfigCacheDisabled(t *testing.T) {
	cfg := loadFrom(t, `{"cacheEnabled": false}`)
	assert.False(t, cfg.CacheEnabled)
}

func TestLoadConfigIsCached(t *testing.T) {
	cfg := loadFrom(t, `{"listenAddr": ":7777"}`)
	again := LoadConfig()
	assert.Same(t, cfg, again)
}

func TestValidateClampsBadValues(t *testing.T) {
	cfg := loadFrom(t, `{
		"connectionType": "carrier-pigeon",
		"workerThreads": -1,
		"recentLimit": 0,
		"rateLimit": -5
	}`)

	assert.Equal(t, ConnectionM3U, cfg.ConnectionType)
	assert.Equal(t, 4, cfg.WorkerThreads)
	assert.Equal(t, 10, cfg.RecentLimit)
	assert.Equal(t, 5, cfg.RateLimit)
}

func TestCreateExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.json")
	require.NoError(t, CreateExampleConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cf ConfigFile
	require.NoError(t, json.Unmarshal(data, &cf))
	assert.NotEmpty(t, cf.ListenAddr)
	assert.NotEmpty(t, cf.CacheTTL)
}
