package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30, cfg.Tracking.HeartbeatSeconds)
	assert.Equal(t, 500, cfg.Tracking.DebounceMillis)
	assert.Equal(t, 30*time.Second, cfg.Tracking.Heartbeat())
	assert.Equal(t, 500*time.Millisecond, cfg.Tracking.Debounce())
	assert.Equal(t, "Local", cfg.Tracking.Timezone)
	assert.Equal(t, "~/.config/detox", cfg.Storage.Path)
	assert.Equal(t, "detox.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "detox.log", cfg.Logging.File)
	assert.Equal(t, 10, cfg.Logging.MaxSize)
	assert.Equal(t, 3, cfg.Logging.MaxBackups)
	assert.Empty(t, cfg.Metrics.Address)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultSeedDomains(t *testing.T) {
	domains := DefaultSeedDomains()
	assert.Len(t, domains, 15)

	assert.Contains(t, domains, "youtube.com")
	assert.Contains(t, domains, "x.com")
	assert.Contains(t, domains, "mail.google.com")
	assert.Contains(t, domains, "claude.ai")
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
tracking:
  heartbeat_seconds: 10
  debounce_millis: 750
  timezone: "UTC"
logging:
  level: "debug"
metrics:
  address: "127.0.0.1:9464"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Tracking.Heartbeat())
	assert.Equal(t, 750*time.Millisecond, cfg.Tracking.Debounce())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Address)

	loc, err := cfg.Tracking.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	// Non-overridden values remain defaults
	assert.Equal(t, "detox.db", cfg.Storage.SQLiteFile)
	assert.Len(t, cfg.Tracking.SeedDomains, 15)
}

func TestLoadSeedDomainsReplacesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
tracking:
  seed_domains:
    - "news.ycombinator.com"
    - "lobste.rs"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"news.ycombinator.com", "lobste.rs"}, cfg.Tracking.SeedDomains)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(cfgPath, []byte(":::not valid yaml{{{"), 0644))

	_, err := Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"zero heartbeat":    "tracking:\n  heartbeat_seconds: 0\n",
		"negative debounce": "tracking:\n  debounce_millis: -5\n",
		"unknown timezone":  "tracking:\n  timezone: \"Mars/Olympus\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

			_, err := Load(cfgPath)
			assert.Error(t, err)
		})
	}
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	_, err := Load("/tmp/nonexistent_path_12345/config.yaml")
	assert.Error(t, err)
}

func TestLoadOrCreateCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "deep", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Tracking.HeartbeatSeconds)

	_, statErr := os.Stat(cfgPath)
	assert.NoError(t, statErr)

	cfg2, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Tracking, cfg2.Tracking)
}

func TestLoadOrCreateLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	require.NoError(t, os.WriteFile(cfgPath, []byte("tracking:\n  heartbeat_seconds: 5\n"), 0644))

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Tracking.HeartbeatSeconds)
	assert.Equal(t, 500, cfg.Tracking.DebounceMillis)
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/var/lib/detox"

	db, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/detox/detox.db", db)

	logPath, err := cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/detox/detox.log", logPath)

	cfg.Logging.File = "/tmp/detox.log"
	logPath, err = cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/detox.log", logPath)

	cfg.Logging.File = ""
	logPath, err = cfg.LogPath()
	require.NoError(t, err)
	assert.Empty(t, logPath)
}
