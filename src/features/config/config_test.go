package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("POSX_DATABASE_PATH", filepath.Join(dir, "data", "posx.db"))

	m, err := Load(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	cfg := m.Get()
	assert.Equal(t, uint32(3636), cfg.Server.Port)
	assert.True(t, cfg.Watching.AutoStart)
	assert.Equal(t, filepath.Join(dir, "data", "posx.db"), cfg.Database.Path)
	assert.DirExists(t, filepath.Join(dir, "data"))
	assert.DirExists(t, filepath.Join(dir, "logs", "jobs"))
}

func TestLoad_StoresAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: ` + filepath.Join(dir, "posx.db") + `
jobs:
  log: false
watching:
  auto_start: false
  dedup_cache_size: 10
stores:
  - store_id: S1
    watch_path: /data/s1/in
    processed_path: /data/s1/processed
    error_path: /data/s1/error
    file_patterns: ["*.xml", "tlog_??.dat"]
    poll_interval_seconds: 5
    pos_integration_id: pos-1
    company_id: acme
telegram:
  enabled: true
  token: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("POSX_TELEGRAM_TOKEN", "from-env")
	t.Setenv("POSX_TELEGRAM_CHAT_ID", "42")

	m, err := Load(path)
	require.NoError(t, err)

	cfg := m.Get()
	require.Len(t, cfg.Stores, 1)
	s := cfg.Stores[0]
	assert.Equal(t, "S1", s.StoreID)
	assert.Equal(t, "/data/s1/in", s.WatchPath)
	assert.Equal(t, []string{"*.xml", "tlog_??.dat"}, s.FilePatterns)
	assert.Equal(t, 5, s.PollIntervalSeconds)
	assert.Equal(t, "acme", s.Context().CompanyID)
	assert.Equal(t, "S1", s.Context().StoreID)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.False(t, cfg.Watching.AutoStart)

	got, ok := m.Store("S1")
	assert.True(t, ok)
	assert.Equal(t, s.WatchPath, got.WatchPath)
	_, ok = m.Store("missing")
	assert.False(t, ok)
}

func TestLoad_RejectsInvalidStores(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"missing watch path": `
stores:
  - store_id: S1
    poll_interval_seconds: 5
`,
		"zero interval": `
stores:
  - store_id: S1
    watch_path: /in
    poll_interval_seconds: 0
`,
		"duplicate store": `
stores:
  - {store_id: S1, watch_path: /a, poll_interval_seconds: 1}
  - {store_id: S1, watch_path: /b, poll_interval_seconds: 1}
`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			full := "database:\n  path: " + filepath.Join(dir, "db.sqlite") + "\njobs:\n  log: false\n" + content
			require.NoError(t, os.WriteFile(path, []byte(full), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestManager_RedactsToken(t *testing.T) {
	cfg := createDefaultConfig()
	cfg.Telegram.Token = "secret-token"
	m := NewManager(cfg)

	assert.NotContains(t, m.GetYAML(), "secret-token")
	assert.NotContains(t, m.GetJSON(), "secret-token")
	assert.Contains(t, m.GetYAML(), "<redacted>")
	assert.Equal(t, "secret-token", m.Get().Telegram.Token)
}

func TestManager_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := createDefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "posx.db")
	cfg.Jobs.Log = false
	cfg.Stores = append(cfg.Stores, Store{POSIntegrationID: "pos-9"})
	cfg.Stores[0].StoreID = "S9"
	cfg.Stores[0].WatchPath = "/in"
	cfg.Stores[0].PollIntervalSeconds = 3

	require.NoError(t, NewManager(cfg).Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	s, ok := loaded.Store("S9")
	require.True(t, ok)
	assert.Equal(t, "pos-9", s.POSIntegrationID)
	assert.Equal(t, 3, s.PollIntervalSeconds)
}
