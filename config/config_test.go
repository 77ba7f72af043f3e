package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "file:calgate.db", cfg.Store.DSN)
	assert.True(t, cfg.Store.AutoGrant)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Empty(t, cfg.Seed.Path)
	assert.Equal(t, 720*time.Hour, cfg.Search.Window)
}

func TestLoad_File(t *testing.T) {
	dir := writeConfig(t, `
store:
  backend: SQLite
  dsn: "file:test.db"
  auto_grant: false
logger:
  level: debug
seed:
  path: seed.ics
search:
  window: 48h
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "file:test.db", cfg.Store.DSN)
	assert.False(t, cfg.Store.AutoGrant)
	assert.Equal(t, "seed.ics", cfg.Seed.Path)
	assert.Equal(t, 48*time.Hour, cfg.Search.Window)

	level, err := cfg.Logger.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := writeConfig(t, "store:\n  backend: memory\n")
	t.Setenv("CALGATE_STORE_BACKEND", "sqlite")
	t.Setenv("CALGATE_STORE_DSN", ":memory:")
	t.Setenv("CALGATE_SEARCH_WINDOW", "1h")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, ":memory:", cfg.Store.DSN)
	assert.Equal(t, time.Hour, cfg.Search.Window)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown backend", body: "store:\n  backend: postgres\n"},
		{name: "sqlite without dsn", body: "store:\n  backend: sqlite\n  dsn: \"\"\n"},
		{name: "zero window", body: "search:\n  window: 0s\n"},
		{name: "bad level", body: "logger:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "store: [unclosed\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}
