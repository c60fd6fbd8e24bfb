package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, filepath.Join(dir, "nested", DefaultDBName), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "nested", DefaultLogName), cfg.LogPath)
	assert.True(t, cfg.ShowCompleted)
	assert.Equal(t, "a", cfg.Keys.Add)
	assert.Equal(t, "]", cfg.Keys.NextDay)
	assert.Equal(t, "p", cfg.Keys.FoldPending)
	assert.Equal(t, "c", cfg.Keys.FoldCompleted)

	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadOrCreateFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	data := `
db_path = "/var/lib/daylist/tasks.db"
show_completed = false

[keys]
add = "n"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/daylist/tasks.db", cfg.DBPath)
	assert.False(t, cfg.ShowCompleted)
	assert.Equal(t, DefaultTimeFormat, cfg.TimeFormat)
	assert.Equal(t, "n", cfg.Keys.Add)
	assert.Equal(t, "q", cfg.Keys.Quit)
	assert.Equal(t, "esc", cfg.Keys.Cancel)
	assert.Equal(t, "c", cfg.Keys.FoldCompleted)
}

func TestLoadOrCreateEmptyDBPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`db_path = ""`), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultDBName), cfg.DBPath)
}

func TestLoadOrCreateInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("db_path = ["), 0o644))

	_, err := LoadOrCreate(path)
	assert.Error(t, err)
}

func TestResolveConfigPathFromEnv(t *testing.T) {
	t.Setenv(configEnv, "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", ResolveConfigPath())
}
