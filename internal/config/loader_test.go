package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "general", cfg.DefaultNoteType)
	assert.True(t, cfg.Deletion.RequireConfirmation)
	assert.Equal(t, 50, cfg.Deletion.MaxBulkDelete)
	assert.Equal(t, 100, cfg.Search.MaxResults)
	assert.NotEmpty(t, cfg.Deletion.BackupPath)
}

func TestLoad_FromConfigFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".flint-note")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
version: "1.0"
default_note_type: daily
search:
  max_results: 25
deletion:
  require_confirmation: false
  max_bulk_delete: 5
`), 0o644))

	cfg, err := LoadFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, "daily", cfg.DefaultNoteType)
	assert.Equal(t, 25, cfg.Search.MaxResults)
	assert.False(t, cfg.Deletion.RequireConfirmation)
	assert.Equal(t, 5, cfg.Deletion.MaxBulkDelete)
}

func TestLoad_RelativeBackupPathAnchorsToWorkspace(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".flint-note")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
deletion:
  backup_path: trash
`), 0o644))

	cfg, err := LoadFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "trash"), cfg.Deletion.BackupPath)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".flint-note")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(`
deletion:
  max_bulk_delete: 0
`), 0o644))

	_, err := LoadFromDir(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_bulk_delete")
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.MCPServer.LogLevel = "loud"
	assert.Error(t, Validate(cfg))

	cfg.MCPServer.LogLevel = "debug"
	assert.NoError(t, Validate(cfg))
}
