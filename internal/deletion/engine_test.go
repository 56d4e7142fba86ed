package deletion

// Test Plan:
// - confirmation required when configured; skipping confirm fails
// - backups created alongside deletions and reported back
// - bulk delete: candidate resolution by type/tags/pattern, limit guard
// - type deletion: error action on a populated type, migrate moves notes and
//   rewrites wikilinks, delete empties the directory

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-note/flint-note/internal/config"
	"github.com/flint-note/flint-note/internal/notes"
	"github.com/flint-note/flint-note/internal/notetypes"
	"github.com/flint-note/flint-note/internal/storage"
	"github.com/flint-note/flint-note/internal/workspace"
)

type engineEnv struct {
	ws     *workspace.Workspace
	db     *storage.DB
	store  *notes.Store
	types  *notetypes.Manager
	engine *Engine
	cfg    *config.Config
}

func newEngineEnv(t *testing.T) *engineEnv {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	db, err := storage.Open(ws.DatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.Deletion.BackupPath = ws.BackupDir()
	log := zerolog.Nop()
	types := notetypes.NewManager(ws, log)
	store := notes.NewStore(ws, db, types, cfg, log)
	engine := NewEngine(ws, db, store, types, cfg, log)
	return &engineEnv{ws: ws, db: db, store: store, types: types, engine: engine, cfg: cfg}
}

func TestDeleteNote_RequiresConfirmation(t *testing.T) {
	env := newEngineEnv(t)
	created, err := env.store.Create("general", "Victim", "", nil, false)
	require.NoError(t, err)

	_, err = env.engine.DeleteNote(created.ID, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confirmation")

	// Nothing was deleted.
	still, err := env.store.Get(created.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestDeleteNote_WithBackup(t *testing.T) {
	env := newEngineEnv(t)
	created, err := env.store.Create("general", "Backed Up", "precious", nil, false)
	require.NoError(t, err)

	result, err := env.engine.DeleteNote(created.ID, true)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	require.NotEmpty(t, result.BackupPath)

	backup, err := os.ReadFile(result.BackupPath)
	require.NoError(t, err)
	assert.Contains(t, string(backup), "precious")

	gone, err := env.store.Get(created.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestDeleteNote_NotFound(t *testing.T) {
	env := newEngineEnv(t)
	_, err := env.engine.DeleteNote("general/ghost.md", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDeleteNote_NoConfirmationWhenDisabled(t *testing.T) {
	env := newEngineEnv(t)
	env.cfg.Deletion.RequireConfirmation = false
	created, err := env.store.Create("general", "Easy", "", nil, false)
	require.NoError(t, err)

	result, err := env.engine.DeleteNote(created.ID, false)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
}

func TestBulkDelete_LimitGuard(t *testing.T) {
	env := newEngineEnv(t)
	env.cfg.Deletion.MaxBulkDelete = 2
	for _, title := range []string{"One", "Two", "Three"} {
		_, err := env.store.Create("general", title, "", nil, false)
		require.NoError(t, err)
	}

	_, err := env.engine.BulkDelete(BulkCriteria{Type: "general"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk delete limit exceeded")
	assert.True(t, notes.IsKind(err, notes.KindBulkLimitExceeded))

	// Zero deletions happened.
	rows, err := storage.ListNotesByType(env.db.RO(), "general")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestBulkDelete_ByPattern(t *testing.T) {
	env := newEngineEnv(t)
	for _, title := range []string{"Draft One", "Draft Two", "Keeper"} {
		_, err := env.store.Create("general", title, "", nil, false)
		require.NoError(t, err)
	}

	results, err := env.engine.BulkDelete(BulkCriteria{Pattern: "general/draft-*"}, true)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	rows, err := storage.ListNotesByType(env.db.RO(), "general")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "general/keeper.md", rows[0].ID)
}

func TestBulkDelete_ByTags(t *testing.T) {
	env := newEngineEnv(t)
	_, err := env.store.Create("general", "Tagged", "", map[string]any{"tags": []any{"obsolete", "old"}}, false)
	require.NoError(t, err)
	_, err = env.store.Create("general", "Untagged", "", nil, false)
	require.NoError(t, err)

	results, err := env.engine.BulkDelete(BulkCriteria{Tags: []string{"obsolete"}}, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "general/tagged.md", results[0].ID)
	assert.True(t, results[0].Deleted)
}

func TestBulkDelete_NoCriteria(t *testing.T) {
	env := newEngineEnv(t)
	_, err := env.engine.BulkDelete(BulkCriteria{}, true)
	require.Error(t, err)
}

func TestDeleteType_ErrorActionOnPopulatedType(t *testing.T) {
	env := newEngineEnv(t)
	_, err := env.store.Create("scratch", "Present", "", nil, false)
	require.NoError(t, err)

	_, err = env.engine.DeleteType("scratch", ActionError, "", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty")
	assert.True(t, env.ws.TypeDirExists("scratch"))
}

func TestDeleteType_ErrorActionOnEmptyType(t *testing.T) {
	env := newEngineEnv(t)
	_, err := env.types.Create("empty", "", "", nil, nil)
	require.NoError(t, err)

	result, err := env.engine.DeleteType("empty", ActionError, "", true)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.False(t, env.ws.TypeDirExists("empty"))
}

func TestDeleteType_Migrate(t *testing.T) {
	env := newEngineEnv(t)
	first, err := env.store.Create("temporary", "First", "", nil, false)
	require.NoError(t, err)
	_, err = env.store.Create("temporary", "Second", "", nil, false)
	require.NoError(t, err)
	_, err = env.store.Create("general", "Pointer", "see [[temporary/first]]", nil, false)
	require.NoError(t, err)
	_, err = env.ws.EnsureTypeDir("archive")
	require.NoError(t, err)
	_ = first

	result, err := env.engine.DeleteType("temporary", ActionMigrate, "archive", true)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.ElementsMatch(t, []string{"archive/first.md", "archive/second.md"}, result.Migrated)
	assert.False(t, env.ws.TypeDirExists("temporary"))

	moved, err := env.store.Get("archive/first.md")
	require.NoError(t, err)
	require.NotNil(t, moved)

	pointer, err := env.store.Get("general/pointer.md")
	require.NoError(t, err)
	assert.Contains(t, pointer.Content, "archive/first")
}

func TestDeleteType_MigrateRequiresExistingTarget(t *testing.T) {
	env := newEngineEnv(t)
	_, err := env.store.Create("temporary", "Note", "", nil, false)
	require.NoError(t, err)

	_, err = env.engine.DeleteType("temporary", ActionMigrate, "missing", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	_, err = env.engine.DeleteType("temporary", ActionMigrate, "", true)
	require.Error(t, err)
}

func TestDeleteType_DeleteAction(t *testing.T) {
	env := newEngineEnv(t)
	_, err := env.store.Create("scratch", "A", "", nil, false)
	require.NoError(t, err)
	_, err = env.store.Create("scratch", "B", "", nil, false)
	require.NoError(t, err)

	result, err := env.engine.DeleteType("scratch", ActionDelete, "", true)
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Len(t, result.Notes, 2)
	assert.False(t, env.ws.TypeDirExists("scratch"))
	require.NotEmpty(t, result.BackupPath)

	// The archived directory holds the deleted notes.
	entries, err := os.ReadDir(result.BackupPath)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, strings.Join(names, ","), "a.md")
}

func TestDeleteType_UnknownAction(t *testing.T) {
	env := newEngineEnv(t)
	_, err := env.types.Create("x", "", "", nil, nil)
	require.NoError(t, err)

	_, err = env.engine.DeleteType("x", "explode", "", true)
	require.Error(t, err)
}
