package search

// Test Plan:
// - rebuild scans the workspace and is idempotent over an unchanged tree
// - FTS search finds notes, ranks title hits above content hits
// - regex search: invalid pattern rejected, matches return line snippets
// - advanced search filters on metadata rows and sorts
// - raw SQL surface: SELECT only, readonly rejection for writes

import (
	"database/sql"
	"os"
	"path/filepath"
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

type searchEnv struct {
	ws    *workspace.Workspace
	db    *storage.DB
	store *notes.Store
	svc   *Service
}

func newSearchEnv(t *testing.T) *searchEnv {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	db, err := storage.Open(ws.DatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	log := zerolog.Nop()
	types := notetypes.NewManager(ws, log)
	store := notes.NewStore(ws, db, types, cfg, log)
	svc := NewService(ws, db, cfg, log)
	return &searchEnv{ws: ws, db: db, store: store, svc: svc}
}

func TestSearchText_FTS(t *testing.T) {
	env := newSearchEnv(t)

	_, err := env.store.Create("general", "Gardening Tips", "All about tomatoes.", nil, false)
	require.NoError(t, err)
	_, err = env.store.Create("general", "Unrelated", "This mentions gardening once.", nil, false)
	require.NoError(t, err)

	results, err := env.svc.SearchText("gardening", "", 10, false)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The title hit outranks the content hit.
	assert.Equal(t, "general/gardening-tips.md", results[0].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestSearchText_TypeFilter(t *testing.T) {
	env := newSearchEnv(t)
	_, err := env.store.Create("general", "Apple Pie", "", nil, false)
	require.NoError(t, err)
	_, err = env.store.Create("recipes", "Apple Crumble", "", nil, false)
	require.NoError(t, err)

	results, err := env.svc.SearchText("apple", "recipes", 10, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "recipes", results[0].Type)
}

func TestSearchText_EmptyQueryListsRecent(t *testing.T) {
	env := newSearchEnv(t)
	_, err := env.store.Create("general", "Only Note", "", nil, false)
	require.NoError(t, err)

	results, err := env.svc.SearchText("", "", 10, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchText_InvalidRegex(t *testing.T) {
	env := newSearchEnv(t)
	_, err := env.svc.SearchText("[", "", 10, true)
	require.Error(t, err)
	assert.True(t, notes.IsKind(err, notes.KindInvalidRegex))
	assert.Contains(t, err.Error(), "invalid regex")
}

func TestSearchText_RegexSnippets(t *testing.T) {
	env := newSearchEnv(t)
	_, err := env.store.Create("general", "Log Notes", "first line\nerror: it broke\nlast line", nil, false)
	require.NoError(t, err)

	results, err := env.svc.SearchText(`error: \w+`, "", 10, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Snippet, "error: it broke")
	assert.Contains(t, results[0].Snippet, "2:", "snippet carries the line number")
}

func TestSearchAdvanced_MetadataFilters(t *testing.T) {
	env := newSearchEnv(t)
	_, err := env.store.Create("projects", "Alpha", "", map[string]any{"status": "open", "priority": 2}, false)
	require.NoError(t, err)
	_, err = env.store.Create("projects", "Beta", "", map[string]any{"status": "done", "priority": 1}, false)
	require.NoError(t, err)

	results, err := env.svc.SearchAdvanced(&AdvancedQuery{
		Type:            "projects",
		MetadataFilters: []MetadataFilter{{Key: "status", Value: "open"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "projects/alpha.md", results[0].ID)
}

func TestSearchAdvanced_SortAndContentContains(t *testing.T) {
	env := newSearchEnv(t)
	_, err := env.store.Create("general", "B Note", "the shared word", nil, false)
	require.NoError(t, err)
	_, err = env.store.Create("general", "A Note", "the shared word", nil, false)
	require.NoError(t, err)

	results, err := env.svc.SearchAdvanced(&AdvancedQuery{
		ContentContains: "shared word",
		Sort:            []SortSpec{{Field: "title", Order: "asc"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A Note", results[0].Title)
}

func TestSearchAdvanced_RejectsBadOperatorAndSort(t *testing.T) {
	env := newSearchEnv(t)

	_, err := env.svc.SearchAdvanced(&AdvancedQuery{
		MetadataFilters: []MetadataFilter{{Key: "k", Value: "v", Operator: "DROP"}},
	})
	require.Error(t, err)
	assert.True(t, notes.IsKind(err, notes.KindInvalidSQL))

	_, err = env.svc.SearchAdvanced(&AdvancedQuery{Sort: []SortSpec{{Field: "path; --"}}})
	require.Error(t, err)
	assert.True(t, notes.IsKind(err, notes.KindInvalidSQL))
}

func TestSearchSQL_SelectOnly(t *testing.T) {
	env := newSearchEnv(t)
	_, err := env.store.Create("general", "Row", "", nil, false)
	require.NoError(t, err)

	result, err := env.svc.SearchSQL("SELECT id, title FROM notes WHERE type = ?", []any{"general"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "general/row.md", result.Rows[0]["id"])

	_, err = env.svc.SearchSQL("DELETE FROM notes", nil)
	require.Error(t, err)
	assert.True(t, notes.IsKind(err, notes.KindInvalidSQL))

	_, err = env.svc.SearchSQL("SELECT 1; SELECT 2", nil)
	require.Error(t, err)
}

func TestReadOnlyConnectionRejectsRawWrites(t *testing.T) {
	env := newSearchEnv(t)
	_, err := env.db.RO().Exec("UPDATE notes SET title = 'x'")
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "readonly")
}

func TestRebuild_Idempotent(t *testing.T) {
	env := newSearchEnv(t)

	_, err := env.store.Create("general", "One", "links to [[general/two]]", nil, false)
	require.NoError(t, err)
	_, err = env.store.Create("general", "Two", "body", nil, false)
	require.NoError(t, err)

	report, err := env.svc.Rebuild()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Notes)
	first := snapshotCounts(t, env.db)

	report, err = env.svc.Rebuild()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Notes)
	assert.Equal(t, first, snapshotCounts(t, env.db))
}

func TestRebuild_RecoversFromDroppedIndex(t *testing.T) {
	env := newSearchEnv(t)
	created, err := env.store.Create("general", "Survivor", "precious content", nil, false)
	require.NoError(t, err)

	// Wipe the derived state; the file on disk is the source of truth.
	err = env.db.WriteTx(func(tx *sql.Tx) error { return storage.ClearAll(tx) })
	require.NoError(t, err)

	_, err = env.svc.Rebuild()
	require.NoError(t, err)

	row, err := storage.GetNote(env.db.RO(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "precious content", row.Content)
}

func TestRebuildIfNeeded_ForcedByEnv(t *testing.T) {
	env := newSearchEnv(t)
	_, err := env.store.Create("general", "Seed", "", nil, false)
	require.NoError(t, err)

	// Drop a note behind the index's back, then force a rebuild.
	path, err := env.ws.ResolvePath(filepath.Join("general", "seed.md"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	t.Setenv(ForceRebuildEnv, "1")
	require.NoError(t, env.svc.RebuildIfNeeded())

	count, err := storage.CountNotes(env.db.RO())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func snapshotCounts(t *testing.T, db *storage.DB) map[string]int {
	t.Helper()
	counts := map[string]int{}
	for _, table := range []string{"notes", "note_metadata", "note_links", "external_links"} {
		var n int
		require.NoError(t, db.RO().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		counts[table] = n
	}
	return counts
}
