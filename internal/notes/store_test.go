package notes

// Test Plan:
// - create + read round-trip with derived id, hash and system metadata
// - duplicate create collides
// - optimistic concurrency: stale hash fails and leaves state untouched
// - protected metadata keys rejected on update
// - rename and move rewrite referring wikilinks and retire the old id
// - remove cascades index rows

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flint-note/flint-note/internal/config"
	"github.com/flint-note/flint-note/internal/note"
	"github.com/flint-note/flint-note/internal/notetypes"
	"github.com/flint-note/flint-note/internal/storage"
	"github.com/flint-note/flint-note/internal/workspace"
)

type testEnv struct {
	ws    *workspace.Workspace
	db    *storage.DB
	types *notetypes.Manager
	store *Store
	cfg   *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	db, err := storage.Open(ws.DatabasePath())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	log := zerolog.Nop()
	types := notetypes.NewManager(ws, log)
	store := NewStore(ws, db, types, cfg, log)
	return &testEnv{ws: ws, db: db, types: types, store: store, cfg: cfg}
}

func TestCreateAndGet(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.store.Create("general", "Hello World", "Hi", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "general/hello-world.md", created.ID)
	assert.Equal(t, created.Created, created.Updated)
	assert.True(t, strings.HasPrefix(created.ContentHash, "sha256:"))

	got, err := env.store.Get("general/hello-world.md")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Contains(t, got.Content, "Hi")
	assert.Equal(t, created.ContentHash, got.ContentHash)
	assert.Equal(t, "general", got.Metadata["type"])
	assert.Equal(t, "Hello World", got.Metadata["title"])

	// The .md suffix is optional in identifiers.
	got, err = env.store.Get("general/hello-world")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestGet_MissingReturnsNil(t *testing.T) {
	env := newTestEnv(t)
	got, err := env.store.Get("general/nope.md")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreate_DuplicateTitleConflicts(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.store.Create("general", "Twice", "", nil, false)
	require.NoError(t, err)

	_, err = env.store.Create("general", "Twice", "", nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.True(t, IsKind(err, KindConflict))
}

func TestCreate_EmptyTitleRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Create("general", "   ", "", nil, false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidInput))
}

func TestCreate_InvalidTypeRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.Create("no/slash", "Title", "", nil, false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidInput))
}

func TestCreate_WithTemplate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.types.Create("journal", "Daily notes", "# {{title}}\n\n{{content}}\n", nil, nil)
	require.NoError(t, err)

	created, err := env.store.Create("journal", "Monday", "entry text", nil, true)
	require.NoError(t, err)
	assert.Contains(t, created.Content, "# Monday")
	assert.Contains(t, created.Content, "entry text")
}

func TestUpdateContent_OptimisticLock(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.store.Create("general", "Locked", "v0", nil, false)
	require.NoError(t, err)
	h0 := created.ContentHash

	updated, err := env.store.UpdateContent(created.ID, "v1", h0)
	require.NoError(t, err)
	assert.NotEqual(t, h0, updated.ContentHash)

	// Replaying the stale hash must fail without side effects.
	_, err = env.store.UpdateContent(created.ID, "v2", h0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content hash")
	assert.True(t, IsKind(err, KindConflict))

	current, err := env.store.Get(created.ID)
	require.NoError(t, err)
	assert.Contains(t, current.Content, "v1")
	assert.Equal(t, updated.Updated, current.Updated)
}

func TestUpdateContent_MissingNote(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.UpdateContent("general/ghost.md", "x", "sha256:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUpdateWithMetadata_ProtectedFields(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.store.Create("general", "Guarded", "body", nil, false)
	require.NoError(t, err)

	for _, key := range []string{"title", "filename", "created", "updated"} {
		_, err = env.store.UpdateWithMetadata(created.ID, nil, map[string]any{key: "x"}, created.ContentHash, false)
		require.Error(t, err, key)
		assert.Contains(t, err.Error(), "protected")
		assert.True(t, IsKind(err, KindProtectedField))
	}

	// No write happened: the hash still matches.
	current, err := env.store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ContentHash, current.ContentHash)
}

func TestUpdateWithMetadata_MergesDeep(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.store.Create("general", "Meta", "body",
		map[string]any{"nested": map[string]any{"keep": 1}, "status": "open"}, false)
	require.NoError(t, err)

	updated, err := env.store.UpdateWithMetadata(created.ID, nil,
		map[string]any{"nested": map[string]any{"add": 2}, "status": "done"}, created.ContentHash, false)
	require.NoError(t, err)

	nested, ok := updated.Metadata["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, nested["keep"])
	assert.Equal(t, 2, nested["add"])
	assert.Equal(t, "done", updated.Metadata["status"])
	assert.Equal(t, "general", updated.Metadata["type"])
}

func TestRename_RewritesReferences(t *testing.T) {
	env := newTestEnv(t)

	target, err := env.store.Create("general", "Old Name", "target body", nil, false)
	require.NoError(t, err)
	ref, err := env.store.Create("general", "Referrer", "see [[general/old-name]]", nil, false)
	require.NoError(t, err)

	result, err := env.store.Rename(target.ID, "New Name", target.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, "general/new-name.md", result.Note.ID)
	assert.Equal(t, "general/old-name.md", result.OldID)
	assert.Equal(t, 1, result.UpdatedReferences)

	old, err := env.store.Get("general/old-name.md")
	require.NoError(t, err)
	assert.Nil(t, old)

	refAfter, err := env.store.Get(ref.ID)
	require.NoError(t, err)
	assert.Contains(t, refAfter.Content, "general/new-name")
}

func TestRename_StaleHash(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.store.Create("general", "Stale", "", nil, false)
	require.NoError(t, err)

	_, err = env.store.Rename(created.ID, "Other", "sha256:"+strings.Repeat("0", 64))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content hash")
}

func TestMove_RewritesReferencesAndRetiresOldID(t *testing.T) {
	env := newTestEnv(t)

	project, err := env.store.Create("projects", "My Project", "project body", nil, false)
	require.NoError(t, err)
	_, err = env.store.Create("general", "Reference", "see [[projects/my-project]]", nil, false)
	require.NoError(t, err)
	_, err = env.ws.EnsureTypeDir("completed")
	require.NoError(t, err)

	result, err := env.store.Move(project.ID, "completed", project.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, "completed/my-project.md", result.Note.ID)
	assert.Equal(t, "completed", result.Note.Metadata["type"])

	old, err := env.store.Get("projects/my-project.md")
	require.NoError(t, err)
	assert.Nil(t, old)

	ref, err := env.store.Get("general/reference.md")
	require.NoError(t, err)
	assert.Contains(t, ref.Content, "completed/my-project")
	assert.NotContains(t, ref.Content, "[[projects/my-project")
}

func TestMove_SameTypeRejected(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.store.Create("general", "Stay", "", nil, false)
	require.NoError(t, err)

	_, err = env.store.Move(created.ID, "general", created.ContentHash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in note type")
	assert.True(t, IsKind(err, KindSameType))
}

func TestMove_UnknownTypeRejected(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.store.Create("general", "Wander", "", nil, false)
	require.NoError(t, err)

	_, err = env.store.Move(created.ID, "nowhere", created.ContentHash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.True(t, IsKind(err, KindInvalidType))
}

func TestMove_ThereAndBackAgain(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.store.Create("general", "Boomerang", "", nil, false)
	require.NoError(t, err)
	_, err = env.ws.EnsureTypeDir("archive")
	require.NoError(t, err)

	moved, err := env.store.Move(created.ID, "archive", created.ContentHash)
	require.NoError(t, err)
	back, err := env.store.Move(moved.Note.ID, "general", moved.Note.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, "general", back.Note.Type)
}

func TestMove_TargetCollision(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.store.Create("general", "Clash", "", nil, false)
	require.NoError(t, err)
	_, err = env.ws.EnsureTypeDir("archive")
	require.NoError(t, err)
	_, err = env.store.Create("archive", "Clash", "", nil, false)
	require.NoError(t, err)

	_, err = env.store.Move(created.ID, "archive", created.ContentHash)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
}

func TestRemove_CascadesIndexRows(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.store.Create("general", "Doomed", "see [[general/other]] and https://example.com", nil, false)
	require.NoError(t, err)

	require.NoError(t, env.store.Remove(created.ID))

	got, err := env.store.Get(created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	internal, external, err := storage.CountLinkRows(env.db.RO())
	require.NoError(t, err)
	assert.Zero(t, internal)
	assert.Zero(t, external)
}

func TestGetMany_PerEntryResults(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.store.Create("general", "Exists", "", nil, false)
	require.NoError(t, err)

	results := env.store.GetMany([]string{created.ID, "general/missing.md"})
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "not found")
}

func TestWrittenFileHashMatchesDisk(t *testing.T) {
	env := newTestEnv(t)
	created, err := env.store.Create("general", "Hash Check", "body", nil, false)
	require.NoError(t, err)

	raw, err := os.ReadFile(created.Path)
	require.NoError(t, err)
	assert.Equal(t, note.HashContent(raw), created.ContentHash)

	got, err := env.store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ContentHash, got.ContentHash)
}

func TestCreate_BrokenLinkResolvedByLaterCreate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.store.Create("general", "Pointer", "see [[general/future]]", nil, false)
	require.NoError(t, err)

	var target *string
	row := env.db.RO().QueryRow("SELECT target_note_id FROM note_links WHERE target_title = 'general/future'")
	require.NoError(t, row.Scan(&target))
	assert.Nil(t, target, "link starts broken")

	_, err = env.store.Create("general", "Future", "", nil, false)
	require.NoError(t, err)

	row = env.db.RO().QueryRow("SELECT target_note_id FROM note_links WHERE target_title = 'general/future'")
	require.NoError(t, row.Scan(&target))
	require.NotNil(t, target)
	assert.Equal(t, "general/future.md", *target)
}
