package storage

// Test Plan:
// - Open creates the schema: notes, notes_fts, note_metadata, note_links,
//   external_links, schema_meta
// - The read-only connection rejects writes with a "readonly" error
// - Deleting a note cascades its outgoing links and metadata rows, and nulls
//   incoming link targets
// - Changing a note id carries link rows over (ON UPDATE CASCADE)

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = ?", name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func mustUpsert(t *testing.T, db *DB, row *NoteRow, metadata map[string]any) {
	t.Helper()
	err := db.WriteTx(func(tx *sql.Tx) error {
		return UpsertNote(tx, row, metadata)
	})
	require.NoError(t, err)
}

func testNoteRow(id, title string) *NoteRow {
	parts := strings.SplitN(id, "/", 2)
	return &NoteRow{
		ID:           id,
		Title:        title,
		Content:      "content of " + title,
		Type:         parts[0],
		Filename:     parts[1],
		Path:         "/tmp/" + id,
		Created:      "2026-01-01T00:00:00.000Z",
		Updated:      "2026-01-01T00:00:00.000Z",
		ContentHash:  "sha256:" + strings.Repeat("0", 64),
		MetadataJSON: "{}",
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"notes", "notes_fts", "note_metadata", "note_links", "external_links", "schema_meta"} {
		assert.True(t, tableExists(t, db.RW(), table), "table %s should exist", table)
	}

	version, err := GetSchemaVersion(db.RW())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestReadOnlyConnectionRejectsWrites(t *testing.T) {
	db := openTestDB(t)

	_, err := db.RO().Exec("INSERT INTO notes (id, title, content, type, filename, path, created, updated, content_hash) VALUES ('a/b.md','t','c','a','b.md','/p','x','x','h')")
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "readonly")

	_, err = db.RO().Exec("DELETE FROM notes")
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "readonly")
}

func TestDeleteNote_CascadesAndNulls(t *testing.T) {
	db := openTestDB(t)

	mustUpsert(t, db, testNoteRow("general/a.md", "A"), nil)
	mustUpsert(t, db, testNoteRow("general/b.md", "B"), nil)

	targetB := "general/b.md"
	err := db.WriteTx(func(tx *sql.Tx) error {
		return ReplaceNoteLinks(tx, "general/a.md", []LinkRow{
			{ID: "l1", SourceNoteID: "general/a.md", TargetNoteID: &targetB, TargetTitle: "general/b", LineNumber: 1, Created: "x"},
		}, []ExternalLinkRow{
			{ID: "e1", NoteID: "general/a.md", URL: "https://example.com", LineNumber: 2, LinkType: "url", Created: "x"},
		})
	})
	require.NoError(t, err)

	// Deleting the target nulls the incoming link.
	err = db.WriteTx(func(tx *sql.Tx) error { return DeleteNote(tx, "general/b.md") })
	require.NoError(t, err)

	var target sql.NullString
	err = db.RW().QueryRow("SELECT target_note_id FROM note_links WHERE id = 'l1'").Scan(&target)
	require.NoError(t, err)
	assert.False(t, target.Valid, "target_note_id should be NULL after target deletion")

	// Deleting the source cascades its link rows.
	err = db.WriteTx(func(tx *sql.Tx) error { return DeleteNote(tx, "general/a.md") })
	require.NoError(t, err)

	internal, external, err := CountLinkRows(db.RW())
	require.NoError(t, err)
	assert.Zero(t, internal)
	assert.Zero(t, external)
}

func TestChangeNoteID_CarriesLinks(t *testing.T) {
	db := openTestDB(t)

	mustUpsert(t, db, testNoteRow("general/a.md", "A"), nil)
	mustUpsert(t, db, testNoteRow("projects/p.md", "P"), nil)

	targetP := "projects/p.md"
	err := db.WriteTx(func(tx *sql.Tx) error {
		return ReplaceNoteLinks(tx, "general/a.md", []LinkRow{
			{ID: "l1", SourceNoteID: "general/a.md", TargetNoteID: &targetP, TargetTitle: "projects/p", LineNumber: 1, Created: "x"},
		}, nil)
	})
	require.NoError(t, err)

	moved := testNoteRow("completed/p.md", "P")
	err = db.WriteTx(func(tx *sql.Tx) error {
		return ChangeNoteID(tx, "projects/p.md", moved, nil)
	})
	require.NoError(t, err)

	var target string
	err = db.RW().QueryRow("SELECT target_note_id FROM note_links WHERE id = 'l1'").Scan(&target)
	require.NoError(t, err)
	assert.Equal(t, "completed/p.md", target)

	row, err := GetNote(db.RO(), "projects/p.md")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestResolveBrokenLinksTo(t *testing.T) {
	db := openTestDB(t)

	mustUpsert(t, db, testNoteRow("general/a.md", "A"), nil)
	err := db.WriteTx(func(tx *sql.Tx) error {
		return ReplaceNoteLinks(tx, "general/a.md", []LinkRow{
			{ID: "l1", SourceNoteID: "general/a.md", TargetNoteID: nil, TargetTitle: "New Note", LineNumber: 1, Created: "x"},
		}, nil)
	})
	require.NoError(t, err)

	mustUpsert(t, db, testNoteRow("general/new-note.md", "New Note"), nil)
	err = db.WriteTx(func(tx *sql.Tx) error {
		return ResolveBrokenLinksTo(tx, "general/new-note.md", []string{"general/new-note.md", "general/new-note", "New Note"})
	})
	require.NoError(t, err)

	var target string
	err = db.RW().QueryRow("SELECT target_note_id FROM note_links WHERE id = 'l1'").Scan(&target)
	require.NoError(t, err)
	assert.Equal(t, "general/new-note.md", target)
}

func TestFTSSearchFindsUpsertedNote(t *testing.T) {
	db := openTestDB(t)
	mustUpsert(t, db, testNoteRow("general/a.md", "Searchable Title"), nil)

	var id string
	err := db.RO().QueryRow("SELECT id FROM notes_fts WHERE notes_fts MATCH 'searchable'").Scan(&id)
	require.NoError(t, err)
	assert.Equal(t, "general/a.md", id)
}
