package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is bumped whenever the table layout changes. The database is
// a derived cache, so migration is rebuild: drop and reindex from disk.
const SchemaVersion = "1.0"

// CreateSchema creates all tables and indexes for the note index.
// Uses a transaction for atomicity - all schema creation succeeds or fails
// together. The FTS5 virtual table is created outside the transaction, as
// required by SQLite.
//
// Must be called with PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"notes", createNotesTable},
		{"note_metadata", createNoteMetadataTable},
		{"note_links", createNoteLinksTable},
		{"external_links", createExternalLinksTable},
		{"schema_meta", createSchemaMetaTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range allIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	bootstrapSQL := `
		INSERT INTO schema_meta (key, value, updated_at) VALUES
			('schema_version', ?, ?),
			('last_rebuild', '', ?)
	`
	if _, err := tx.Exec(bootstrapSQL, SchemaVersion, now, now); err != nil {
		return fmt.Errorf("failed to bootstrap schema_meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	// FTS5 virtual tables must be created outside the transaction.
	if _, err := db.Exec(createNotesFTSTable); err != nil {
		return fmt.Errorf("failed to create notes_fts table: %w", err)
	}

	return nil
}

// SchemaExists reports whether the notes table is present.
func SchemaExists(db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='notes'").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check schema existence: %w", err)
	}
	return count > 0, nil
}

// GetSchemaVersion retrieves the schema version from schema_meta.
// Returns "0" for a database without a schema.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_meta'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check schema_meta existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM schema_meta WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in schema_meta")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createNotesTable = `
CREATE TABLE notes (
    id TEXT PRIMARY KEY,                         -- Natural key: type/slug.md
    title TEXT NOT NULL,
    content TEXT NOT NULL,                       -- Body after frontmatter
    type TEXT NOT NULL,                          -- Note type directory name
    filename TEXT NOT NULL,                      -- slug.md within the type
    path TEXT NOT NULL,                          -- Absolute file path
    created TEXT NOT NULL,                       -- ISO 8601 UTC, ms precision
    updated TEXT NOT NULL,
    content_hash TEXT NOT NULL,                  -- sha256: over bytes on disk
    metadata_json TEXT NOT NULL DEFAULT '{}'     -- Full frontmatter as JSON
)
`

const createNotesFTSTable = `
CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
    id UNINDEXED,
    title,
    content,
    tokenize = 'unicode61 remove_diacritics 0'
)
`

const createNoteMetadataTable = `
CREATE TABLE note_metadata (
    note_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT,
    value_type TEXT NOT NULL DEFAULT 'string',   -- string|number|boolean|date|array|null
    FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE ON UPDATE CASCADE
)
`

const createNoteLinksTable = `
CREATE TABLE note_links (
    id TEXT PRIMARY KEY,                         -- UUID
    source_note_id TEXT NOT NULL,
    target_note_id TEXT,                         -- NULL for broken links
    target_title TEXT NOT NULL,                  -- Raw wikilink target
    link_text TEXT,                              -- Display text after |
    line_number INTEGER NOT NULL DEFAULT 0,
    created TEXT NOT NULL,
    FOREIGN KEY (source_note_id) REFERENCES notes(id) ON DELETE CASCADE ON UPDATE CASCADE,
    FOREIGN KEY (target_note_id) REFERENCES notes(id) ON DELETE SET NULL ON UPDATE CASCADE
)
`

const createExternalLinksTable = `
CREATE TABLE external_links (
    id TEXT PRIMARY KEY,                         -- UUID
    note_id TEXT NOT NULL,
    url TEXT NOT NULL,
    title TEXT,
    line_number INTEGER NOT NULL DEFAULT 0,
    link_type TEXT NOT NULL DEFAULT 'url' CHECK (link_type IN ('url', 'image', 'embed')),
    created TEXT NOT NULL,
    FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE ON UPDATE CASCADE
)
`

const createSchemaMetaTable = `
CREATE TABLE schema_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

// allIndexes returns all index creation statements.
func allIndexes() []string {
	return []string{
		"CREATE INDEX idx_notes_type ON notes(type)",
		"CREATE INDEX idx_notes_title ON notes(title)",
		"CREATE INDEX idx_notes_updated ON notes(updated)",

		"CREATE INDEX idx_note_metadata_note_id ON note_metadata(note_id)",
		"CREATE INDEX idx_note_metadata_key ON note_metadata(key)",
		"CREATE INDEX idx_note_metadata_key_value ON note_metadata(key, value)",

		"CREATE INDEX idx_note_links_source ON note_links(source_note_id)",
		"CREATE INDEX idx_note_links_target ON note_links(target_note_id)",
		"CREATE INDEX idx_note_links_target_title ON note_links(target_title)",

		"CREATE INDEX idx_external_links_note_id ON external_links(note_id)",
		"CREATE INDEX idx_external_links_url ON external_links(url)",
	}
}
