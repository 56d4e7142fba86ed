package storage

import (
	"database/sql"
	"fmt"
)

// UpsertNote inserts or updates a notes row together with its FTS entry and
// flattened metadata rows. Must run inside a write transaction so the index
// becomes visible atomically with the note row.
func UpsertNote(tx *sql.Tx, row *NoteRow, metadata map[string]any) error {
	_, err := tx.Exec(`
		INSERT INTO notes (id, title, content, type, filename, path, created, updated, content_hash, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			type = excluded.type,
			filename = excluded.filename,
			path = excluded.path,
			created = excluded.created,
			updated = excluded.updated,
			content_hash = excluded.content_hash,
			metadata_json = excluded.metadata_json`,
		row.ID, row.Title, row.Content, row.Type, row.Filename, row.Path,
		row.Created, row.Updated, row.ContentHash, row.MetadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert note %s: %w", row.ID, err)
	}

	if err := upsertFTS(tx, row.ID, row.Title, row.Content); err != nil {
		return err
	}

	return replaceMetadataRows(tx, row.ID, metadata)
}

// upsertFTS syncs the FTS5 row for a note. FTS5 virtual tables don't support
// ON CONFLICT, so delete-then-insert gives upsert semantics.
func upsertFTS(tx *sql.Tx, id, title, content string) error {
	if _, err := tx.Exec("DELETE FROM notes_fts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete FTS entry for %s: %w", id, err)
	}
	if _, err := tx.Exec("INSERT INTO notes_fts (id, title, content) VALUES (?, ?, ?)", id, title, content); err != nil {
		return fmt.Errorf("failed to insert FTS entry for %s: %w", id, err)
	}
	return nil
}

func replaceMetadataRows(tx *sql.Tx, noteID string, metadata map[string]any) error {
	if _, err := tx.Exec("DELETE FROM note_metadata WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("failed to clear metadata rows for %s: %w", noteID, err)
	}

	rows := FlattenMetadata(noteID, metadata)
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.Prepare("INSERT INTO note_metadata (note_id, key, value, value_type) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.NoteID, r.Key, r.Value, r.ValueType); err != nil {
			return fmt.Errorf("failed to insert metadata row %s.%s: %w", noteID, r.Key, err)
		}
	}
	return nil
}

// DeleteNote removes a notes row. Link and metadata rows cascade; incoming
// links get their target set to NULL by the schema's FK rules. The FTS row
// has no FK, so it is removed explicitly.
func DeleteNote(tx *sql.Tx, id string) error {
	if _, err := tx.Exec("DELETE FROM notes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM notes_fts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete FTS entry for %s: %w", id, err)
	}
	return nil
}

// ChangeNoteID rewrites a note's primary key. The ON UPDATE CASCADE rules
// carry link and metadata rows over to the new id.
func ChangeNoteID(tx *sql.Tx, oldID string, row *NoteRow, metadata map[string]any) error {
	_, err := tx.Exec(`
		UPDATE notes SET
			id = ?, title = ?, content = ?, type = ?, filename = ?, path = ?,
			created = ?, updated = ?, content_hash = ?, metadata_json = ?
		WHERE id = ?`,
		row.ID, row.Title, row.Content, row.Type, row.Filename, row.Path,
		row.Created, row.Updated, row.ContentHash, row.MetadataJSON, oldID,
	)
	if err != nil {
		return fmt.Errorf("failed to change note id %s -> %s: %w", oldID, row.ID, err)
	}

	if _, err := tx.Exec("DELETE FROM notes_fts WHERE id = ?", oldID); err != nil {
		return fmt.Errorf("failed to delete FTS entry for %s: %w", oldID, err)
	}
	if _, err := tx.Exec("INSERT INTO notes_fts (id, title, content) VALUES (?, ?, ?)", row.ID, row.Title, row.Content); err != nil {
		return fmt.Errorf("failed to insert FTS entry for %s: %w", row.ID, err)
	}

	return replaceMetadataRows(tx, row.ID, metadata)
}

// ReplaceNoteLinks swaps out all outgoing link rows of a note. Runs in the
// same transaction as the note upsert so readers never see a half-derived
// link set.
func ReplaceNoteLinks(tx *sql.Tx, noteID string, links []LinkRow, external []ExternalLinkRow) error {
	if _, err := tx.Exec("DELETE FROM note_links WHERE source_note_id = ?", noteID); err != nil {
		return fmt.Errorf("failed to clear note_links for %s: %w", noteID, err)
	}
	if _, err := tx.Exec("DELETE FROM external_links WHERE note_id = ?", noteID); err != nil {
		return fmt.Errorf("failed to clear external_links for %s: %w", noteID, err)
	}

	if len(links) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO note_links (id, source_note_id, target_note_id, target_title, link_text, line_number, created)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare note_links insert: %w", err)
		}
		defer stmt.Close()

		for _, l := range links {
			if _, err := stmt.Exec(l.ID, l.SourceNoteID, l.TargetNoteID, l.TargetTitle, l.LinkText, l.LineNumber, l.Created); err != nil {
				return fmt.Errorf("failed to insert note_link for %s: %w", noteID, err)
			}
		}
	}

	if len(external) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO external_links (id, note_id, url, title, line_number, link_type, created)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare external_links insert: %w", err)
		}
		defer stmt.Close()

		for _, l := range external {
			if _, err := stmt.Exec(l.ID, l.NoteID, l.URL, l.Title, l.LineNumber, l.LinkType, l.Created); err != nil {
				return fmt.Errorf("failed to insert external_link for %s: %w", noteID, err)
			}
		}
	}

	return nil
}

// ResolveBrokenLinksTo repoints broken link rows whose target matches any of
// the given titles or id forms at the note. Called when a note is created or
// renamed, so earlier references stop being broken.
func ResolveBrokenLinksTo(tx *sql.Tx, noteID string, targetForms []string) error {
	if len(targetForms) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		UPDATE note_links SET target_note_id = ?
		WHERE target_note_id IS NULL AND target_title = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare broken link resolution: %w", err)
	}
	defer stmt.Close()

	for _, form := range targetForms {
		if _, err := stmt.Exec(noteID, form); err != nil {
			return fmt.Errorf("failed to resolve broken links to %s: %w", noteID, err)
		}
	}
	return nil
}

// ClearAll empties every table. Used by rebuild inside one transaction.
func ClearAll(tx *sql.Tx) error {
	for _, table := range []string{"note_links", "external_links", "note_metadata", "notes", "notes_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// SetMeta upserts a schema_meta key.
func SetMeta(tx *sql.Tx, key, value, updatedAt string) error {
	_, err := tx.Exec(`
		INSERT INTO schema_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to set schema_meta %s: %w", key, err)
	}
	return nil
}
