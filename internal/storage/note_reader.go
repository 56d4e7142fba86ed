package storage

import (
	"database/sql"
	"fmt"
)

// Querier is satisfied by *sql.DB and *sql.Tx, so readers work both on the
// read-only connection and inside write transactions.
type Querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

const noteColumns = "id, title, content, type, filename, path, created, updated, content_hash, metadata_json"

func scanNoteRow(row *sql.Row) (*NoteRow, error) {
	var n NoteRow
	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.Type, &n.Filename, &n.Path,
		&n.Created, &n.Updated, &n.ContentHash, &n.MetadataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan note row: %w", err)
	}
	return &n, nil
}

func scanNoteRows(rows *sql.Rows) ([]*NoteRow, error) {
	defer rows.Close()
	var out []*NoteRow
	for rows.Next() {
		var n NoteRow
		err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Type, &n.Filename, &n.Path,
			&n.Created, &n.Updated, &n.ContentHash, &n.MetadataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating note rows: %w", err)
	}
	return out, nil
}

// GetNote fetches one note row by id. Missing notes return (nil, nil).
func GetNote(q Querier, id string) (*NoteRow, error) {
	return scanNoteRow(q.QueryRow("SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
}

// FindNoteByTitle returns the first note whose title matches exactly.
// Used by wikilink resolution when the target is not an id form.
func FindNoteByTitle(q Querier, title string) (*NoteRow, error) {
	return scanNoteRow(q.QueryRow("SELECT "+noteColumns+" FROM notes WHERE title = ? ORDER BY id LIMIT 1", title))
}

// ListNotesByType returns all notes of one type ordered by id.
func ListNotesByType(q Querier, typeName string) ([]*NoteRow, error) {
	rows, err := q.Query("SELECT "+noteColumns+" FROM notes WHERE type = ? ORDER BY id", typeName)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes of type %s: %w", typeName, err)
	}
	return scanNoteRows(rows)
}

// ListAllNotes returns every indexed note ordered by id.
func ListAllNotes(q Querier) ([]*NoteRow, error) {
	rows, err := q.Query("SELECT " + noteColumns + " FROM notes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return scanNoteRows(rows)
}

// RecentNotes returns the most recently updated notes.
func RecentNotes(q Querier, limit int) ([]*NoteRow, error) {
	rows, err := q.Query("SELECT "+noteColumns+" FROM notes ORDER BY updated DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent notes: %w", err)
	}
	return scanNoteRows(rows)
}

// CountNotes returns the number of indexed notes.
func CountNotes(q Querier) (int, error) {
	var n int
	if err := q.QueryRow("SELECT COUNT(*) FROM notes").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count notes: %w", err)
	}
	return n, nil
}

// CountNotesByType returns per-type note counts.
func CountNotesByType(q Querier) (map[string]int, error) {
	rows, err := q.Query("SELECT type, COUNT(*) FROM notes GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("failed to count notes by type: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var typeName string
		var n int
		if err := rows.Scan(&typeName, &n); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		counts[typeName] = n
	}
	return counts, rows.Err()
}

// NotesWithLinkRows returns the ids of notes that already have outgoing link
// rows. Used by link migration to find unprocessed notes.
func NotesWithLinkRows(q Querier) (map[string]bool, error) {
	rows, err := q.Query(`
		SELECT DISTINCT source_note_id FROM note_links
		UNION
		SELECT DISTINCT note_id FROM external_links`)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked notes: %w", err)
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan linked note id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// CountLinkRows returns (internal, external) link row counts.
func CountLinkRows(q Querier) (int, int, error) {
	var internal, external int
	if err := q.QueryRow("SELECT COUNT(*) FROM note_links").Scan(&internal); err != nil {
		return 0, 0, fmt.Errorf("failed to count note_links: %w", err)
	}
	if err := q.QueryRow("SELECT COUNT(*) FROM external_links").Scan(&external); err != nil {
		return 0, 0, fmt.Errorf("failed to count external_links: %w", err)
	}
	return internal, external, nil
}
