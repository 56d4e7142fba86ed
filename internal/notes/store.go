package notes

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/flint-note/flint-note/internal/config"
	"github.com/flint-note/flint-note/internal/links"
	"github.com/flint-note/flint-note/internal/note"
	"github.com/flint-note/flint-note/internal/notetypes"
	"github.com/flint-note/flint-note/internal/storage"
	"github.com/flint-note/flint-note/internal/workspace"
)

// Store owns all note mutations. Writes serialise on the database's writer
// lock so the file write and the index transaction form one critical
// section; reads go straight to disk and never block writers.
type Store struct {
	ws    *workspace.Workspace
	db    *storage.DB
	types *notetypes.Manager
	cfg   *config.Config
	log   zerolog.Logger
}

// NewStore creates a note store.
func NewStore(ws *workspace.Workspace, db *storage.DB, types *notetypes.Manager, cfg *config.Config, log zerolog.Logger) *Store {
	return &Store{
		ws:    ws,
		db:    db,
		types: types,
		cfg:   cfg,
		log:   log.With().Str("component", "notes").Logger(),
	}
}

// locate validates an identifier and returns its parts and absolute path.
func (s *Store) locate(id string) (typeName, filename, path string, err error) {
	typeName, filename, ok := note.SplitID(id)
	if !ok {
		return "", "", "", ErrInvalidInput("invalid note identifier %q: expected type/slug", id)
	}
	if !workspace.ValidTypeName(typeName) {
		return "", "", "", ErrInvalidInput("invalid note type in identifier %q", id)
	}
	path, perr := s.ws.ResolvePath(filepath.Join(typeName, filename))
	if perr != nil {
		return "", "", "", ErrInvalidInput("invalid note identifier %q: %v", id, perr)
	}
	return typeName, filename, path, nil
}

// readFromDisk loads a note file. A missing file returns (nil, nil): the
// filesystem is authoritative and absence is not an error.
func (s *Store) readFromDisk(id string) (*note.Note, error) {
	typeName, filename, path, err := s.locate(id)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, ErrIo(err, "failed to read note %s", id)
	}

	metadata, body := note.ParseFrontmatter(string(raw))
	n := &note.Note{
		ID:          note.ID(typeName, filename),
		Type:        typeName,
		Filename:    filename,
		Path:        path,
		Content:     body,
		ContentHash: note.HashContent(raw),
		Metadata:    metadata,
	}
	if title, ok := metadata["title"].(string); ok {
		n.Title = title
	} else {
		n.Title = strings.TrimSuffix(filename, ".md")
	}
	if created, ok := metadata["created"].(string); ok {
		n.Created = created
	}
	if updated, ok := metadata["updated"].(string); ok {
		n.Updated = updated
	}
	return n, nil
}

// Get returns a note, or nil when it does not exist. Always re-reads the
// file: edits made outside the server are authoritative.
func (s *Store) Get(id string) (*note.Note, error) {
	return s.readFromDisk(id)
}

// BatchResult is one entry of a GetMany reply.
type BatchResult struct {
	Success bool       `json:"success"`
	Note    *note.Note `json:"note,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// GetMany fetches a batch of notes. Failures are recorded per entry; the
// batch itself never fails.
func (s *Store) GetMany(ids []string) []BatchResult {
	results := make([]BatchResult, len(ids))
	for i, id := range ids {
		n, err := s.Get(id)
		switch {
		case err != nil:
			results[i] = BatchResult{Success: false, Error: err.Error()}
		case n == nil:
			results[i] = BatchResult{Success: false, Error: ErrNoteNotFound(id).Error()}
		default:
			results[i] = BatchResult{Success: true, Note: n}
		}
	}
	return results
}

// Create writes a new note. The filename derives from the title; a second
// create with the same (type, title) collides.
func (s *Store) Create(typeName, title, content string, metadata map[string]any, useTemplate bool) (*note.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidInput("note title must not be empty")
	}
	if !workspace.ValidTypeName(typeName) {
		return nil, ErrInvalidInput("invalid note type name %q", typeName)
	}

	if !s.ws.TypeDirExists(typeName) {
		if !s.cfg.NoteTypes.AutoCreateDirectories {
			return nil, ErrInvalidType(typeName)
		}
		if _, err := s.ws.EnsureTypeDir(typeName); err != nil {
			return nil, ErrIo(err, "failed to create note type directory %s", typeName)
		}
	}

	filename := note.FilenameForTitle(title)
	id := note.ID(typeName, filename)
	_, _, path, err := s.locate(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ts := note.Timestamp(now)

	if useTemplate {
		tmpl, err := s.types.Template(typeName)
		if err != nil {
			s.log.Warn().Str("type", typeName).Err(err).Msg("template unreadable, creating without it")
		} else if tmpl != "" {
			content = note.RenderTemplate(tmpl, title, typeName, content, now)
		}
	}

	merged := map[string]any{}
	for k, v := range metadata {
		merged[k] = v
	}
	merged["title"] = title
	merged["type"] = typeName
	merged["filename"] = filename
	merged["created"] = ts
	merged["updated"] = ts

	s.db.Lock()
	defer s.db.Unlock()

	if _, err := os.Stat(path); err == nil {
		return nil, ErrAlreadyExists(id)
	}

	n := &note.Note{
		ID:       id,
		Type:     typeName,
		Title:    title,
		Filename: filename,
		Path:     path,
		Content:  content,
		Created:  ts,
		Updated:  ts,
		Metadata: merged,
	}
	if err := s.writeFile(n); err != nil {
		return nil, err
	}

	s.indexLocked(n)
	return n, nil
}

// UpdateContent replaces a note's body under optimistic concurrency.
func (s *Store) UpdateContent(id, content, contentHash string) (*note.Note, error) {
	s.db.Lock()
	defer s.db.Unlock()

	current, err := s.readFromDisk(id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoteNotFound(id)
	}
	if current.ContentHash != contentHash {
		return nil, ErrHashMismatch(current.ID)
	}

	current.Content = content
	current.Updated = note.Timestamp(time.Now())
	current.Metadata["updated"] = current.Updated

	if err := s.writeFile(current); err != nil {
		return nil, err
	}
	s.indexLocked(current)
	return current, nil
}

// UpdateWithMetadata merges metadata (and optionally replaces the body)
// under optimistic concurrency. Protected keys are rejected unless
// bypassProtection, which only the internal rename/move paths set.
func (s *Store) UpdateWithMetadata(id string, content *string, metadata map[string]any, contentHash string, bypassProtection bool) (*note.Note, error) {
	if !bypassProtection {
		for key := range metadata {
			if note.ProtectedFields[key] {
				return nil, ErrProtectedField(key)
			}
		}
	}

	s.db.Lock()
	defer s.db.Unlock()

	current, err := s.readFromDisk(id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoteNotFound(id)
	}
	if current.ContentHash != contentHash {
		return nil, ErrHashMismatch(current.ID)
	}

	mergeMetadata(current.Metadata, metadata)
	// The type key always reflects the directory; moves go through Move.
	current.Metadata["type"] = current.Type
	if content != nil {
		current.Content = *content
	}
	current.Updated = note.Timestamp(time.Now())
	current.Metadata["updated"] = current.Updated
	if title, ok := current.Metadata["title"].(string); ok {
		current.Title = title
	}

	if err := s.writeFile(current); err != nil {
		return nil, err
	}
	s.indexLocked(current)
	return current, nil
}

// RelocateResult reports a rename or move.
type RelocateResult struct {
	Note              *note.Note `json:"note"`
	OldID             string     `json:"old_id"`
	UpdatedReferences int        `json:"updated_references"`
}

// Rename gives a note a new title and the filename derived from it, and
// rewrites id-form wikilinks in referring notes.
func (s *Store) Rename(id, newTitle, contentHash string) (*RelocateResult, error) {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return nil, ErrInvalidInput("new title must not be empty")
	}

	s.db.Lock()
	defer s.db.Unlock()

	current, err := s.readFromDisk(id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoteNotFound(id)
	}
	if current.ContentHash != contentHash {
		return nil, ErrHashMismatch(current.ID)
	}

	newFilename := note.FilenameForTitle(newTitle)
	newID := note.ID(current.Type, newFilename)

	current.Title = newTitle
	current.Metadata["title"] = newTitle
	return s.relocateLocked(current, newID, newFilename, current.Type)
}

// Move relocates a note into another existing note type and rewrites id-form
// wikilinks in referring notes.
func (s *Store) Move(id, newType, contentHash string) (*RelocateResult, error) {
	if !workspace.ValidTypeName(newType) {
		return nil, ErrInvalidInput("invalid note type name %q", newType)
	}
	if !s.ws.TypeDirExists(newType) {
		return nil, ErrInvalidType(newType)
	}

	s.db.Lock()
	defer s.db.Unlock()

	current, err := s.readFromDisk(id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoteNotFound(id)
	}
	if current.Type == newType {
		return nil, ErrSameType(current.ID, newType)
	}
	if current.ContentHash != contentHash {
		return nil, ErrHashMismatch(current.ID)
	}

	newID := note.ID(newType, current.Filename)
	current.Metadata["type"] = newType
	return s.relocateLocked(current, newID, current.Filename, newType)
}

// relocateLocked performs the shared tail of rename and move: write the file
// under its new id, drop the old file, carry the index rows over, and
// rewrite referring wikilinks. Caller holds the writer lock and has already
// updated title/type metadata on n.
func (s *Store) relocateLocked(n *note.Note, newID, newFilename, newType string) (*RelocateResult, error) {
	oldID := n.ID
	oldPath := n.Path

	if newID == oldID {
		// Same slug; just a metadata refresh.
		n.Updated = note.Timestamp(time.Now())
		n.Metadata["updated"] = n.Updated
		if err := s.writeFile(n); err != nil {
			return nil, err
		}
		s.indexLocked(n)
		return &RelocateResult{Note: n, OldID: oldID}, nil
	}

	newPath, err := s.ws.ResolvePath(filepath.Join(newType, newFilename))
	if err != nil {
		return nil, ErrInvalidInput("invalid target for %s: %v", oldID, err)
	}
	if _, err := os.Stat(newPath); err == nil {
		return nil, ErrAlreadyExists(newID)
	}

	n.ID = newID
	n.Type = newType
	n.Filename = newFilename
	n.Path = newPath
	n.Metadata["filename"] = newFilename
	n.Updated = note.Timestamp(time.Now())
	n.Metadata["updated"] = n.Updated

	if err := s.writeFile(n); err != nil {
		return nil, err
	}
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		return nil, ErrIo(err, "failed to remove old note file %s", oldID)
	}

	updatedRefs := 0
	err = s.db.WriteTxLocked(func(tx *sql.Tx) error {
		if err := storage.ChangeNoteID(tx, oldID, s.noteRow(n), n.Metadata); err != nil {
			return err
		}
		if err := s.deriveLinks(tx, n); err != nil {
			return err
		}
		if err := storage.ResolveBrokenLinksTo(tx, n.ID, links.TargetForms(n.ID, n.Title)); err != nil {
			return err
		}
		refs, err := s.rewriteReferences(tx, oldID, newID)
		if err != nil {
			return err
		}
		updatedRefs = refs
		return nil
	})
	if err != nil {
		s.log.Warn().Str("note", n.ID).Err(err).Msg("index update failed after relocate; rebuild will repair it")
	}

	return &RelocateResult{Note: n, OldID: oldID, UpdatedReferences: updatedRefs}, nil
}

// rewriteReferences rewrites [[old-id]] style wikilinks in every note that
// links at the relocated note by id form, updating files and their index
// rows. Returns the number of notes touched.
func (s *Store) rewriteReferences(tx *sql.Tx, oldID, newID string) (int, error) {
	oldBare := strings.TrimSuffix(oldID, ".md")
	rows, err := tx.Query(`
		SELECT DISTINCT source_note_id FROM note_links
		WHERE target_title IN (?, ?) AND source_note_id != ?`,
		oldID, oldBare, newID)
	if err != nil {
		return 0, fmt.Errorf("failed to find referring notes: %w", err)
	}
	var sources []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		sources = append(sources, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, sourceID := range sources {
		ref, err := s.readFromDisk(sourceID)
		if err != nil || ref == nil {
			s.log.Warn().Str("note", sourceID).Msg("referring note unreadable during link rewrite")
			continue
		}
		body, changed := links.RewriteTargets(ref.Content, oldID, newID)
		if !changed {
			continue
		}
		ref.Content = body
		ref.Updated = note.Timestamp(time.Now())
		ref.Metadata["updated"] = ref.Updated
		if err := s.writeFile(ref); err != nil {
			return count, err
		}
		if err := storage.UpsertNote(tx, s.noteRow(ref), ref.Metadata); err != nil {
			return count, err
		}
		if err := s.deriveLinks(tx, ref); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Remove deletes a note's file and index rows. Policy (confirmation,
// backups) lives in the deletion engine; this is the mechanism.
func (s *Store) Remove(id string) error {
	s.db.Lock()
	defer s.db.Unlock()

	current, err := s.readFromDisk(id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNoteNotFound(id)
	}

	if err := os.Remove(current.Path); err != nil {
		return ErrIo(err, "failed to delete note file %s", id)
	}

	err = s.db.WriteTxLocked(func(tx *sql.Tx) error {
		return storage.DeleteNote(tx, current.ID)
	})
	if err != nil {
		s.log.Warn().Str("note", id).Err(err).Msg("index delete failed; rebuild will repair it")
	}
	return nil
}

// writeFile serialises and atomically writes a note: temp file in the same
// directory, fsync, rename over the destination. The note's ContentHash is
// refreshed from the bytes written.
func (s *Store) writeFile(n *note.Note) error {
	data := []byte(note.SerializeFrontmatter(n.Metadata, n.Content))
	if max := s.cfg.Security.MaxFileSize; max > 0 && int64(len(data)) > max {
		return ErrInvalidInput("note %s exceeds max_file_size (%d bytes)", n.ID, max)
	}

	dir := filepath.Dir(n.Path)
	tmp, err := os.CreateTemp(dir, ".flint-write-*")
	if err != nil {
		return ErrIo(err, "failed to create temp file for %s", n.ID)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op after a successful rename.

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ErrIo(err, "failed to write note %s", n.ID)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ErrIo(err, "failed to sync note %s", n.ID)
	}
	if err := tmp.Close(); err != nil {
		return ErrIo(err, "failed to close temp file for %s", n.ID)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return ErrIo(err, "failed to chmod note %s", n.ID)
	}
	if err := os.Rename(tmpName, n.Path); err != nil {
		return ErrIo(err, "failed to replace note %s", n.ID)
	}

	n.ContentHash = note.HashContent(data)
	return nil
}

// indexLocked upserts the note and its derived link rows. Index failures are
// logged, not returned: the file write already succeeded and the index can
// always be rebuilt from disk.
func (s *Store) indexLocked(n *note.Note) {
	err := s.db.WriteTxLocked(func(tx *sql.Tx) error {
		if err := storage.UpsertNote(tx, s.noteRow(n), n.Metadata); err != nil {
			return err
		}
		if err := s.deriveLinks(tx, n); err != nil {
			return err
		}
		return storage.ResolveBrokenLinksTo(tx, n.ID, links.TargetForms(n.ID, n.Title))
	})
	if err != nil {
		s.log.Warn().Str("note", n.ID).Err(err).Msg("index update failed; rebuild will repair it")
	}
}

func (s *Store) deriveLinks(tx *sql.Tx, n *note.Note) error {
	linkRows, extRows, err := links.DeriveRows(tx, n.ID, n.Content, n.Updated)
	if err != nil {
		return err
	}
	return storage.ReplaceNoteLinks(tx, n.ID, linkRows, extRows)
}

func (s *Store) noteRow(n *note.Note) *storage.NoteRow {
	metaJSON, err := json.Marshal(n.Metadata)
	if err != nil {
		metaJSON = []byte("{}")
	}
	return &storage.NoteRow{
		ID:           n.ID,
		Title:        n.Title,
		Content:      n.Content,
		Type:         n.Type,
		Filename:     n.Filename,
		Path:         n.Path,
		Created:      n.Created,
		Updated:      n.Updated,
		ContentHash:  n.ContentHash,
		MetadataJSON: string(metaJSON),
	}
}

// mergeMetadata deep-merges src into dst: nested mappings merge key-wise,
// everything else replaces.
func mergeMetadata(dst, src map[string]any) {
	for key, value := range src {
		if srcMap, ok := value.(map[string]any); ok {
			if dstMap, ok := dst[key].(map[string]any); ok {
				mergeMetadata(dstMap, srcMap)
				continue
			}
		}
		dst[key] = value
	}
}
