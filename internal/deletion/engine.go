package deletion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"

	"github.com/flint-note/flint-note/internal/config"
	"github.com/flint-note/flint-note/internal/notes"
	"github.com/flint-note/flint-note/internal/notetypes"
	"github.com/flint-note/flint-note/internal/storage"
	"github.com/flint-note/flint-note/internal/workspace"
)

// Type deletion actions.
const (
	ActionError   = "error"
	ActionMigrate = "migrate"
	ActionDelete  = "delete"
)

// Engine applies the workspace's deletion policy: confirmation, backups and
// bulk guards. The note store supplies the mechanics.
type Engine struct {
	ws    *workspace.Workspace
	db    *storage.DB
	store *notes.Store
	types *notetypes.Manager
	cfg   *config.Config
	log   zerolog.Logger
}

// NewEngine creates a deletion engine.
func NewEngine(ws *workspace.Workspace, db *storage.DB, store *notes.Store, types *notetypes.Manager, cfg *config.Config, log zerolog.Logger) *Engine {
	return &Engine{
		ws:    ws,
		db:    db,
		store: store,
		types: types,
		cfg:   cfg,
		log:   log.With().Str("component", "deletion").Logger(),
	}
}

// NoteResult reports one deleted note.
type NoteResult struct {
	ID         string   `json:"id"`
	Deleted    bool     `json:"deleted"`
	BackupPath string   `json:"backup_path,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// DeleteNote removes a single note, honouring confirmation and backup
// policy.
func (e *Engine) DeleteNote(id string, confirm bool) (*NoteResult, error) {
	n, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, notes.ErrNoteNotFound(id)
	}
	if e.cfg.Deletion.RequireConfirmation && !confirm {
		return nil, notes.ErrConfirmationRequired("note " + n.ID)
	}

	result := &NoteResult{ID: n.ID}
	if e.cfg.Deletion.CreateBackups {
		backup, err := e.backupNoteFile(n.Type, n.Filename, n.Path)
		if err != nil {
			return nil, notes.ErrIo(err, "failed to back up note %s", n.ID)
		}
		result.BackupPath = backup
	}

	if err := e.store.Remove(n.ID); err != nil {
		return nil, err
	}
	result.Deleted = true
	e.log.Info().Str("note", n.ID).Str("backup", result.BackupPath).Msg("deleted note")
	return result, nil
}

// BulkCriteria selects notes for bulk deletion. Given criteria combine with
// AND.
type BulkCriteria struct {
	Type    string
	Tags    []string
	Pattern string
}

// BulkDelete deletes every matching note. The candidate set is bounded by
// max_bulk_delete; when it exceeds the limit nothing is deleted.
func (e *Engine) BulkDelete(criteria BulkCriteria, confirm bool) ([]NoteResult, error) {
	if criteria.Type == "" && len(criteria.Tags) == 0 && criteria.Pattern == "" {
		return nil, notes.ErrInvalidInput("bulk delete needs at least one of type, tags or pattern")
	}
	if e.cfg.Deletion.RequireConfirmation && !confirm {
		return nil, notes.ErrConfirmationRequired("matching notes")
	}

	candidates, err := e.resolveCandidates(criteria)
	if err != nil {
		return nil, err
	}
	if max := e.cfg.Deletion.MaxBulkDelete; len(candidates) > max {
		return nil, notes.ErrBulkLimitExceeded(len(candidates), max)
	}

	results := make([]NoteResult, 0, len(candidates))
	for _, id := range candidates {
		r, err := e.DeleteNote(id, true)
		if err != nil {
			results = append(results, NoteResult{ID: id, Deleted: false, Warnings: []string{err.Error()}})
			continue
		}
		results = append(results, *r)
	}
	return results, nil
}

// resolveCandidates builds the bulk deletion candidate set from the index.
// Tags match through note_metadata rows, so tagged notes are always found.
func (e *Engine) resolveCandidates(criteria BulkCriteria) ([]string, error) {
	var rows []*storage.NoteRow
	var err error
	if criteria.Type != "" {
		if !e.ws.TypeDirExists(criteria.Type) {
			return nil, notes.ErrTypeNotFound(criteria.Type)
		}
		rows, err = storage.ListNotesByType(e.db.RO(), criteria.Type)
	} else {
		rows, err = storage.ListAllNotes(e.db.RO())
	}
	if err != nil {
		return nil, notes.ErrIo(err, "failed to resolve bulk delete candidates")
	}

	var matcher glob.Glob
	if criteria.Pattern != "" {
		matcher, err = glob.Compile(criteria.Pattern)
		if err != nil {
			return nil, notes.ErrInvalidInput("invalid bulk delete pattern %q: %v", criteria.Pattern, err)
		}
	}

	tagged := map[string]bool{}
	if len(criteria.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(criteria.Tags)), ",")
		args := make([]any, len(criteria.Tags))
		for i, t := range criteria.Tags {
			args[i] = t
		}
		tagRows, err := e.db.RO().Query(
			"SELECT DISTINCT note_id FROM note_metadata WHERE key = 'tags' AND value IN ("+placeholders+")", args...)
		if err != nil {
			return nil, notes.ErrIo(err, "failed to query tags")
		}
		defer tagRows.Close()
		for tagRows.Next() {
			var id string
			if err := tagRows.Scan(&id); err != nil {
				return nil, notes.ErrIo(err, "failed to scan tagged note id")
			}
			tagged[id] = true
		}
		if err := tagRows.Err(); err != nil {
			return nil, notes.ErrIo(err, "failed to iterate tagged notes")
		}
	}

	var candidates []string
	for _, row := range rows {
		if len(criteria.Tags) > 0 && !tagged[row.ID] {
			continue
		}
		if matcher != nil && !matcher.Match(row.ID) {
			continue
		}
		candidates = append(candidates, row.ID)
	}
	return candidates, nil
}

// TypeResult reports a note type deletion.
type TypeResult struct {
	Type       string       `json:"type"`
	Action     string       `json:"action"`
	Deleted    bool         `json:"deleted"`
	BackupPath string       `json:"backup_path,omitempty"`
	Notes      []NoteResult `json:"notes,omitempty"`
	MigratedTo string       `json:"migrated_to,omitempty"`
	Migrated   []string     `json:"migrated,omitempty"`
}

// DeleteType removes a note type directory under one of three policies:
// error (only when empty), migrate (move notes into target first) or delete
// (bulk-delete the notes).
func (e *Engine) DeleteType(name, action, target string, confirm bool) (*TypeResult, error) {
	if !e.cfg.Deletion.AllowNoteTypeDeletion {
		return nil, notes.ErrInvalidInput("note type deletion is disabled by configuration")
	}
	if !e.ws.TypeDirExists(name) {
		return nil, notes.ErrTypeNotFound(name)
	}
	if e.cfg.Deletion.RequireConfirmation && !confirm {
		return nil, notes.ErrConfirmationRequired("note type " + name)
	}

	filenames, err := e.types.NoteFilenames(name)
	if err != nil {
		return nil, notes.ErrIo(err, "failed to list notes of type %s", name)
	}

	result := &TypeResult{Type: name, Action: action}

	switch action {
	case ActionError:
		if len(filenames) > 0 {
			return nil, notes.ErrTypeNotEmpty(name, len(filenames))
		}

	case ActionMigrate:
		if target == "" {
			return nil, notes.ErrInvalidInput("action=migrate requires a target type")
		}
		if target == name {
			return nil, notes.ErrInvalidInput("cannot migrate notes of %s into itself", name)
		}
		if !e.ws.TypeDirExists(target) {
			return nil, notes.ErrInvalidType(target)
		}
		if len(filenames) > 0 && e.cfg.Deletion.CreateBackups {
			backup, err := e.backupTypeDir(name)
			if err != nil {
				return nil, notes.ErrIo(err, "failed to back up note type %s", name)
			}
			result.BackupPath = backup
		}
		result.MigratedTo = target
		for _, filename := range filenames {
			id := name + "/" + filename
			n, err := e.store.Get(id)
			if err != nil || n == nil {
				return nil, notes.ErrIo(fmt.Errorf("note vanished during migration: %s", id), "migration of %s failed", name)
			}
			moved, err := e.store.Move(id, target, n.ContentHash)
			if err != nil {
				return nil, err
			}
			result.Migrated = append(result.Migrated, moved.Note.ID)
		}

	case ActionDelete:
		if max := e.cfg.Deletion.MaxBulkDelete; len(filenames) > max {
			return nil, notes.ErrBulkLimitExceeded(len(filenames), max)
		}
		if len(filenames) > 0 && e.cfg.Deletion.CreateBackups {
			backup, err := e.backupTypeDir(name)
			if err != nil {
				return nil, notes.ErrIo(err, "failed to back up note type %s", name)
			}
			result.BackupPath = backup
		}
		for _, filename := range filenames {
			id := name + "/" + filename
			if err := e.store.Remove(id); err != nil {
				result.Notes = append(result.Notes, NoteResult{ID: id, Deleted: false, Warnings: []string{err.Error()}})
				continue
			}
			result.Notes = append(result.Notes, NoteResult{ID: id, Deleted: true})
		}

	default:
		return nil, notes.ErrInvalidInput("unknown deletion action %q: use error, migrate or delete", action)
	}

	dir, err := e.ws.TypeDir(name)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, notes.ErrIo(err, "failed to remove note type directory %s", name)
	}

	result.Deleted = true
	e.log.Info().Str("type", name).Str("action", action).Msg("deleted note type")
	return result, nil
}

// backupNoteFile copies a note into the backup directory with a timestamp
// suffix and returns the backup path.
func (e *Engine) backupNoteFile(typeName, filename, path string) (string, error) {
	if err := os.MkdirAll(e.cfg.Deletion.BackupPath, 0o755); err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(filename, ".md")
	backup := filepath.Join(e.cfg.Deletion.BackupPath,
		fmt.Sprintf("%s-%s-%d.md", typeName, stem, time.Now().UnixMilli()))
	if err := copyFile(path, backup); err != nil {
		return "", err
	}
	return backup, nil
}

// backupTypeDir archives a whole note type directory before destructive type
// deletion.
func (e *Engine) backupTypeDir(name string) (string, error) {
	dir, err := e.ws.TypeDir(name)
	if err != nil {
		return "", err
	}
	backup := filepath.Join(e.cfg.Deletion.BackupPath,
		fmt.Sprintf("type-%s-%d", name, time.Now().UnixMilli()))
	if err := copyDir(dir, backup); err != nil {
		return "", err
	}
	return backup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}
