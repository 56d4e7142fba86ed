package search

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/flint-note/flint-note/internal/config"
	"github.com/flint-note/flint-note/internal/links"
	"github.com/flint-note/flint-note/internal/note"
	"github.com/flint-note/flint-note/internal/storage"
	"github.com/flint-note/flint-note/internal/workspace"
)

// Service keeps the database in sync with the filesystem and answers search
// queries over the read-only connection.
type Service struct {
	ws  *workspace.Workspace
	db  *storage.DB
	cfg *config.Config
	log zerolog.Logger
}

// NewService creates a search service.
func NewService(ws *workspace.Workspace, db *storage.DB, cfg *config.Config, log zerolog.Logger) *Service {
	return &Service{
		ws:  ws,
		db:  db,
		cfg: cfg,
		log: log.With().Str("component", "search").Logger(),
	}
}

// ForceRebuildEnv triggers a startup rebuild regardless of index state.
const ForceRebuildEnv = "FORCE_INDEX_REBUILD"

// RebuildIfNeeded rebuilds the index on startup when it is empty, when the
// environment forces it, or when the config asks for it. A populated index
// is otherwise reused: rebuilding a large vault is not free.
func (s *Service) RebuildIfNeeded() error {
	count, err := storage.CountNotes(s.db.RW())
	if err != nil {
		return err
	}
	force := os.Getenv(ForceRebuildEnv) != ""
	if count > 0 && !force && !s.cfg.Search.RebuildOnStartup {
		return nil
	}
	report, err := s.Rebuild()
	if err != nil {
		return err
	}
	s.log.Info().Int("notes", report.Notes).Int("errors", len(report.Errors)).Msg("index rebuilt")
	return nil
}

// RebuildReport summarises a full index rebuild.
type RebuildReport struct {
	Notes  int      `json:"notes"`
	Errors []string `json:"errors"`
}

// Rebuild clears every table and reindexes the workspace from disk inside a
// single transaction: notes first, then link rows so resolution sees the
// complete id table.
func (s *Service) Rebuild() (*RebuildReport, error) {
	report := &RebuildReport{Errors: []string{}}

	scanned, scanErrs := s.scanWorkspace()
	report.Errors = append(report.Errors, scanErrs...)

	err := s.db.WriteTx(func(tx *sql.Tx) error {
		if err := storage.ClearAll(tx); err != nil {
			return err
		}
		for _, n := range scanned {
			if err := storage.UpsertNote(tx, noteRowOf(n), n.Metadata); err != nil {
				return err
			}
		}
		for _, n := range scanned {
			linkRows, extRows, err := links.DeriveRows(tx, n.ID, n.Content, n.Updated)
			if err != nil {
				return err
			}
			if err := storage.ReplaceNoteLinks(tx, n.ID, linkRows, extRows); err != nil {
				return err
			}
		}
		report.Notes = len(scanned)
		return storage.SetMeta(tx, "last_rebuild", time.Now().UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339))
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// scanWorkspace reads every note file under every type directory.
// Unreadable files are reported, not fatal.
func (s *Service) scanWorkspace() ([]*note.Note, []string) {
	var notes []*note.Note
	var errs []string

	typeDirs, err := s.ws.ListTypeDirs()
	if err != nil {
		return nil, []string{err.Error()}
	}

	for _, typeName := range typeDirs {
		dir, err := s.ws.TypeDir(typeName)
		if err != nil {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, typeName+": "+err.Error())
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, "_") {
				continue
			}
			n, err := s.readNote(typeName, name)
			if err != nil {
				errs = append(errs, typeName+"/"+name+": "+err.Error())
				continue
			}
			notes = append(notes, n)
		}
	}
	return notes, errs
}

func (s *Service) readNote(typeName, filename string) (*note.Note, error) {
	path := filepath.Join(typeName, filename)
	abs, err := s.ws.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	metadata, body := note.ParseFrontmatter(string(raw))
	n := &note.Note{
		ID:          note.ID(typeName, filename),
		Type:        typeName,
		Filename:    filename,
		Path:        abs,
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

// Upsert refreshes one note's index rows. Used by the external-edit watcher;
// the note store has its own write path.
func (s *Service) Upsert(typeName, filename string) error {
	n, err := s.readNote(typeName, filename)
	if err != nil {
		return err
	}
	return s.db.WriteTx(func(tx *sql.Tx) error {
		if err := storage.UpsertNote(tx, noteRowOf(n), n.Metadata); err != nil {
			return err
		}
		linkRows, extRows, err := links.DeriveRows(tx, n.ID, n.Content, n.Updated)
		if err != nil {
			return err
		}
		if err := storage.ReplaceNoteLinks(tx, n.ID, linkRows, extRows); err != nil {
			return err
		}
		return storage.ResolveBrokenLinksTo(tx, n.ID, links.TargetForms(n.ID, n.Title))
	})
}

// Drop removes one note's index rows.
func (s *Service) Drop(id string) error {
	return s.db.WriteTx(func(tx *sql.Tx) error {
		return storage.DeleteNote(tx, id)
	})
}

func noteRowOf(n *note.Note) *storage.NoteRow {
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
