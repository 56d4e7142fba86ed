package notetypes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/flint-note/flint-note/internal/workspace"
)

// Manager creates and maintains note types: the directories under the
// workspace root and their description/template artifacts. Note deletion and
// type deletion live in the deletion engine; the manager only handles the
// artifacts themselves.
type Manager struct {
	ws  *workspace.Workspace
	log zerolog.Logger
}

// NewManager creates a note type manager.
func NewManager(ws *workspace.Workspace, log zerolog.Logger) *Manager {
	return &Manager{ws: ws, log: log.With().Str("component", "notetypes").Logger()}
}

// Info describes one note type.
type Info struct {
	Name         string      `json:"name"`
	Path         string      `json:"path"`
	Purpose      string      `json:"purpose"`
	Instructions []string    `json:"instructions"`
	Schema       []FieldSpec `json:"schema"`
	HasTemplate  bool        `json:"has_template"`
}

// Exists reports whether the note type directory is present.
func (m *Manager) Exists(name string) bool {
	return m.ws.TypeDirExists(name)
}

// Create makes the type directory and writes its description artifacts.
// Fails when the directory already exists with a description.
func (m *Manager) Create(name, purpose string, template string, instructions []string, schema []FieldSpec) (*Info, error) {
	if !workspace.ValidTypeName(name) {
		return nil, fmt.Errorf("invalid note type name %q: use letters, digits, dash and underscore", name)
	}

	dir, err := m.ws.EnsureTypeDir(name)
	if err != nil {
		return nil, err
	}

	descPath := filepath.Join(dir, DescriptionFilename)
	if _, err := os.Stat(descPath); err == nil {
		return nil, fmt.Errorf("note type already exists: %s", name)
	}

	desc := &Description{
		Name:         name,
		Purpose:      purpose,
		Instructions: instructions,
		Schema:       schema,
	}
	if err := os.WriteFile(descPath, []byte(FormatDescription(desc)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write description for %s: %w", name, err)
	}

	if template != "" {
		if err := os.WriteFile(filepath.Join(dir, TemplateFilename), []byte(template), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write template for %s: %w", name, err)
		}
	}

	m.log.Info().Str("type", name).Msg("created note type")
	return m.Get(name)
}

// Get returns the structured info of one note type.
func (m *Manager) Get(name string) (*Info, error) {
	dir, err := m.ws.TypeDir(name)
	if err != nil {
		return nil, err
	}
	if !m.ws.TypeDirExists(name) {
		return nil, fmt.Errorf("note type not found: %s", name)
	}

	info := &Info{
		Name:         name,
		Path:         dir,
		Instructions: []string{},
		Schema:       []FieldSpec{},
	}

	if raw, err := os.ReadFile(filepath.Join(dir, DescriptionFilename)); err == nil {
		desc := ParseDescription(string(raw))
		info.Purpose = desc.Purpose
		info.Instructions = desc.Instructions
		info.Schema = desc.Schema
	}

	if _, err := os.Stat(filepath.Join(dir, TemplateFilename)); err == nil {
		info.HasTemplate = true
	}

	return info, nil
}

// Template returns the type's note template, or "" when there is none.
func (m *Manager) Template(name string) (string, error) {
	dir, err := m.ws.TypeDir(name)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(filepath.Join(dir, TemplateFilename))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read template for %s: %w", name, err)
	}
	return string(raw), nil
}

// UpdateFields applies partial updates to a note type. Recognised fields:
// description (purpose text), instructions ([]string), schema ([]FieldSpec),
// template (string; empty removes it).
type UpdateFields struct {
	Purpose      *string
	Instructions []string
	Schema       []FieldSpec
	Template     *string
}

// Update rewrites the description/template artifacts with the given changes.
func (m *Manager) Update(name string, fields UpdateFields) (*Info, error) {
	if !m.ws.TypeDirExists(name) {
		return nil, fmt.Errorf("note type not found: %s", name)
	}
	dir, err := m.ws.TypeDir(name)
	if err != nil {
		return nil, err
	}

	desc := &Description{Name: name, Instructions: []string{}, Schema: []FieldSpec{}}
	if raw, err := os.ReadFile(filepath.Join(dir, DescriptionFilename)); err == nil {
		desc = ParseDescription(string(raw))
		desc.Name = name
	}

	if fields.Purpose != nil {
		desc.Purpose = *fields.Purpose
	}
	if fields.Instructions != nil {
		desc.Instructions = fields.Instructions
	}
	if fields.Schema != nil {
		desc.Schema = fields.Schema
	}

	if err := os.WriteFile(filepath.Join(dir, DescriptionFilename), []byte(FormatDescription(desc)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to update description for %s: %w", name, err)
	}

	if fields.Template != nil {
		tmplPath := filepath.Join(dir, TemplateFilename)
		if *fields.Template == "" {
			if err := os.Remove(tmplPath); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to remove template for %s: %w", name, err)
			}
		} else if err := os.WriteFile(tmplPath, []byte(*fields.Template), 0o644); err != nil {
			return nil, fmt.Errorf("failed to update template for %s: %w", name, err)
		}
	}

	m.log.Info().Str("type", name).Msg("updated note type")
	return m.Get(name)
}

// List returns info for every note type directory.
func (m *Manager) List() ([]*Info, error) {
	names, err := m.ws.ListTypeDirs()
	if err != nil {
		return nil, err
	}
	infos := make([]*Info, 0, len(names))
	for _, name := range names {
		info, err := m.Get(name)
		if err != nil {
			m.log.Warn().Str("type", name).Err(err).Msg("skipping unreadable note type")
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// NoteFilenames lists the markdown note files of a type, artifact files
// excluded.
func (m *Manager) NoteFilenames(name string) ([]string, error) {
	dir, err := m.ws.TypeDir(name)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read note type directory %s: %w", name, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		files = append(files, e.Name())
	}
	return files, nil
}
