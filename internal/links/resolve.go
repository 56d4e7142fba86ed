package links

import (
	"strings"

	"github.com/flint-note/flint-note/internal/note"
	"github.com/flint-note/flint-note/internal/storage"
)

// ResolveTarget maps a wikilink target onto an existing note id, or nil when
// the link is broken. Targets in the type/slug form (with or without .md)
// resolve by id; anything else resolves by exact title.
func ResolveTarget(q storage.Querier, target string) (*string, error) {
	if typeName, filename, ok := note.SplitID(target); ok {
		row, err := storage.GetNote(q, note.ID(typeName, filename))
		if err != nil {
			return nil, err
		}
		if row != nil {
			id := row.ID
			return &id, nil
		}
	}

	row, err := storage.FindNoteByTitle(q, target)
	if err != nil {
		return nil, err
	}
	if row != nil {
		id := row.ID
		return &id, nil
	}
	return nil, nil
}

// TargetForms lists every wikilink target string that refers to a note: the
// canonical id, the id without its .md suffix, and the title. Used to repoint
// previously broken links when the note appears.
func TargetForms(id, title string) []string {
	forms := []string{id, strings.TrimSuffix(id, ".md")}
	if title != "" && title != id {
		forms = append(forms, title)
	}
	return forms
}
