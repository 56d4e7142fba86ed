package links

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/flint-note/flint-note/internal/storage"
)

// DeriveRows extracts a note body and resolves every wikilink against the
// current note table, producing ready-to-insert link rows. Runs inside the
// caller's write transaction so resolution sees in-flight changes.
func DeriveRows(tx *sql.Tx, noteID, body, now string) ([]storage.LinkRow, []storage.ExternalLinkRow, error) {
	extraction := Extract(body)

	linkRows := make([]storage.LinkRow, 0, len(extraction.WikiLinks))
	for _, wl := range extraction.WikiLinks {
		target, err := ResolveTarget(tx, wl.Target)
		if err != nil {
			return nil, nil, err
		}
		var linkText *string
		if wl.Text != "" {
			text := wl.Text
			linkText = &text
		}
		linkRows = append(linkRows, storage.LinkRow{
			ID:           uuid.NewString(),
			SourceNoteID: noteID,
			TargetNoteID: target,
			TargetTitle:  wl.Target,
			LinkText:     linkText,
			LineNumber:   wl.LineNumber,
			Created:      now,
		})
	}

	externalRows := make([]storage.ExternalLinkRow, 0, len(extraction.External))
	for _, ref := range extraction.External {
		var title *string
		if ref.Title != "" {
			t := ref.Title
			title = &t
		}
		externalRows = append(externalRows, storage.ExternalLinkRow{
			ID:         uuid.NewString(),
			NoteID:     noteID,
			URL:        ref.URL,
			Title:      title,
			LineNumber: ref.LineNumber,
			LinkType:   ref.LinkType,
			Created:    now,
		})
	}

	return linkRows, externalRows, nil
}
