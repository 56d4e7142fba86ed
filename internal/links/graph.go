package links

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/flint-note/flint-note/internal/storage"
)

// Graph answers link queries over the derived index. Queries run on the
// read-only connection; only Migrate touches the writer.
type Graph struct {
	db *storage.DB
}

// NewGraph creates a link graph over the given database.
func NewGraph(db *storage.DB) *Graph {
	return &Graph{db: db}
}

// InternalLink is an outgoing wikilink row.
type InternalLink struct {
	TargetNoteID *string `json:"target_note_id"`
	TargetTitle  string  `json:"target_title"`
	LinkText     *string `json:"link_text,omitempty"`
	LineNumber   int     `json:"line_number"`
}

// ExternalLink is an outgoing URL/image/embed row.
type ExternalLink struct {
	URL        string  `json:"url"`
	Title      *string `json:"title,omitempty"`
	LineNumber int     `json:"line_number"`
	LinkType   string  `json:"link_type"`
}

// IncomingLink is a backlink: a wikilink in another note pointing here.
type IncomingLink struct {
	SourceNoteID string  `json:"source_note_id"`
	SourceTitle  string  `json:"source_title,omitempty"`
	LinkText     *string `json:"link_text,omitempty"`
	LineNumber   int     `json:"line_number"`
}

// NoteLinks groups all link edges touching one note.
type NoteLinks struct {
	OutgoingInternal []InternalLink `json:"outgoing_internal"`
	OutgoingExternal []ExternalLink `json:"outgoing_external"`
	Incoming         []IncomingLink `json:"incoming"`
}

// BrokenLink is a wikilink whose target does not resolve.
type BrokenLink struct {
	SourceNoteID string `json:"source_note_id"`
	TargetTitle  string `json:"target_title"`
	LineNumber   int    `json:"line_number"`
}

// LinksOf returns outgoing internal, outgoing external, and incoming links
// for one note.
func (g *Graph) LinksOf(id string) (*NoteLinks, error) {
	result := &NoteLinks{
		OutgoingInternal: []InternalLink{},
		OutgoingExternal: []ExternalLink{},
		Incoming:         []IncomingLink{},
	}

	rows, err := g.db.RO().Query(`
		SELECT target_note_id, target_title, link_text, line_number
		FROM note_links WHERE source_note_id = ? ORDER BY line_number, target_title`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query outgoing links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l InternalLink
		if err := rows.Scan(&l.TargetNoteID, &l.TargetTitle, &l.LinkText, &l.LineNumber); err != nil {
			return nil, fmt.Errorf("failed to scan outgoing link: %w", err)
		}
		result.OutgoingInternal = append(result.OutgoingInternal, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	extRows, err := g.db.RO().Query(`
		SELECT url, title, line_number, link_type
		FROM external_links WHERE note_id = ? ORDER BY line_number, url`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query external links: %w", err)
	}
	defer extRows.Close()
	for extRows.Next() {
		var l ExternalLink
		if err := extRows.Scan(&l.URL, &l.Title, &l.LineNumber, &l.LinkType); err != nil {
			return nil, fmt.Errorf("failed to scan external link: %w", err)
		}
		result.OutgoingExternal = append(result.OutgoingExternal, l)
	}
	if err := extRows.Err(); err != nil {
		return nil, err
	}

	incoming, err := g.Backlinks(id)
	if err != nil {
		return nil, err
	}
	result.Incoming = incoming

	return result, nil
}

// Backlinks returns incoming wikilinks for one note.
func (g *Graph) Backlinks(id string) ([]IncomingLink, error) {
	rows, err := g.db.RO().Query(`
		SELECT l.source_note_id, n.title, l.link_text, l.line_number
		FROM note_links l
		JOIN notes n ON n.id = l.source_note_id
		WHERE l.target_note_id = ?
		ORDER BY l.source_note_id, l.line_number`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query backlinks: %w", err)
	}
	defer rows.Close()

	result := []IncomingLink{}
	for rows.Next() {
		var l IncomingLink
		if err := rows.Scan(&l.SourceNoteID, &l.SourceTitle, &l.LinkText, &l.LineNumber); err != nil {
			return nil, fmt.Errorf("failed to scan backlink: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// FindBroken returns every wikilink row whose target is unresolved.
func (g *Graph) FindBroken() ([]BrokenLink, error) {
	rows, err := g.db.RO().Query(`
		SELECT source_note_id, target_title, line_number
		FROM note_links WHERE target_note_id IS NULL
		ORDER BY source_note_id, line_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query broken links: %w", err)
	}
	defer rows.Close()

	result := []BrokenLink{}
	for rows.Next() {
		var l BrokenLink
		if err := rows.Scan(&l.SourceNoteID, &l.TargetTitle, &l.LineNumber); err != nil {
			return nil, fmt.Errorf("failed to scan broken link: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// SearchCriteria selects notes by their link edges. Criteria combine with OR;
// an empty criteria set matches nothing.
type SearchCriteria struct {
	HasLinksTo      []string // notes that link to any of these ids
	LinkedFrom      []string // notes linked from any of these ids
	ExternalDomains []string // notes with external links to these domains
	BrokenLinks     bool     // notes containing broken wikilinks
}

func (c *SearchCriteria) empty() bool {
	return len(c.HasLinksTo) == 0 && len(c.LinkedFrom) == 0 &&
		len(c.ExternalDomains) == 0 && !c.BrokenLinks
}

// SearchByLinks returns the notes matching any criterion.
func (g *Graph) SearchByLinks(criteria *SearchCriteria) ([]*storage.NoteRow, error) {
	if criteria == nil || criteria.empty() {
		return []*storage.NoteRow{}, nil
	}

	matched := map[string]bool{}
	collect := func(query string, args ...any) error {
		rows, err := g.db.RO().Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			matched[id] = true
		}
		return rows.Err()
	}

	for _, target := range criteria.HasLinksTo {
		if err := collect("SELECT DISTINCT source_note_id FROM note_links WHERE target_note_id = ?", target); err != nil {
			return nil, fmt.Errorf("failed to search has_links_to: %w", err)
		}
	}
	for _, source := range criteria.LinkedFrom {
		if err := collect("SELECT DISTINCT target_note_id FROM note_links WHERE source_note_id = ? AND target_note_id IS NOT NULL", source); err != nil {
			return nil, fmt.Errorf("failed to search linked_from: %w", err)
		}
	}
	for _, domain := range criteria.ExternalDomains {
		err := collect(`SELECT DISTINCT note_id FROM external_links WHERE url LIKE ? OR url LIKE ?`,
			"https://"+domain+"%", "http://"+domain+"%")
		if err != nil {
			return nil, fmt.Errorf("failed to search external_domains: %w", err)
		}
	}
	if criteria.BrokenLinks {
		if err := collect("SELECT DISTINCT source_note_id FROM note_links WHERE target_note_id IS NULL"); err != nil {
			return nil, fmt.Errorf("failed to search broken links: %w", err)
		}
	}

	result := []*storage.NoteRow{}
	for id := range matched {
		row, err := storage.GetNote(g.db.RO(), id)
		if err != nil {
			return nil, err
		}
		if row != nil {
			result = append(result, row)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// MigrationReport summarises a link table backfill.
type MigrationReport struct {
	TotalNotes   int      `json:"total_notes"`
	Processed    int      `json:"processed"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"error_details"`
}

// Migrate backfills link rows for notes that are indexed but have no link
// rows yet, e.g. a vault created before link tracking existed. Refuses to
// run over non-empty link tables unless force is set.
func (g *Graph) Migrate(force bool) (*MigrationReport, error) {
	report := &MigrationReport{ErrorDetails: []string{}}

	err := g.db.WriteTx(func(tx *sql.Tx) error {
		internal, external, err := storage.CountLinkRows(tx)
		if err != nil {
			return err
		}
		if !force && (internal > 0 || external > 0) {
			return fmt.Errorf("link tables are not empty (%d internal, %d external rows); pass force to re-run migration", internal, external)
		}

		notes, err := storage.ListAllNotes(tx)
		if err != nil {
			return err
		}
		report.TotalNotes = len(notes)

		linked, err := storage.NotesWithLinkRows(tx)
		if err != nil {
			return err
		}

		for _, n := range notes {
			if !force && linked[n.ID] {
				continue
			}
			linkRows, extRows, err := DeriveRows(tx, n.ID, n.Content, n.Updated)
			if err != nil {
				report.Errors++
				report.ErrorDetails = append(report.ErrorDetails, fmt.Sprintf("%s: %v", n.ID, err))
				continue
			}
			if err := storage.ReplaceNoteLinks(tx, n.ID, linkRows, extRows); err != nil {
				report.Errors++
				report.ErrorDetails = append(report.ErrorDetails, fmt.Sprintf("%s: %v", n.ID, err))
				continue
			}
			report.Processed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
