package search

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/flint-note/flint-note/internal/notes"
)

// Result is one text-search hit.
type Result struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	Filename    string         `json:"filename"`
	Path        string         `json:"path"`
	Score       float64        `json:"score"`
	Snippet     string         `json:"snippet,omitempty"`
	Created     string         `json:"created"`
	Updated     string         `json:"updated"`
	ContentHash string         `json:"content_hash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SearchText answers a text query. With useRegex the query compiles as a Go
// regular expression and scans titles and content; otherwise it runs through
// FTS5 with bm25 ranking and snippet extraction. Title hits outrank content
// hits in both modes.
func (s *Service) SearchText(query, typeFilter string, limit int, useRegex bool) ([]*Result, error) {
	limit = s.clampLimit(limit)
	if useRegex {
		return s.searchRegex(query, typeFilter, limit)
	}
	return s.searchFTS(query, typeFilter, limit)
}

func (s *Service) clampLimit(limit int) int {
	max := s.cfg.Search.MaxResults
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

func (s *Service) searchFTS(query, typeFilter string, limit int) ([]*Result, error) {
	if strings.TrimSpace(query) == "" {
		return s.listRecent(typeFilter, limit)
	}

	sqlQuery := `
		SELECT n.id, n.title, n.type, n.filename, n.path, n.created, n.updated,
		       n.content_hash, n.metadata_json,
		       bm25(notes_fts, 0.0, 5.0, 1.0) AS rank,
		       snippet(notes_fts, 2, '', '', '...', 24) AS snip
		FROM notes_fts
		JOIN notes n ON n.id = notes_fts.id
		WHERE notes_fts MATCH ?`

	args := []any{ftsQueryFor(query)}
	if typeFilter != "" {
		sqlQuery += " AND n.type = ?"
		args = append(args, typeFilter)
	}
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.RO().Query(sqlQuery, args...)
	if err != nil {
		return nil, notes.ErrInvalidSQL("full-text query failed: %v", err)
	}
	defer rows.Close()

	results := []*Result{}
	for rows.Next() {
		var r Result
		var metaJSON string
		var rank float64
		if err := rows.Scan(&r.ID, &r.Title, &r.Type, &r.Filename, &r.Path,
			&r.Created, &r.Updated, &r.ContentHash, &metaJSON, &rank, &r.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		// bm25 is smaller-is-better and negative for matches; fold it into
		// a [0,1) score where better matches land closer to 1.
		pos := -rank
		if pos < 0 {
			pos = 0
		}
		r.Score = pos / (pos + 1)
		r.Metadata = decodeMetadata(metaJSON)
		results = append(results, &r)
	}
	return results, rows.Err()
}

// ftsQueryFor quotes every token so user input cannot break FTS5 query
// syntax; tokens combine with implicit AND.
func ftsQueryFor(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

func (s *Service) listRecent(typeFilter string, limit int) ([]*Result, error) {
	sqlQuery := `
		SELECT id, title, type, filename, path, created, updated, content_hash, metadata_json
		FROM notes`
	args := []any{}
	if typeFilter != "" {
		sqlQuery += " WHERE type = ?"
		args = append(args, typeFilter)
	}
	sqlQuery += " ORDER BY updated DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.RO().Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	results := []*Result{}
	for rows.Next() {
		var r Result
		var metaJSON string
		if err := rows.Scan(&r.ID, &r.Title, &r.Type, &r.Filename, &r.Path,
			&r.Created, &r.Updated, &r.ContentHash, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan note row: %w", err)
		}
		r.Metadata = decodeMetadata(metaJSON)
		results = append(results, &r)
	}
	return results, rows.Err()
}

func (s *Service) searchRegex(pattern, typeFilter string, limit int) ([]*Result, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, notes.ErrInvalidRegex(pattern, err)
	}

	candidates, err := s.listRecent(typeFilter, s.cfg.Search.MaxResults)
	if err != nil {
		return nil, err
	}

	results := []*Result{}
	for _, c := range candidates {
		row, err := s.noteContent(c.ID)
		if err != nil {
			return nil, err
		}

		titleHit := re.MatchString(c.Title)
		contentHits := 0
		snippet := ""
		for i, line := range strings.Split(row, "\n") {
			if re.MatchString(line) {
				contentHits++
				if snippet == "" {
					snippet = fmt.Sprintf("%d: %s", i+1, strings.TrimSpace(line))
				}
			}
		}
		if !titleHit && contentHits == 0 {
			continue
		}

		r := *c
		r.Snippet = snippet
		if titleHit && snippet == "" {
			r.Snippet = c.Title
		}
		// Title hits dominate; extra hits break ties.
		base := 0.3
		if titleHit {
			base = 0.6
		}
		bonus := 0.01 * float64(contentHits)
		if bonus > 0.29 {
			bonus = 0.29
		}
		r.Score = base + bonus
		results = append(results, &r)
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Service) noteContent(id string) (string, error) {
	var content string
	if err := s.db.RO().QueryRow("SELECT content FROM notes WHERE id = ?", id).Scan(&content); err != nil {
		return "", fmt.Errorf("failed to read content of %s: %w", id, err)
	}
	return content, nil
}

func sortResults(results []*Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

func decodeMetadata(metaJSON string) map[string]any {
	if metaJSON == "" {
		return nil
	}
	m := map[string]any{}
	if err := json.Unmarshal([]byte(metaJSON), &m); err != nil {
		return nil
	}
	return m
}
