package search

import (
	"fmt"
	"strings"

	"github.com/flint-note/flint-note/internal/notes"
)

// SQLResult carries raw rows from a user-supplied SELECT.
type SQLResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

// SearchSQL executes a caller-provided SELECT on the read-only connection.
// The statement check here is a convenience for a clear error message; the
// connection itself rejects writes with a readonly error either way.
func (s *Service) SearchSQL(query string, params []any) (*SQLResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, notes.ErrInvalidSQL("sql query must not be empty")
	}
	if idx := strings.Index(trimmed, ";"); idx >= 0 && strings.TrimSpace(trimmed[idx+1:]) != "" {
		return nil, notes.ErrInvalidSQL("only a single statement is allowed")
	}
	head := strings.ToUpper(trimmed)
	if !strings.HasPrefix(head, "SELECT") && !strings.HasPrefix(head, "WITH") {
		return nil, notes.ErrInvalidSQL("only SELECT statements are allowed")
	}

	rows, err := s.db.RO().Query(trimmed, params...)
	if err != nil {
		return nil, notes.ErrInvalidSQL("sql query failed: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &SQLResult{Columns: columns, Rows: []map[string]any{}}
	max := s.cfg.Search.MaxResults
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan sql result row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result.Rows = append(result.Rows, row)
		if len(result.Rows) >= max {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sql results: %w", err)
	}
	result.Count = len(result.Rows)
	return result, nil
}
