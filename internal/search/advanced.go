package search

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/flint-note/flint-note/internal/notes"
)

// MetadataFilter is one predicate over a frontmatter key.
type MetadataFilter struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Operator string `json:"operator,omitempty"` // defaults to =
}

// SortSpec orders advanced results by a whitelisted column.
type SortSpec struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"` // asc|desc
}

// AdvancedQuery is a structured query over notes joined with note_metadata.
type AdvancedQuery struct {
	Type            string           `json:"type,omitempty"`
	ContentContains string           `json:"content_contains,omitempty"`
	MetadataFilters []MetadataFilter `json:"metadata_filters,omitempty"`
	Sort            []SortSpec       `json:"sort,omitempty"`
	Limit           int              `json:"limit,omitempty"`
	Offset          int              `json:"offset,omitempty"`
}

var allowedOperators = map[string]bool{
	"=": true, "!=": true, ">": true, ">=": true, "<": true, "<=": true, "LIKE": true, "IN": true,
}

var allowedSortFields = map[string]bool{
	"title": true, "type": true, "filename": true, "created": true, "updated": true,
}

// SearchAdvanced runs a structured query on the read-only connection.
// Each metadata filter joins its own note_metadata alias so filters combine
// with AND across different keys.
func (s *Service) SearchAdvanced(q *AdvancedQuery) ([]*Result, error) {
	builder := sq.Select(
		"n.id", "n.title", "n.type", "n.filename", "n.path",
		"n.created", "n.updated", "n.content_hash", "n.metadata_json",
	).From("notes n")

	if q.Type != "" {
		builder = builder.Where(sq.Eq{"n.type": q.Type})
	}
	if q.ContentContains != "" {
		builder = builder.Where(sq.Like{"n.content": "%" + q.ContentContains + "%"})
	}

	for i, f := range q.MetadataFilters {
		if f.Key == "" {
			return nil, notes.ErrInvalidSQL("metadata filter %d has no key", i)
		}
		op := strings.ToUpper(strings.TrimSpace(f.Operator))
		if op == "" {
			op = "="
		}
		if !allowedOperators[op] {
			return nil, notes.ErrInvalidSQL("metadata filter operator %q is not allowed", f.Operator)
		}
		alias := fmt.Sprintf("m%d", i)
		builder = builder.Join(fmt.Sprintf("note_metadata %s ON %s.note_id = n.id AND %s.key = ?", alias, alias, alias), f.Key)
		switch op {
		case "IN":
			values := strings.Split(f.Value, ",")
			for j := range values {
				values[j] = strings.TrimSpace(values[j])
			}
			builder = builder.Where(sq.Eq{alias + ".value": values})
		case "LIKE":
			builder = builder.Where(sq.Like{alias + ".value": f.Value})
		default:
			builder = builder.Where(sq.Expr(fmt.Sprintf("%s.value %s ?", alias, op), f.Value))
		}
	}

	builder = builder.GroupBy("n.id")

	orderBy := make([]string, 0, len(q.Sort))
	for _, spec := range q.Sort {
		field := strings.ToLower(spec.Field)
		if !allowedSortFields[field] {
			return nil, notes.ErrInvalidSQL("cannot sort by %q", spec.Field)
		}
		dir := "ASC"
		if strings.EqualFold(spec.Order, "desc") {
			dir = "DESC"
		}
		orderBy = append(orderBy, "n."+field+" "+dir)
	}
	if len(orderBy) == 0 {
		orderBy = []string{"n.updated DESC", "n.id ASC"}
	}
	builder = builder.OrderBy(orderBy...)

	limit := s.clampLimit(q.Limit)
	builder = builder.Limit(uint64(limit))
	if q.Offset > 0 {
		builder = builder.Offset(uint64(q.Offset))
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return nil, notes.ErrInvalidSQL("failed to build query: %v", err)
	}

	rows, err := s.db.RO().Query(sqlQuery, args...)
	if err != nil {
		return nil, notes.ErrInvalidSQL("advanced query failed: %v", err)
	}
	defer rows.Close()

	results := []*Result{}
	for rows.Next() {
		var r Result
		var metaJSON string
		if err := rows.Scan(&r.ID, &r.Title, &r.Type, &r.Filename, &r.Path,
			&r.Created, &r.Updated, &r.ContentHash, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan advanced result: %w", err)
		}
		r.Metadata = decodeMetadata(metaJSON)
		results = append(results, &r)
	}
	return results, rows.Err()
}
