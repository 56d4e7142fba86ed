package storage

import (
	"fmt"
	"regexp"
	"sort"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)

// InferValueType classifies a frontmatter value for the note_metadata table.
func InferValueType(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int, int64, uint64, float64, float32:
		return "number"
	case string:
		if datePattern.MatchString(val) {
			return "date"
		}
		return "string"
	case []any:
		return "array"
	default:
		return "string"
	}
}

// FlattenMetadata turns a frontmatter mapping into note_metadata rows.
// Arrays flatten into multiple rows sharing the key; nested mappings are
// stored as their string rendering (structured queries address scalars and
// arrays, the JSON column keeps full fidelity).
func FlattenMetadata(noteID string, metadata map[string]any) []MetadataRow {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows []MetadataRow
	for _, key := range keys {
		value := metadata[key]
		if arr, ok := value.([]any); ok {
			for _, elem := range arr {
				rows = append(rows, MetadataRow{
					NoteID:    noteID,
					Key:       key,
					Value:     stringify(elem),
					ValueType: "array",
				})
			}
			continue
		}
		rows = append(rows, MetadataRow{
			NoteID:    noteID,
			Key:       key,
			Value:     stringify(value),
			ValueType: InferValueType(value),
		})
	}
	return rows
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
