package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferValueType(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "hello", "string"},
		{"number", 42, "number"},
		{"float", 4.2, "number"},
		{"boolean", true, "boolean"},
		{"date", "2026-01-02", "date"},
		{"datetime", "2026-01-02T03:04:05.000Z", "date"},
		{"null", nil, "null"},
		{"array", []any{"a"}, "array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferValueType(tt.value))
		})
	}
}

func TestFlattenMetadata_ArraysBecomeRows(t *testing.T) {
	rows := FlattenMetadata("general/a.md", map[string]any{
		"tags":   []any{"x", "y"},
		"status": "open",
	})

	var tagValues []string
	var statusRows int
	for _, r := range rows {
		assert.Equal(t, "general/a.md", r.NoteID)
		switch r.Key {
		case "tags":
			assert.Equal(t, "array", r.ValueType)
			tagValues = append(tagValues, r.Value)
		case "status":
			statusRows++
			assert.Equal(t, "string", r.ValueType)
			assert.Equal(t, "open", r.Value)
		}
	}
	assert.ElementsMatch(t, []string{"x", "y"}, tagValues)
	assert.Equal(t, 1, statusRows)
}
