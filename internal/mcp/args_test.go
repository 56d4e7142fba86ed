package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringArg(t *testing.T) {
	argsMap := map[string]any{"name": "value", "number": 42.0, "empty": ""}

	got, err := parseStringArg(argsMap, "name", true)
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	_, err = parseStringArg(argsMap, "missing", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")

	got, err = parseStringArg(argsMap, "missing", false)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseStringArg(argsMap, "number", false)
	assert.Error(t, err)

	_, err = parseStringArg(argsMap, "empty", true)
	assert.Error(t, err)
}

func TestParseIntArg(t *testing.T) {
	argsMap := map[string]any{"limit": 10.0, "text": "nope"}

	assert.Equal(t, 10, parseIntArg(argsMap, "limit", 5))
	assert.Equal(t, 5, parseIntArg(argsMap, "missing", 5))
	assert.Equal(t, 5, parseIntArg(argsMap, "text", 5))
}

func TestParseBoolArg(t *testing.T) {
	argsMap := map[string]any{"confirm": true}

	assert.True(t, parseBoolArg(argsMap, "confirm", false))
	assert.False(t, parseBoolArg(argsMap, "missing", false))
	assert.True(t, parseBoolArg(argsMap, "missing", true))
}

func TestParseArrayArg(t *testing.T) {
	argsMap := map[string]any{
		"tags":  []any{"a", "b", 3.0},
		"other": "not an array",
	}

	assert.Equal(t, []string{"a", "b"}, parseArrayArg(argsMap, "tags"))
	assert.Nil(t, parseArrayArg(argsMap, "missing"))
	assert.Nil(t, parseArrayArg(argsMap, "other"))
}

func TestParseObjectArg(t *testing.T) {
	argsMap := map[string]any{"metadata": map[string]any{"k": "v"}, "str": "x"}

	assert.Equal(t, map[string]any{"k": "v"}, parseObjectArg(argsMap, "metadata"))
	assert.Nil(t, parseObjectArg(argsMap, "missing"))
	assert.Nil(t, parseObjectArg(argsMap, "str"))
}
