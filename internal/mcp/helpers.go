package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flint-note/flint-note/internal/fields"
)

// pinnedSearchFields survive any fields projection on search results.
var pinnedSearchFields = []string{"score", "snippet", "filename", "path"}

// textResult wraps a payload as {success: true, ...} JSON text, the shape
// every tool replies with.
func textResult(payload map[string]any) (*mcp.CallToolResult, error) {
	payload["success"] = true
	data, err := json.Marshal(payload)
	if err != nil {
		return errorResult(fmt.Errorf("failed to marshal response: %w", err))
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult serialises an error as {success: false, error} JSON text.
// Errors never cross the protocol boundary as Go errors; the kind substring
// in the message is the caller's contract.
func errorResult(err error) (*mcp.CallToolResult, error) {
	data, merr := json.Marshal(map[string]any{"success": false, "error": err.Error()})
	if merr != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultError(string(data)), nil
}

// toMap round-trips any JSON-serialisable value into a generic map so the
// field filter can project it.
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// projectFields applies a fields projection to a record, keeping the pinned
// keys regardless of the spec list.
func projectFields(record map[string]any, specs []string, pinned []string) map[string]any {
	if len(specs) == 0 {
		return record
	}
	out := fields.Apply(record, specs)
	for _, key := range pinned {
		if v, ok := record[key]; ok {
			if _, present := out[key]; !present {
				out[key] = v
			}
		}
	}
	return out
}
