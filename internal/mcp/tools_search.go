package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flint-note/flint-note/internal/search"
)

// AddSearchTools registers the three search tools.
func AddSearchTools(s *server.MCPServer, svc *search.Service) {
	AddSearchNotesTool(s, svc)
	AddSearchNotesAdvancedTool(s, svc)
	AddSearchNotesSQLTool(s, svc)
}

// AddSearchNotesTool registers the search_notes tool.
func AddSearchNotesTool(s *server.MCPServer, svc *search.Service) {
	tool := mcp.NewTool(
		"search_notes",
		mcp.WithDescription("Full-text search over note titles and bodies. With regex=true the query compiles as a regular expression and scans notes line by line. Title hits outrank content hits."),
		mcp.WithString("query",
			mcp.Description("Search query; an empty query lists the most recently updated notes")),
		mcp.WithString("type_filter",
			mcp.Description("Restrict results to one note type")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results")),
		mcp.WithBoolean("use_regex",
			mcp.Description("Interpret the query as a regular expression")),
		mcp.WithArray("fields",
			mcp.Description("Dotted field specs to project each result; score, snippet, filename and path are always kept")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createSearchNotesHandler(svc))
}

func createSearchNotesHandler(svc *search.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		query, err := parseStringArg(argsMap, "query", false)
		if err != nil {
			return errorResult(err)
		}
		typeFilter, err := parseStringArg(argsMap, "type_filter", false)
		if err != nil {
			return errorResult(err)
		}
		limit := parseIntArg(argsMap, "limit", 0)
		useRegex := parseBoolArg(argsMap, "use_regex", false)
		fieldSpecs := parseArrayArg(argsMap, "fields")

		results, err := svc.SearchText(query, typeFilter, limit, useRegex)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{
			"results": projectResults(results, fieldSpecs),
			"total":   len(results),
		})
	}
}

func projectResults(results []*search.Result, fieldSpecs []string) []map[string]any {
	out := make([]map[string]any, len(results))
	for i, r := range results {
		out[i] = projectFields(toMap(r), fieldSpecs, pinnedSearchFields)
	}
	return out
}

// AddSearchNotesAdvancedTool registers the search_notes_advanced tool.
func AddSearchNotesAdvancedTool(s *server.MCPServer, svc *search.Service) {
	tool := mcp.NewTool(
		"search_notes_advanced",
		mcp.WithDescription("Structured search over notes and their frontmatter: type filter, content substring, metadata predicates, sorting and pagination."),
		mcp.WithString("type",
			mcp.Description("Restrict results to one note type")),
		mcp.WithString("content_contains",
			mcp.Description("Substring that must appear in the note body")),
		mcp.WithArray("metadata_filters",
			mcp.Description("Predicates over frontmatter keys: objects with key, value and optional operator (=, !=, >, >=, <, <=, LIKE, IN)")),
		mcp.WithArray("sort",
			mcp.Description("Sort specs: objects with field (title, type, filename, created, updated) and order (asc, desc)")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results")),
		mcp.WithNumber("offset",
			mcp.Description("Pagination offset")),
		mcp.WithArray("fields",
			mcp.Description("Dotted field specs to project each result")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createSearchNotesAdvancedHandler(svc))
}

func createSearchNotesAdvancedHandler(svc *search.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		q := &search.AdvancedQuery{
			Limit:  parseIntArg(argsMap, "limit", 0),
			Offset: parseIntArg(argsMap, "offset", 0),
		}
		var err error
		if q.Type, err = parseStringArg(argsMap, "type", false); err != nil {
			return errorResult(err)
		}
		if q.ContentContains, err = parseStringArg(argsMap, "content_contains", false); err != nil {
			return errorResult(err)
		}

		for _, obj := range parseObjectArrayArg(argsMap, "metadata_filters") {
			f := search.MetadataFilter{}
			if v, ok := obj["key"].(string); ok {
				f.Key = v
			}
			if v, ok := obj["value"].(string); ok {
				f.Value = v
			}
			if v, ok := obj["operator"].(string); ok {
				f.Operator = v
			}
			q.MetadataFilters = append(q.MetadataFilters, f)
		}

		for _, obj := range parseObjectArrayArg(argsMap, "sort") {
			spec := search.SortSpec{}
			if v, ok := obj["field"].(string); ok {
				spec.Field = v
			}
			if v, ok := obj["order"].(string); ok {
				spec.Order = v
			}
			q.Sort = append(q.Sort, spec)
		}

		fieldSpecs := parseArrayArg(argsMap, "fields")

		results, err := svc.SearchAdvanced(q)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{
			"results": projectResults(results, fieldSpecs),
			"total":   len(results),
		})
	}
}

// AddSearchNotesSQLTool registers the search_notes_sql tool.
func AddSearchNotesSQLTool(s *server.MCPServer, svc *search.Service) {
	tool := mcp.NewTool(
		"search_notes_sql",
		mcp.WithDescription(`Run a read-only SELECT over the note index. Tables: notes(id, title, content, type, filename, path, created, updated, content_hash, metadata_json), note_metadata(note_id, key, value, value_type), note_links(source_note_id, target_note_id, target_title, link_text, line_number), external_links(note_id, url, title, line_number, link_type). Writes are rejected by the read-only connection.`),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("A single SELECT statement; ? placeholders bind params")),
		mcp.WithArray("params",
			mcp.Description("Positional parameters for the query")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createSearchNotesSQLHandler(svc))
}

func createSearchNotesSQLHandler(svc *search.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		query, err := parseStringArg(argsMap, "query", true)
		if err != nil {
			return errorResult(err)
		}

		var params []any
		if raw, ok := argsMap["params"].([]any); ok {
			params = raw
		}

		result, err := svc.SearchSQL(query, params)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{
			"columns": result.Columns,
			"rows":    result.Rows,
			"total":   result.Count,
		})
	}
}
