package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flint-note/flint-note/internal/deletion"
)

// AddDeletionTools registers the deletion tools.
func AddDeletionTools(s *server.MCPServer, engine *deletion.Engine) {
	AddDeleteNoteTool(s, engine)
	AddBulkDeleteNotesTool(s, engine)
	AddDeleteNoteTypeTool(s, engine)
}

// AddDeleteNoteTool registers the delete_note tool.
func AddDeleteNoteTool(s *server.MCPServer, engine *deletion.Engine) {
	tool := mcp.NewTool(
		"delete_note",
		mcp.WithDescription("Delete a single note. Honours the workspace deletion policy: confirmation may be required, and a backup copy is kept when backups are enabled."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Note identifier")),
		mcp.WithBoolean("confirm",
			mcp.Description("Set true to confirm the deletion")),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()
		identifier, err := parseStringArg(argsMap, "identifier", true)
		if err != nil {
			return errorResult(err)
		}
		confirm := parseBoolArg(argsMap, "confirm", false)

		result, err := engine.DeleteNote(identifier, confirm)
		if err != nil {
			return errorResult(err)
		}
		payload := map[string]any{"id": result.ID, "deleted": result.Deleted}
		if result.BackupPath != "" {
			payload["backup_path"] = result.BackupPath
		}
		return textResult(payload)
	})
}

// AddBulkDeleteNotesTool registers the bulk_delete_notes tool.
func AddBulkDeleteNotesTool(s *server.MCPServer, engine *deletion.Engine) {
	tool := mcp.NewTool(
		"bulk_delete_notes",
		mcp.WithDescription("Delete every note matching the given criteria (combined with AND). The whole call fails without deleting anything when the candidate set exceeds max_bulk_delete."),
		mcp.WithString("type",
			mcp.Description("Restrict candidates to one note type")),
		mcp.WithArray("tags",
			mcp.Description("Match notes whose tags metadata contains any of these values")),
		mcp.WithString("pattern",
			mcp.Description("Glob matched against note ids, e.g. 'general/draft-*'")),
		mcp.WithBoolean("confirm",
			mcp.Description("Set true to confirm the deletion")),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()
		typeName, err := parseStringArg(argsMap, "type", false)
		if err != nil {
			return errorResult(err)
		}
		pattern, err := parseStringArg(argsMap, "pattern", false)
		if err != nil {
			return errorResult(err)
		}
		criteria := deletion.BulkCriteria{
			Type:    typeName,
			Tags:    parseArrayArg(argsMap, "tags"),
			Pattern: pattern,
		}
		confirm := parseBoolArg(argsMap, "confirm", false)

		results, err := engine.BulkDelete(criteria, confirm)
		if err != nil {
			return errorResult(err)
		}
		deleted := 0
		for _, r := range results {
			if r.Deleted {
				deleted++
			}
		}
		return textResult(map[string]any{
			"results": results,
			"total":   len(results),
			"deleted": deleted,
		})
	})
}

// AddDeleteNoteTypeTool registers the delete_note_type tool.
func AddDeleteNoteTypeTool(s *server.MCPServer, engine *deletion.Engine) {
	tool := mcp.NewTool(
		"delete_note_type",
		mcp.WithDescription("Delete a note type directory. action=error fails when notes are present; action=migrate moves the notes into target_type first (rewriting wikilinks); action=delete bulk-deletes them."),
		mcp.WithString("type_name",
			mcp.Required(),
			mcp.Description("Note type to delete")),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("One of error, migrate, delete")),
		mcp.WithString("target_type",
			mcp.Description("Where notes migrate with action=migrate")),
		mcp.WithBoolean("confirm",
			mcp.Description("Set true to confirm the deletion")),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()
		name, err := parseStringArg(argsMap, "type_name", true)
		if err != nil {
			return errorResult(err)
		}
		action, err := parseStringArg(argsMap, "action", true)
		if err != nil {
			return errorResult(err)
		}
		target, err := parseStringArg(argsMap, "target_type", false)
		if err != nil {
			return errorResult(err)
		}
		confirm := parseBoolArg(argsMap, "confirm", false)

		result, err := engine.DeleteType(name, action, target, confirm)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"result": result})
	})
}
