package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flint-note/flint-note/internal/notes"
)

// AddNoteTools registers the note CRUD tools with an MCP server. Each tool
// is registered by its own composable function so tests can pick what they
// need.
func AddNoteTools(s *server.MCPServer, store *notes.Store) {
	AddCreateNoteTool(s, store)
	AddGetNoteTool(s, store)
	AddGetNotesTool(s, store)
	AddUpdateNoteTool(s, store)
	AddRenameNoteTool(s, store)
	AddMoveNoteTool(s, store)
}

// AddCreateNoteTool registers the create_note tool.
func AddCreateNoteTool(s *server.MCPServer, store *notes.Store) {
	tool := mcp.NewTool(
		"create_note",
		mcp.WithDescription("Create a new markdown note in a note type directory. The filename is derived from the title; the note id is '<type>/<slug>.md'."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Note type (directory) to create the note in, e.g. 'general' or 'projects'")),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Note title; also used to derive the filename")),
		mcp.WithString("content",
			mcp.Description("Markdown body of the note")),
		mcp.WithObject("metadata",
			mcp.Description("Additional frontmatter keys. System keys (title, filename, created, updated) are managed automatically.")),
		mcp.WithBoolean("use_template",
			mcp.Description("Apply the note type's template with {{title}}, {{type}}, {{date}}, {{time}} and {{content}} substituted")),
	)
	s.AddTool(tool, createCreateNoteHandler(store))
}

func createCreateNoteHandler(store *notes.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		typeName, err := parseStringArg(argsMap, "type", true)
		if err != nil {
			return errorResult(err)
		}
		title, err := parseStringArg(argsMap, "title", true)
		if err != nil {
			return errorResult(err)
		}
		content, err := parseStringArg(argsMap, "content", false)
		if err != nil {
			return errorResult(err)
		}
		metadata := parseObjectArg(argsMap, "metadata")
		useTemplate := parseBoolArg(argsMap, "use_template", false)

		n, err := store.Create(typeName, title, content, metadata, useTemplate)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"note": n.Info()})
	}
}

// AddGetNoteTool registers the get_note tool.
func AddGetNoteTool(s *server.MCPServer, store *notes.Store) {
	tool := mcp.NewTool(
		"get_note",
		mcp.WithDescription("Fetch a note by identifier ('type/slug' with or without .md). Returns null for a missing note rather than an error."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Note identifier, e.g. 'general/hello-world.md'")),
		mcp.WithArray("fields",
			mcp.Description("Dotted field specs to project the note, e.g. ['id', 'metadata.tags']")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createGetNoteHandler(store))
}

func createGetNoteHandler(store *notes.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		identifier, err := parseStringArg(argsMap, "identifier", true)
		if err != nil {
			return errorResult(err)
		}
		fieldSpecs := parseArrayArg(argsMap, "fields")

		n, err := store.Get(identifier)
		if err != nil {
			return errorResult(err)
		}
		if n == nil {
			return textResult(map[string]any{"note": nil})
		}

		record := projectFields(toMap(n), fieldSpecs, nil)
		return textResult(map[string]any{"note": record})
	}
}

// AddGetNotesTool registers the get_notes batch tool.
func AddGetNotesTool(s *server.MCPServer, store *notes.Store) {
	tool := mcp.NewTool(
		"get_notes",
		mcp.WithDescription("Fetch a batch of notes. Results come back per identifier in request order; a missing note fails its own entry only."),
		mcp.WithArray("identifiers",
			mcp.Required(),
			mcp.Description("Note identifiers to fetch")),
		mcp.WithArray("fields",
			mcp.Description("Dotted field specs applied to each returned note")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createGetNotesHandler(store))
}

func createGetNotesHandler(store *notes.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		identifiers := parseArrayArg(argsMap, "identifiers")
		if identifiers == nil {
			return errorResult(errRequired("identifiers"))
		}
		fieldSpecs := parseArrayArg(argsMap, "fields")

		batch := store.GetMany(identifiers)
		results := make([]map[string]any, len(batch))
		for i, entry := range batch {
			m := map[string]any{"success": entry.Success}
			if entry.Note != nil {
				m["note"] = projectFields(toMap(entry.Note), fieldSpecs, nil)
			}
			if entry.Error != "" {
				m["error"] = entry.Error
			}
			results[i] = m
		}
		return textResult(map[string]any{"results": results, "total": len(results)})
	}
}

// AddUpdateNoteTool registers the update_note tool.
func AddUpdateNoteTool(s *server.MCPServer, store *notes.Store) {
	tool := mcp.NewTool(
		"update_note",
		mcp.WithDescription("Update a note's content and/or metadata under optimistic concurrency. content_hash must match the note on disk; protected metadata keys (title, filename, created, updated) are rejected."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Note identifier")),
		mcp.WithString("content_hash",
			mcp.Required(),
			mcp.Description("Expected sha256: hash of the note as last read")),
		mcp.WithString("content",
			mcp.Description("New markdown body; omit to leave the body unchanged")),
		mcp.WithObject("metadata",
			mcp.Description("Metadata keys to deep-merge into the frontmatter")),
	)
	s.AddTool(tool, createUpdateNoteHandler(store))
}

func createUpdateNoteHandler(store *notes.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		identifier, err := parseStringArg(argsMap, "identifier", true)
		if err != nil {
			return errorResult(err)
		}
		contentHash, err := parseStringArg(argsMap, "content_hash", true)
		if err != nil {
			return errorResult(err)
		}
		metadata := parseObjectArg(argsMap, "metadata")

		var content *string
		if raw, ok := argsMap["content"]; ok {
			str, ok := raw.(string)
			if !ok {
				return errorResult(errMustBeString("content"))
			}
			content = &str
		}

		if content == nil && metadata == nil {
			return errorResult(notes.ErrInvalidInput("update_note needs content and/or metadata"))
		}

		if metadata == nil {
			updated, uerr := store.UpdateContent(identifier, *content, contentHash)
			if uerr != nil {
				return errorResult(uerr)
			}
			return textResult(map[string]any{"note": updated.Info()})
		}

		updated, err := store.UpdateWithMetadata(identifier, content, metadata, contentHash, false)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"note": updated.Info()})
	}
}

// AddRenameNoteTool registers the rename_note tool.
func AddRenameNoteTool(s *server.MCPServer, store *notes.Store) {
	tool := mcp.NewTool(
		"rename_note",
		mcp.WithDescription("Rename a note: the title changes, the filename is re-derived, and wikilinks referring to the old id are rewritten in other notes."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Note identifier")),
		mcp.WithString("new_title",
			mcp.Required(),
			mcp.Description("New note title")),
		mcp.WithString("content_hash",
			mcp.Required(),
			mcp.Description("Expected sha256: hash of the note as last read")),
	)
	s.AddTool(tool, createRenameNoteHandler(store))
}

func createRenameNoteHandler(store *notes.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		identifier, err := parseStringArg(argsMap, "identifier", true)
		if err != nil {
			return errorResult(err)
		}
		newTitle, err := parseStringArg(argsMap, "new_title", true)
		if err != nil {
			return errorResult(err)
		}
		contentHash, err := parseStringArg(argsMap, "content_hash", true)
		if err != nil {
			return errorResult(err)
		}

		result, err := store.Rename(identifier, newTitle, contentHash)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{
			"note":               result.Note.Info(),
			"old_id":             result.OldID,
			"updated_references": result.UpdatedReferences,
		})
	}
}

// AddMoveNoteTool registers the move_note tool.
func AddMoveNoteTool(s *server.MCPServer, store *notes.Store) {
	tool := mcp.NewTool(
		"move_note",
		mcp.WithDescription("Move a note into another existing note type. The note id changes to '<new_type>/<slug>.md' and referring wikilinks are rewritten."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Note identifier")),
		mcp.WithString("new_type",
			mcp.Required(),
			mcp.Description("Target note type; must exist and differ from the current type")),
		mcp.WithString("content_hash",
			mcp.Required(),
			mcp.Description("Expected sha256: hash of the note as last read")),
	)
	s.AddTool(tool, createMoveNoteHandler(store))
}

func createMoveNoteHandler(store *notes.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		identifier, err := parseStringArg(argsMap, "identifier", true)
		if err != nil {
			return errorResult(err)
		}
		newType, err := parseStringArg(argsMap, "new_type", true)
		if err != nil {
			return errorResult(err)
		}
		contentHash, err := parseStringArg(argsMap, "content_hash", true)
		if err != nil {
			return errorResult(err)
		}

		result, err := store.Move(identifier, newType, contentHash)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{
			"note":               result.Note.Info(),
			"old_id":             result.OldID,
			"updated_references": result.UpdatedReferences,
		})
	}
}
