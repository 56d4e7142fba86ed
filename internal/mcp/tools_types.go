package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flint-note/flint-note/internal/notes"
	"github.com/flint-note/flint-note/internal/notetypes"
)

// AddNoteTypeTools registers the note type management tools.
func AddNoteTypeTools(s *server.MCPServer, manager *notetypes.Manager) {
	AddCreateNoteTypeTool(s, manager)
	AddUpdateNoteTypeTool(s, manager)
	AddGetNoteTypeInfoTool(s, manager)
	AddGetNoteTypeTemplateTool(s, manager)
	AddListNoteTypesTool(s, manager)
}

func parseSchemaArg(argsMap map[string]any) []notetypes.FieldSpec {
	raw := parseObjectArrayArg(argsMap, "schema")
	if raw == nil {
		return nil
	}
	specs := make([]notetypes.FieldSpec, 0, len(raw))
	for _, obj := range raw {
		spec := notetypes.FieldSpec{Type: "string"}
		if v, ok := obj["name"].(string); ok {
			spec.Name = v
		}
		if v, ok := obj["type"].(string); ok && v != "" {
			spec.Type = v
		}
		if v, ok := obj["required"].(bool); ok {
			spec.Required = v
		}
		if v, ok := obj["description"].(string); ok {
			spec.Description = v
		}
		if spec.Name != "" {
			specs = append(specs, spec)
		}
	}
	return specs
}

// AddCreateNoteTypeTool registers the create_note_type tool.
func AddCreateNoteTypeTool(s *server.MCPServer, manager *notetypes.Manager) {
	tool := mcp.NewTool(
		"create_note_type",
		mcp.WithDescription("Create a note type: a directory under the workspace root with a description file, optional template, and optional metadata schema."),
		mcp.WithString("type_name",
			mcp.Required(),
			mcp.Description("Note type name: letters, digits, dash and underscore")),
		mcp.WithString("description",
			mcp.Description("What this note type is for")),
		mcp.WithString("template",
			mcp.Description("Note template with {{title}}, {{type}}, {{date}}, {{time}}, {{content}} variables")),
		mcp.WithArray("agent_instructions",
			mcp.Description("Instructions for agents working with notes of this type")),
		mcp.WithArray("metadata_schema",
			mcp.Description("Metadata schema entries: objects with name, type, required, description")),
	)
	s.AddTool(tool, createCreateNoteTypeHandler(manager))
}

func createCreateNoteTypeHandler(manager *notetypes.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		name, err := parseStringArg(argsMap, "type_name", true)
		if err != nil {
			return errorResult(err)
		}
		description, err := parseStringArg(argsMap, "description", false)
		if err != nil {
			return errorResult(err)
		}
		template, err := parseStringArg(argsMap, "template", false)
		if err != nil {
			return errorResult(err)
		}
		instructions := parseArrayArg(argsMap, "agent_instructions")

		// metadata_schema is the documented name; schema is accepted too.
		schemaArgs := argsMap
		if _, ok := argsMap["metadata_schema"]; ok {
			schemaArgs = map[string]any{"schema": argsMap["metadata_schema"]}
		}
		schema := parseSchemaArg(schemaArgs)

		info, err := manager.Create(name, description, template, instructions, schema)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"note_type": info})
	}
}

// AddUpdateNoteTypeTool registers the update_note_type tool.
func AddUpdateNoteTypeTool(s *server.MCPServer, manager *notetypes.Manager) {
	tool := mcp.NewTool(
		"update_note_type",
		mcp.WithDescription("Update a note type's description, agent instructions, metadata schema or template. Only the provided fields change."),
		mcp.WithString("type_name",
			mcp.Required(),
			mcp.Description("Note type to update")),
		mcp.WithString("description",
			mcp.Description("New purpose text")),
		mcp.WithString("template",
			mcp.Description("New template; an empty string removes the template")),
		mcp.WithArray("agent_instructions",
			mcp.Description("Replacement instruction list")),
		mcp.WithArray("metadata_schema",
			mcp.Description("Replacement metadata schema")),
	)
	s.AddTool(tool, createUpdateNoteTypeHandler(manager))
}

func createUpdateNoteTypeHandler(manager *notetypes.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		name, err := parseStringArg(argsMap, "type_name", true)
		if err != nil {
			return errorResult(err)
		}

		var fields notetypes.UpdateFields
		if raw, ok := argsMap["description"]; ok {
			str, ok := raw.(string)
			if !ok {
				return errorResult(errMustBeString("description"))
			}
			fields.Purpose = &str
		}
		if raw, ok := argsMap["template"]; ok {
			str, ok := raw.(string)
			if !ok {
				return errorResult(errMustBeString("template"))
			}
			fields.Template = &str
		}
		if _, ok := argsMap["agent_instructions"]; ok {
			fields.Instructions = parseArrayArg(argsMap, "agent_instructions")
		}
		if raw, ok := argsMap["metadata_schema"]; ok {
			fields.Schema = parseSchemaArg(map[string]any{"schema": raw})
		}

		info, err := manager.Update(name, fields)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"note_type": info})
	}
}

// AddGetNoteTypeInfoTool registers the get_note_type_info tool.
func AddGetNoteTypeInfoTool(s *server.MCPServer, manager *notetypes.Manager) {
	tool := mcp.NewTool(
		"get_note_type_info",
		mcp.WithDescription("Fetch a note type's description, agent instructions and metadata schema."),
		mcp.WithString("type_name",
			mcp.Required(),
			mcp.Description("Note type name")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := parseStringArg(request.GetArguments(), "type_name", true)
		if err != nil {
			return errorResult(err)
		}
		info, err := manager.Get(name)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"note_type": info})
	})
}

// AddGetNoteTypeTemplateTool registers the get_note_type_template tool.
func AddGetNoteTypeTemplateTool(s *server.MCPServer, manager *notetypes.Manager) {
	tool := mcp.NewTool(
		"get_note_type_template",
		mcp.WithDescription("Fetch a note type's template text; empty when the type has no template."),
		mcp.WithString("type_name",
			mcp.Required(),
			mcp.Description("Note type name")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := parseStringArg(request.GetArguments(), "type_name", true)
		if err != nil {
			return errorResult(err)
		}
		if !manager.Exists(name) {
			return errorResult(notes.ErrTypeNotFound(name))
		}
		template, err := manager.Template(name)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"type": name, "template": template})
	})
}

// AddListNoteTypesTool registers the list_note_types tool.
func AddListNoteTypesTool(s *server.MCPServer, manager *notetypes.Manager) {
	tool := mcp.NewTool(
		"list_note_types",
		mcp.WithDescription("List every note type with its description and schema."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		infos, err := manager.List()
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"note_types": infos, "total": len(infos)})
	})
}
