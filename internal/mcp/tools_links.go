package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flint-note/flint-note/internal/links"
	"github.com/flint-note/flint-note/internal/notes"
)

// AddLinkTools registers the link graph tools.
func AddLinkTools(s *server.MCPServer, store *notes.Store, graph *links.Graph) {
	AddLinkNotesTool(s, store)
	AddGetNoteLinksTool(s, store, graph)
	AddGetBacklinksTool(s, store, graph)
	AddFindBrokenLinksTool(s, graph)
	AddSearchByLinksTool(s, graph)
	AddMigrateLinksTool(s, graph)
}

// AddLinkNotesTool registers the link_notes tool.
func AddLinkNotesTool(s *server.MCPServer, store *notes.Store) {
	tool := mcp.NewTool(
		"link_notes",
		mcp.WithDescription("Append a wikilink to the source note pointing at the target note. Both notes must exist; the link lands on its own line at the end of the source body."),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Identifier of the note to add the link to")),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Identifier of the note to link at")),
		mcp.WithString("link_text",
			mcp.Description("Optional display text: produces [[target|text]]")),
	)
	s.AddTool(tool, createLinkNotesHandler(store))
}

func createLinkNotesHandler(store *notes.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()

		source, err := parseStringArg(argsMap, "source", true)
		if err != nil {
			return errorResult(err)
		}
		target, err := parseStringArg(argsMap, "target", true)
		if err != nil {
			return errorResult(err)
		}
		linkText, err := parseStringArg(argsMap, "link_text", false)
		if err != nil {
			return errorResult(err)
		}

		sourceNote, err := store.Get(source)
		if err != nil {
			return errorResult(err)
		}
		if sourceNote == nil {
			return errorResult(notes.ErrNoteNotFound(source))
		}
		targetNote, err := store.Get(target)
		if err != nil {
			return errorResult(err)
		}
		if targetNote == nil {
			return errorResult(notes.ErrNoteNotFound(target))
		}

		wikilink := "[[" + targetNote.ID + "]]"
		if linkText != "" {
			wikilink = "[[" + targetNote.ID + "|" + linkText + "]]"
		}

		body := sourceNote.Content
		if body != "" && body[len(body)-1] != '\n' {
			body += "\n"
		}
		body += wikilink + "\n"

		updated, err := store.UpdateContent(sourceNote.ID, body, sourceNote.ContentHash)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{
			"note": updated.Info(),
			"link": wikilink,
		})
	}
}

// AddGetNoteLinksTool registers the get_note_links tool.
func AddGetNoteLinksTool(s *server.MCPServer, store *notes.Store, graph *links.Graph) {
	tool := mcp.NewTool(
		"get_note_links",
		mcp.WithDescription("Fetch all link edges of a note: outgoing wikilinks, outgoing external URLs, and incoming backlinks."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Note identifier")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		identifier, err := parseStringArg(request.GetArguments(), "identifier", true)
		if err != nil {
			return errorResult(err)
		}
		n, err := store.Get(identifier)
		if err != nil {
			return errorResult(err)
		}
		if n == nil {
			return errorResult(notes.ErrNoteNotFound(identifier))
		}
		noteLinks, err := graph.LinksOf(n.ID)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{"id": n.ID, "links": noteLinks})
	})
}

// AddGetBacklinksTool registers the get_backlinks tool.
func AddGetBacklinksTool(s *server.MCPServer, store *notes.Store, graph *links.Graph) {
	tool := mcp.NewTool(
		"get_backlinks",
		mcp.WithDescription("Fetch the notes that link at the given note."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Note identifier")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		identifier, err := parseStringArg(request.GetArguments(), "identifier", true)
		if err != nil {
			return errorResult(err)
		}
		n, err := store.Get(identifier)
		if err != nil {
			return errorResult(err)
		}
		if n == nil {
			return errorResult(notes.ErrNoteNotFound(identifier))
		}
		backlinks, err := graph.Backlinks(n.ID)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{
			"id":        n.ID,
			"backlinks": backlinks,
			"count":     len(backlinks),
		})
	})
}

// AddFindBrokenLinksTool registers the find_broken_links tool.
func AddFindBrokenLinksTool(s *server.MCPServer, graph *links.Graph) {
	tool := mcp.NewTool(
		"find_broken_links",
		mcp.WithDescription("List every wikilink whose target cannot be resolved to an existing note."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createFindBrokenLinksHandler(graph))
}

func createFindBrokenLinksHandler(graph *links.Graph) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		broken, err := graph.FindBroken()
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{
			"broken_links": broken,
			"count":        len(broken),
		})
	}
}

// AddSearchByLinksTool registers the search_by_links tool.
func AddSearchByLinksTool(s *server.MCPServer, graph *links.Graph) {
	tool := mcp.NewTool(
		"search_by_links",
		mcp.WithDescription("Find notes by their link edges: notes linking at given targets, notes linked from given sources, notes pointing at external domains, or notes with broken links. Criteria combine with OR; no criteria means no results."),
		mcp.WithArray("has_links_to",
			mcp.Description("Note ids; match notes that link at any of them")),
		mcp.WithArray("linked_from",
			mcp.Description("Note ids; match notes linked from any of them")),
		mcp.WithArray("external_domains",
			mcp.Description("Domains like 'example.com'; match notes with external links there")),
		mcp.WithBoolean("broken_links",
			mcp.Description("Match notes containing broken wikilinks")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap := request.GetArguments()
		criteria := &links.SearchCriteria{
			HasLinksTo:      parseArrayArg(argsMap, "has_links_to"),
			LinkedFrom:      parseArrayArg(argsMap, "linked_from"),
			ExternalDomains: parseArrayArg(argsMap, "external_domains"),
			BrokenLinks:     parseBoolArg(argsMap, "broken_links", false),
		}
		rows, err := graph.SearchByLinks(criteria)
		if err != nil {
			return errorResult(err)
		}
		results := make([]map[string]any, len(rows))
		for i, row := range rows {
			results[i] = map[string]any{
				"id":       row.ID,
				"title":    row.Title,
				"type":     row.Type,
				"filename": row.Filename,
				"path":     row.Path,
				"created":  row.Created,
				"updated":  row.Updated,
			}
		}
		return textResult(map[string]any{"results": results, "total": len(results)})
	})
}

// AddMigrateLinksTool registers the migrate_links tool.
func AddMigrateLinksTool(s *server.MCPServer, graph *links.Graph) {
	tool := mcp.NewTool(
		"migrate_links",
		mcp.WithDescription("One-shot backfill of the link tables for notes indexed before link tracking. Refuses to run over populated link tables unless force=true."),
		mcp.WithBoolean("force",
			mcp.Description("Re-derive links even when the link tables already have rows")),
	)
	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		force := parseBoolArg(request.GetArguments(), "force", false)
		report, err := graph.Migrate(force)
		if err != nil {
			return errorResult(err)
		}
		return textResult(map[string]any{
			"total_notes":   report.TotalNotes,
			"processed":     report.Processed,
			"errors":        report.Errors,
			"error_details": report.ErrorDetails,
		})
	})
}
