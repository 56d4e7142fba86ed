package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flint-note/flint-note/internal/links"
	"github.com/flint-note/flint-note/internal/notetypes"
	"github.com/flint-note/flint-note/internal/storage"
)

// Resource URIs advertised by the server.
const (
	ResourceTypes  = "flint-note://types"
	ResourceRecent = "flint-note://recent"
	ResourceStats  = "flint-note://stats"
)

const recentResourceLimit = 20

// AddResources registers the flint-note:// resources.
func AddResources(s *server.MCPServer, db *storage.DB, manager *notetypes.Manager, graph *links.Graph) {
	s.AddResource(mcp.Resource{
		URI:         ResourceTypes,
		Name:        "Note types",
		Description: "Every note type with its description and metadata schema",
		MIMEType:    "application/json",
	}, createTypesResourceHandler(manager))

	s.AddResource(mcp.Resource{
		URI:         ResourceRecent,
		Name:        "Recent notes",
		Description: "The most recently updated notes",
		MIMEType:    "application/json",
	}, createRecentResourceHandler(db))

	s.AddResource(mcp.Resource{
		URI:         ResourceStats,
		Name:        "Workspace statistics",
		Description: "Note counts per type, link totals and broken link count",
		MIMEType:    "application/json",
	}, createStatsResourceHandler(db, graph))
}

func jsonResourceContents(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func createTypesResourceHandler(manager *notetypes.Manager) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		infos, err := manager.List()
		if err != nil {
			return nil, err
		}
		return jsonResourceContents(ResourceTypes, map[string]any{
			"note_types": infos,
			"total":      len(infos),
		})
	}
}

func createRecentResourceHandler(db *storage.DB) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		rows, err := storage.RecentNotes(db.RO(), recentResourceLimit)
		if err != nil {
			return nil, err
		}
		recent := make([]map[string]any, len(rows))
		for i, row := range rows {
			recent[i] = map[string]any{
				"id":      row.ID,
				"title":   row.Title,
				"type":    row.Type,
				"updated": row.Updated,
			}
		}
		return jsonResourceContents(ResourceRecent, map[string]any{
			"notes": recent,
			"total": len(recent),
		})
	}
}

func createStatsResourceHandler(db *storage.DB, graph *links.Graph) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		total, err := storage.CountNotes(db.RO())
		if err != nil {
			return nil, err
		}
		perType, err := storage.CountNotesByType(db.RO())
		if err != nil {
			return nil, err
		}
		internal, external, err := storage.CountLinkRows(db.RO())
		if err != nil {
			return nil, err
		}
		broken, err := graph.FindBroken()
		if err != nil {
			return nil, err
		}
		return jsonResourceContents(ResourceStats, map[string]any{
			"total_notes":    total,
			"notes_per_type": perType,
			"internal_links": internal,
			"external_links": external,
			"broken_links":   len(broken),
		})
	}
}
