package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/flint-note/flint-note/internal/config"
	"github.com/flint-note/flint-note/internal/deletion"
	"github.com/flint-note/flint-note/internal/links"
	"github.com/flint-note/flint-note/internal/notes"
	"github.com/flint-note/flint-note/internal/notetypes"
	"github.com/flint-note/flint-note/internal/search"
	"github.com/flint-note/flint-note/internal/storage"
	"github.com/flint-note/flint-note/internal/workspace"
)

// serverName and serverVersion identify the server in the MCP handshake.
const (
	serverName    = "flint-note"
	serverVersion = "1.0.0"
)

// Server wires the note engine to the MCP protocol and manages its
// lifecycle.
type Server struct {
	cfg     *config.Config
	ws      *workspace.Workspace
	db      *storage.DB
	store   *notes.Store
	types   *notetypes.Manager
	searchS *search.Service
	graph   *links.Graph
	engine  *deletion.Engine
	watcher *search.Watcher
	log     zerolog.Logger
	mcp     *server.MCPServer
}

// NewServer builds the whole engine for one workspace: database, stores,
// search, link graph, deletion engine, and the tool/resource surface.
func NewServer(ws *workspace.Workspace, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	db, err := storage.Open(ws.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	types := notetypes.NewManager(ws, log)
	store := notes.NewStore(ws, db, types, cfg, log)
	searchSvc := search.NewService(ws, db, cfg, log)
	graph := links.NewGraph(db)
	engine := deletion.NewEngine(ws, db, store, types, cfg, log)

	if err := searchSvc.RebuildIfNeeded(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare search index: %w", err)
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
	)

	AddNoteTools(mcpServer, store)
	AddNoteTypeTools(mcpServer, types)
	AddSearchTools(mcpServer, searchSvc)
	AddLinkTools(mcpServer, store, graph)
	AddDeletionTools(mcpServer, engine)
	AddResources(mcpServer, db, types, graph)

	s := &Server{
		cfg:     cfg,
		ws:      ws,
		db:      db,
		store:   store,
		types:   types,
		searchS: searchSvc,
		graph:   graph,
		engine:  engine,
		log:     log.With().Str("component", "mcp").Logger(),
		mcp:     mcpServer,
	}

	if cfg.Search.IndexEnabled {
		watcher, err := search.NewWatcher(searchSvc, ws, log)
		if err != nil {
			s.log.Warn().Err(err).Msg("external-edit watcher unavailable; index refreshes on rebuild only")
		} else {
			s.watcher = watcher
		}
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.watcher != nil {
		s.watcher.Start(ctx)
		defer s.watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("workspace", s.ws.Root()).Msg("serving MCP on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-sigCh:
		s.log.Info().Msg("received shutdown signal, stopping")
		cancel()
		return nil
	case err := <-errCh:
		cancel()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases all resources.
func (s *Server) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
