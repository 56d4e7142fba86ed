package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/flint-note/flint-note/internal/config"
	"github.com/flint-note/flint-note/internal/mcp"
	"github.com/flint-note/flint-note/internal/workspace"
)

var (
	workspaceFlag     string
	workspacePathFlag string
)

// rootCmd starts the MCP server; flint-note is a single-purpose binary.
var rootCmd = &cobra.Command{
	Use:   "flint-note",
	Short: "flint-note - a filesystem-backed note store served over MCP",
	Long: `flint-note serves a workspace of markdown notes over the Model Context
Protocol (stdio). Notes are plain files organised in note type directories;
a SQLite index provides full-text and structured search, backlinks and
broken-link detection.

The workspace is taken from --workspace (or --workspace-path), falling back
to the FLINT_NOTE_WORKSPACE environment variable, then the current
directory.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the CLI. It exits 1 on a fatal initialization error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace", "", "workspace root directory")
	rootCmd.PersistentFlags().StringVar(&workspacePathFlag, "workspace-path", "", "workspace root directory (alias of --workspace)")
}

// resolveWorkspaceRoot picks the workspace root: flags first, then the
// deprecated FLINT_NOTE_WORKSPACE variable, then the current directory.
func resolveWorkspaceRoot() (string, error) {
	if workspaceFlag != "" {
		return workspaceFlag, nil
	}
	if workspacePathFlag != "" {
		return workspacePathFlag, nil
	}
	if env := os.Getenv("FLINT_NOTE_WORKSPACE"); env != "" {
		fmt.Fprintln(os.Stderr, "warning: FLINT_NOTE_WORKSPACE is deprecated, use --workspace")
		return env, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return wd, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	root, err := resolveWorkspaceRoot()
	if err != nil {
		return err
	}

	ws, err := workspace.New(root)
	if err != nil {
		return fmt.Errorf("failed to open workspace: %w", err)
	}

	cfg, err := config.LoadFromDir(ws.Root())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "flint-note MCP server\n")
	fmt.Fprintf(os.Stderr, "Workspace: %s\n", ws.Root())
	fmt.Fprintf(os.Stderr, "Database:  %s\n\n", ws.DatabasePath())

	server, err := mcp.NewServer(ws, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	return server.Serve(context.Background())
}

// newLogger builds the process logger. stdout carries the MCP wire, so logs
// go to stderr or the configured log file.
func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.MCPServer.LogLevel)
	if err != nil || cfg.MCPServer.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	var sink *os.File = os.Stderr
	if cfg.MCPServer.LogFile != "" {
		f, err := os.OpenFile(cfg.MCPServer.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log file: %w", err)
		}
		sink = f
	}

	return zerolog.New(sink).Level(level).With().Timestamp().Logger(), nil
}
