package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	workspaceRoot string
}

// NewLoader creates a configuration loader for the given workspace root.
// The config file lives at <root>/.flint-note/config.yml.
func NewLoader(workspaceRoot string) Loader {
	return &loader{workspaceRoot: workspaceRoot}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (FLINT_NOTE_*)
// 2. Config file (.flint-note/config.yml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.workspaceRoot, ".flint-note")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("FLINT_NOTE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("default_note_type")
	v.BindEnv("mcp_server.log_level")
	v.BindEnv("mcp_server.log_file")
	v.BindEnv("search.index_enabled")
	v.BindEnv("search.max_results")
	v.BindEnv("deletion.require_confirmation")
	v.BindEnv("deletion.create_backups")
	v.BindEnv("deletion.backup_path")
	v.BindEnv("deletion.allow_note_type_deletion")
	v.BindEnv("deletion.max_bulk_delete")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - defaults + env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// The backup path defaults relative to the metadata directory.
	if cfg.Deletion.BackupPath == "" {
		cfg.Deletion.BackupPath = filepath.Join(configDir, "backups")
	} else if !filepath.IsAbs(cfg.Deletion.BackupPath) {
		cfg.Deletion.BackupPath = filepath.Join(l.workspaceRoot, cfg.Deletion.BackupPath)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("version", defaults.Version)
	v.SetDefault("default_note_type", defaults.DefaultNoteType)

	v.SetDefault("mcp_server.port", defaults.MCPServer.Port)
	v.SetDefault("mcp_server.log_level", defaults.MCPServer.LogLevel)
	v.SetDefault("mcp_server.log_file", defaults.MCPServer.LogFile)

	v.SetDefault("search.index_enabled", defaults.Search.IndexEnabled)
	v.SetDefault("search.rebuild_on_startup", defaults.Search.RebuildOnStartup)
	v.SetDefault("search.max_results", defaults.Search.MaxResults)

	v.SetDefault("note_types.auto_create_directories", defaults.NoteTypes.AutoCreateDirectories)
	v.SetDefault("note_types.require_descriptions", defaults.NoteTypes.RequireDescriptions)
	v.SetDefault("note_types.allow_custom_templates", defaults.NoteTypes.AllowCustomTemplates)

	v.SetDefault("features.auto_linking", defaults.Features.AutoLinking)
	v.SetDefault("features.auto_tagging", defaults.Features.AutoTagging)

	v.SetDefault("security.restrict_to_workspace", defaults.Security.RestrictToWorkspace)
	v.SetDefault("security.max_file_size", defaults.Security.MaxFileSize)
	v.SetDefault("security.allowed_extensions", defaults.Security.AllowedExtensions)

	v.SetDefault("deletion.require_confirmation", defaults.Deletion.RequireConfirmation)
	v.SetDefault("deletion.create_backups", defaults.Deletion.CreateBackups)
	v.SetDefault("deletion.backup_path", defaults.Deletion.BackupPath)
	v.SetDefault("deletion.allow_note_type_deletion", defaults.Deletion.AllowNoteTypeDeletion)
	v.SetDefault("deletion.max_bulk_delete", defaults.Deletion.MaxBulkDelete)
}

// LoadFromDir loads configuration for the workspace rooted at dir.
func LoadFromDir(dir string) (*Config, error) {
	return NewLoader(dir).Load()
}
