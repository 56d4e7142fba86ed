package config

// Config is the complete workspace configuration, loaded from
// .flint-note/config.yml with environment variable overrides.
type Config struct {
	Version         string          `yaml:"version" mapstructure:"version"`
	WorkspaceRoot   string          `yaml:"workspace_root" mapstructure:"workspace_root"`
	DefaultNoteType string          `yaml:"default_note_type" mapstructure:"default_note_type"`
	MCPServer       MCPServerConfig `yaml:"mcp_server" mapstructure:"mcp_server"`
	Search          SearchConfig    `yaml:"search" mapstructure:"search"`
	NoteTypes       NoteTypesConfig `yaml:"note_types" mapstructure:"note_types"`
	Features        FeaturesConfig  `yaml:"features" mapstructure:"features"`
	Security        SecurityConfig  `yaml:"security" mapstructure:"security"`
	Deletion        DeletionConfig  `yaml:"deletion" mapstructure:"deletion"`
}

// MCPServerConfig configures the stdio server process.
type MCPServerConfig struct {
	Port     int    `yaml:"port" mapstructure:"port"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	LogFile  string `yaml:"log_file" mapstructure:"log_file"`
}

// SearchConfig configures the derived index.
type SearchConfig struct {
	IndexEnabled     bool `yaml:"index_enabled" mapstructure:"index_enabled"`
	RebuildOnStartup bool `yaml:"rebuild_on_startup" mapstructure:"rebuild_on_startup"`
	MaxResults       int  `yaml:"max_results" mapstructure:"max_results"`
}

// NoteTypesConfig configures note type management behaviour.
type NoteTypesConfig struct {
	AutoCreateDirectories bool `yaml:"auto_create_directories" mapstructure:"auto_create_directories"`
	RequireDescriptions   bool `yaml:"require_descriptions" mapstructure:"require_descriptions"`
	AllowCustomTemplates  bool `yaml:"allow_custom_templates" mapstructure:"allow_custom_templates"`
}

// FeaturesConfig gates optional behaviours.
type FeaturesConfig struct {
	AutoLinking bool `yaml:"auto_linking" mapstructure:"auto_linking"`
	AutoTagging bool `yaml:"auto_tagging" mapstructure:"auto_tagging"`
}

// SecurityConfig bounds filesystem access.
type SecurityConfig struct {
	RestrictToWorkspace bool     `yaml:"restrict_to_workspace" mapstructure:"restrict_to_workspace"`
	MaxFileSize         int64    `yaml:"max_file_size" mapstructure:"max_file_size"`
	AllowedExtensions   []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
}

// DeletionConfig drives the deletion engine's policies.
type DeletionConfig struct {
	RequireConfirmation   bool   `yaml:"require_confirmation" mapstructure:"require_confirmation"`
	CreateBackups         bool   `yaml:"create_backups" mapstructure:"create_backups"`
	BackupPath            string `yaml:"backup_path" mapstructure:"backup_path"`
	AllowNoteTypeDeletion bool   `yaml:"allow_note_type_deletion" mapstructure:"allow_note_type_deletion"`
	MaxBulkDelete         int    `yaml:"max_bulk_delete" mapstructure:"max_bulk_delete"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Version:         "1.0",
		DefaultNoteType: "general",
		MCPServer: MCPServerConfig{
			LogLevel: "info",
		},
		Search: SearchConfig{
			IndexEnabled:     true,
			RebuildOnStartup: false,
			MaxResults:       100,
		},
		NoteTypes: NoteTypesConfig{
			AutoCreateDirectories: true,
			RequireDescriptions:   false,
			AllowCustomTemplates:  true,
		},
		Features: FeaturesConfig{
			AutoLinking: true,
		},
		Security: SecurityConfig{
			RestrictToWorkspace: true,
			MaxFileSize:         10 * 1024 * 1024,
			AllowedExtensions:   []string{".md"},
		},
		Deletion: DeletionConfig{
			RequireConfirmation:   true,
			CreateBackups:         true,
			AllowNoteTypeDeletion: true,
			MaxBulkDelete:         50,
		},
	}
}
