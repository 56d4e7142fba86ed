package config

import "fmt"

var validLogLevels = map[string]bool{
	"": true, "trace": true, "debug": true, "info": true,
	"warn": true, "error": true,
}

// Validate checks a loaded configuration for values the engine cannot run
// with.
func Validate(cfg *Config) error {
	if cfg.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", cfg.Search.MaxResults)
	}
	if cfg.Deletion.MaxBulkDelete <= 0 {
		return fmt.Errorf("deletion.max_bulk_delete must be positive, got %d", cfg.Deletion.MaxBulkDelete)
	}
	if cfg.Security.MaxFileSize <= 0 {
		return fmt.Errorf("security.max_file_size must be positive, got %d", cfg.Security.MaxFileSize)
	}
	if !validLogLevels[cfg.MCPServer.LogLevel] {
		return fmt.Errorf("mcp_server.log_level %q is not a known level", cfg.MCPServer.LogLevel)
	}
	return nil
}
