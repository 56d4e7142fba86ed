package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MetaDirName is the reserved subdirectory that holds config, the search
// database, and backup staging. It is never a valid note type.
const MetaDirName = ".flint-note"

var typeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Windows device names are rejected as type names so a vault stays portable.
var reservedNames = map[string]bool{
	".": true, "..": true, MetaDirName: true,
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
}

// Workspace anchors all note paths under a single root directory.
type Workspace struct {
	root string
}

// New resolves root to an absolute path and ensures the root and its
// .flint-note metadata directory exist.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, MetaDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", MetaDirName, err)
	}

	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// MetaDir returns the absolute path of the .flint-note directory.
func (w *Workspace) MetaDir() string {
	return filepath.Join(w.root, MetaDirName)
}

// DatabasePath returns the location of the derived SQLite index.
func (w *Workspace) DatabasePath() string {
	return filepath.Join(w.MetaDir(), "db.sqlite")
}

// ConfigPath returns the location of the workspace config file.
func (w *Workspace) ConfigPath() string {
	return filepath.Join(w.MetaDir(), "config.yml")
}

// BackupDir returns the default backup staging directory.
func (w *Workspace) BackupDir() string {
	return filepath.Join(w.MetaDir(), "backups")
}

// ValidTypeName reports whether name is acceptable as a note type directory.
func ValidTypeName(name string) bool {
	if name == "" || !typeNamePattern.MatchString(name) {
		return false
	}
	return !reservedNames[strings.ToLower(name)]
}

// TypeDir returns the absolute directory for a note type. The name is
// validated but the directory is not created.
func (w *Workspace) TypeDir(typeName string) (string, error) {
	if !ValidTypeName(typeName) {
		return "", fmt.Errorf("invalid note type name %q", typeName)
	}
	return filepath.Join(w.root, typeName), nil
}

// EnsureTypeDir creates the note type directory if it does not exist.
func (w *Workspace) EnsureTypeDir(typeName string) (string, error) {
	dir, err := w.TypeDir(typeName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create note type directory: %w", err)
	}
	return dir, nil
}

// TypeDirExists reports whether the note type directory is present.
func (w *Workspace) TypeDirExists(typeName string) bool {
	dir, err := w.TypeDir(typeName)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// ResolvePath joins rel to the root and verifies the result stays inside the
// workspace. Absolute inputs and ../ traversal are rejected.
func (w *Workspace) ResolvePath(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", rel)
	}
	joined := filepath.Join(w.root, rel)
	cleaned := filepath.Clean(joined)
	if cleaned != w.root && !strings.HasPrefix(cleaned, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", rel)
	}
	return cleaned, nil
}

// ListTypeDirs returns the names of all note type directories, sorted by
// name. The metadata directory and hidden entries are skipped.
func (w *Workspace) ListTypeDirs() ([]string, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
