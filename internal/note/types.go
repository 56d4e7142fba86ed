package note

import (
	"strings"
	"time"
)

// TimestampFormat is ISO-8601 UTC with millisecond precision, used for every
// created/updated value the system writes.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Timestamp formats t in the canonical wire form.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Note is a markdown file with YAML frontmatter, identified by type/slug.md.
type Note struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Filename    string         `json:"filename"`
	Path        string         `json:"path"`
	Content     string         `json:"content"`
	ContentHash string         `json:"content_hash"`
	Created     string         `json:"created"`
	Updated     string         `json:"updated"`
	Metadata    map[string]any `json:"metadata"`
}

// Info is the reply shape of mutating operations: identity plus hash, without
// the full body.
type Info struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	ContentHash string `json:"content_hash"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
}

// Info projects a note down to its Info shape.
func (n *Note) Info() *Info {
	return &Info{
		ID:          n.ID,
		Type:        n.Type,
		Title:       n.Title,
		Filename:    n.Filename,
		Path:        n.Path,
		ContentHash: n.ContentHash,
		Created:     n.Created,
		Updated:     n.Updated,
	}
}

// ProtectedFields are metadata keys owned by the system. Normal metadata
// updates reject them; only the rename/move paths may change them.
var ProtectedFields = map[string]bool{
	"title":    true,
	"filename": true,
	"created":  true,
	"updated":  true,
}

// ID composes a canonical note id from a type and filename.
func ID(typeName, filename string) string {
	return typeName + "/" + filename
}

// SplitID breaks an identifier into (type, filename), tolerating a missing
// .md suffix. ok is false when the identifier is not of the type/slug form.
func SplitID(id string) (typeName, filename string, ok bool) {
	id = strings.TrimSpace(id)
	parts := strings.SplitN(id, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	filename = parts[1]
	if !strings.HasSuffix(filename, ".md") {
		filename += ".md"
	}
	return parts[0], filename, true
}
