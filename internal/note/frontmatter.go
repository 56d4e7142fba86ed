package note

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// ParseFrontmatter splits a note file's full text into (metadata, body).
// Files that do not begin with a --- line are all body. A YAML parse failure
// is soft: the original text is returned untouched as the body so a
// hand-edited file never becomes unreadable.
func ParseFrontmatter(text string) (map[string]any, string) {
	if !strings.HasPrefix(text, frontmatterDelimiter+"\n") {
		return map[string]any{}, text
	}

	rest := text[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter+"\n")
	var body string
	switch {
	case end >= 0:
		body = rest[end+len(frontmatterDelimiter)+2:]
	case strings.HasSuffix(rest, "\n"+frontmatterDelimiter):
		// A file that is nothing but frontmatter.
		end = len(rest) - len(frontmatterDelimiter) - 1
	default:
		return map[string]any{}, text
	}

	raw := rest[:end]

	metadata := map[string]any{}
	if err := yaml.Unmarshal([]byte(raw), &metadata); err != nil {
		return map[string]any{}, text
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return metadata, body
}

// systemKeyOrder fixes the leading key order of serialised frontmatter.
// Remaining keys follow sorted lexicographically.
var systemKeyOrder = []string{"title", "type", "filename", "created", "updated"}

// SerializeFrontmatter renders metadata and body back into file text with a
// deterministic key order, so identical notes always hash identically.
func SerializeFrontmatter(metadata map[string]any, body string) string {
	var b strings.Builder
	b.WriteString(frontmatterDelimiter)
	b.WriteByte('\n')

	seen := map[string]bool{}
	for _, key := range systemKeyOrder {
		if v, ok := metadata[key]; ok {
			writeYAMLEntry(&b, key, v)
			seen[key] = true
		}
	}

	rest := make([]string, 0, len(metadata))
	for key := range metadata {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		writeYAMLEntry(&b, key, metadata[key])
	}

	b.WriteString(frontmatterDelimiter)
	b.WriteByte('\n')
	b.WriteString(body)
	return b.String()
}

// writeYAMLEntry emits one top-level key. Scalar strings are double-quoted
// with embedded quotes escaped; other values round-trip through yaml.Marshal
// and are indented under the key when they are mappings or span lines.
func writeYAMLEntry(b *strings.Builder, key string, value any) {
	switch v := value.(type) {
	case string:
		fmt.Fprintf(b, "%s: \"%s\"\n", key, strings.ReplaceAll(v, `"`, `\"`))
	case nil:
		fmt.Fprintf(b, "%s: null\n", key)
	case bool, int, int64, float64, uint64:
		fmt.Fprintf(b, "%s: %v\n", key, v)
	default:
		out, err := yaml.Marshal(v)
		if err != nil {
			fmt.Fprintf(b, "%s: null\n", key)
			return
		}
		text := strings.TrimRight(string(out), "\n")
		_, isMap := v.(map[string]any)
		if !isMap && !strings.Contains(text, "\n") && !strings.HasPrefix(text, "- ") {
			fmt.Fprintf(b, "%s: %s\n", key, text)
			return
		}
		fmt.Fprintf(b, "%s:\n", key)
		for _, line := range strings.Split(text, "\n") {
			fmt.Fprintf(b, "  %s\n", line)
		}
	}
}
