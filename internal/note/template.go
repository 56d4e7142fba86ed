package note

import (
	"strings"
	"time"
)

// RenderTemplate substitutes the known template variables in a note type
// template. Substitution is plain string replacement; unknown {{variables}}
// pass through verbatim so template sources round-trip unchanged.
func RenderTemplate(template, title, typeName, content string, now time.Time) string {
	r := strings.NewReplacer(
		"{{title}}", title,
		"{{type}}", typeName,
		"{{date}}", now.UTC().Format("2006-01-02"),
		"{{time}}", now.UTC().Format("15:04:05"),
		"{{content}}", content,
	)
	return r.Replace(template)
}
