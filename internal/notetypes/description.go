package notetypes

import (
	"fmt"
	"regexp"
	"strings"
)

// DescriptionFilename is the well-known file inside every note type
// directory that documents the type for agents.
const DescriptionFilename = "_description.md"

// TemplateFilename is the optional note template inside a type directory.
const TemplateFilename = "_template.md"

// FieldSpec is one entry of a note type's metadata schema.
type FieldSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string|number|boolean|date|array
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Description is the structured form of a _description.md file.
type Description struct {
	Name         string      `json:"name"`
	Purpose      string      `json:"purpose"`
	Instructions []string    `json:"instructions"`
	Schema       []FieldSpec `json:"schema"`
}

// schemaLinePattern matches "- key (type, required): description" and its
// optional variants.
var schemaLinePattern = regexp.MustCompile(`^-\s*(\S+)\s*\(([^),]+)(?:,\s*(required|optional))?\)\s*(?::\s*(.*))?$`)

// FormatDescription renders the structured form into the well-known markdown
// layout. ParseDescription reads it back.
func FormatDescription(d *Description) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Name)

	b.WriteString("## Purpose\n")
	if d.Purpose != "" {
		b.WriteString(d.Purpose)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	b.WriteString("## Agent Instructions\n")
	for _, instr := range d.Instructions {
		fmt.Fprintf(&b, "- %s\n", instr)
	}
	b.WriteByte('\n')

	b.WriteString("## Metadata Schema\n")
	for _, f := range d.Schema {
		req := "optional"
		if f.Required {
			req = "required"
		}
		if f.Description != "" {
			fmt.Fprintf(&b, "- %s (%s, %s): %s\n", f.Name, f.Type, req, f.Description)
		} else {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", f.Name, f.Type, req)
		}
	}

	return b.String()
}

// ParseDescription reads a _description.md file back into structured form.
// Unknown sections are ignored; a malformed schema line is skipped rather
// than failing the whole parse.
func ParseDescription(text string) *Description {
	d := &Description{Instructions: []string{}, Schema: []FieldSpec{}}

	var section string
	var purpose []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t")
		switch {
		case strings.HasPrefix(line, "# ") && d.Name == "":
			d.Name = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "## "):
			section = strings.ToLower(strings.TrimSpace(line[3:]))
		case section == "purpose":
			if strings.TrimSpace(line) != "" {
				purpose = append(purpose, strings.TrimSpace(line))
			}
		case section == "agent instructions":
			if strings.HasPrefix(line, "- ") {
				d.Instructions = append(d.Instructions, strings.TrimSpace(line[2:]))
			}
		case section == "metadata schema":
			if m := schemaLinePattern.FindStringSubmatch(line); m != nil {
				d.Schema = append(d.Schema, FieldSpec{
					Name:        m[1],
					Type:        strings.TrimSpace(m[2]),
					Required:    m[3] == "required",
					Description: strings.TrimSpace(m[4]),
				})
			}
		}
	}
	d.Purpose = strings.Join(purpose, "\n")
	return d
}
