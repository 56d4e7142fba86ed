package note

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	out := RenderTemplate(
		"# {{title}}\n\nType: {{type}} on {{date}} at {{time}}\n\n{{content}}\n",
		"My Note", "general", "hello", now)

	assert.Contains(t, out, "# My Note")
	assert.Contains(t, out, "Type: general on 2026-03-14 at 15:09:26")
	assert.Contains(t, out, "hello")
}

func TestRenderTemplate_UnknownVariablesKept(t *testing.T) {
	out := RenderTemplate("{{title}} {{custom}}", "X", "general", "", time.Now())
	assert.Equal(t, "X {{custom}}", out)
}
