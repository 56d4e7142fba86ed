package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_WikiLinks(t *testing.T) {
	body := "See [[projects/my-project]] and [[Some Title|the docs]].\n\nAlso [[general/other.md]]."
	result := Extract(body)

	require.Len(t, result.WikiLinks, 3)
	assert.Equal(t, WikiLink{Target: "projects/my-project", LineNumber: 1}, result.WikiLinks[0])
	assert.Equal(t, WikiLink{Target: "Some Title", Text: "the docs", LineNumber: 1}, result.WikiLinks[1])
	assert.Equal(t, WikiLink{Target: "general/other.md", LineNumber: 3}, result.WikiLinks[2])
}

func TestExtract_DuplicatesEmittedPerOccurrence(t *testing.T) {
	result := Extract("[[a]]\n[[a]]\n")
	require.Len(t, result.WikiLinks, 2)
	assert.Equal(t, 1, result.WikiLinks[0].LineNumber)
	assert.Equal(t, 2, result.WikiLinks[1].LineNumber)
}

func TestExtract_MarkdownLinksAndImages(t *testing.T) {
	body := "A [site](https://example.com/page) and an ![alt](https://example.com/img.png)."
	result := Extract(body)

	require.Len(t, result.External, 2)
	assert.Equal(t, LinkTypeImage, result.External[0].LinkType)
	assert.Equal(t, "https://example.com/img.png", result.External[0].URL)
	assert.Equal(t, "alt", result.External[0].Title)

	assert.Equal(t, LinkTypeURL, result.External[1].LinkType)
	assert.Equal(t, "https://example.com/page", result.External[1].URL)
	assert.Equal(t, "site", result.External[1].Title)
}

func TestExtract_BareURL(t *testing.T) {
	result := Extract("go read https://example.com/a, then stop")
	require.Len(t, result.External, 1)
	assert.Equal(t, "https://example.com/a", result.External[0].URL)
	assert.Equal(t, LinkTypeURL, result.External[0].LinkType)
	assert.Empty(t, result.External[0].Title)
}

func TestExtract_BareURLNotDoubleCountedInMarkdownLink(t *testing.T) {
	result := Extract("[x](https://example.com/only)")
	require.Len(t, result.External, 1)
}

func TestExtract_Embed(t *testing.T) {
	result := Extract("![[general/diagram.md]]")
	require.Len(t, result.External, 1)
	assert.Equal(t, LinkTypeEmbed, result.External[0].LinkType)
	assert.Equal(t, "general/diagram.md", result.External[0].URL)
	assert.Empty(t, result.WikiLinks, "an embed is not a wikilink")
}

func TestExtract_Empty(t *testing.T) {
	result := Extract("")
	assert.Empty(t, result.WikiLinks)
	assert.Empty(t, result.External)
}

func TestRewriteTargets(t *testing.T) {
	body := "see [[projects/my-project]] and [[projects/my-project.md|docs]] and [[My Project]]"
	out, changed := RewriteTargets(body, "projects/my-project.md", "completed/my-project.md")

	assert.True(t, changed)
	assert.Contains(t, out, "[[completed/my-project]]")
	assert.Contains(t, out, "[[completed/my-project.md|docs]]")
	// Title-form links are untouched.
	assert.Contains(t, out, "[[My Project]]")
	assert.NotContains(t, out, "[[projects/")
}

func TestRewriteTargets_NoMatch(t *testing.T) {
	out, changed := RewriteTargets("nothing here", "a/b.md", "c/b.md")
	assert.False(t, changed)
	assert.Equal(t, "nothing here", out)
}
