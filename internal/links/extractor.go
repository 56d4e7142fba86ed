package links

import (
	"regexp"
	"strings"
)

// WikiLink is one [[target|text]] occurrence in a note body.
type WikiLink struct {
	Target     string // note id or free-form title
	Text       string // display text after |, empty when absent
	LineNumber int    // 1-based
}

// External link types.
const (
	LinkTypeURL   = "url"
	LinkTypeImage = "image"
	LinkTypeEmbed = "embed"
)

// ExternalRef is one external URL or embed occurrence in a note body.
type ExternalRef struct {
	URL        string
	Title      string // markdown link text, empty for bare URLs
	LineNumber int    // 1-based
	LinkType   string // url | image | embed
}

// Extraction is everything the extractor found in one body.
type Extraction struct {
	WikiLinks []WikiLink
	External  []ExternalRef
}

var (
	// ![[target]] is the embed form; [[target|text]] the wikilink form.
	embedPattern    = regexp.MustCompile(`!\[\[([^\[\]|]+)\]\]`)
	wikiPattern     = regexp.MustCompile(`\[\[([^\[\]|]+)(?:\|([^\[\]]*))?\]\]`)
	imagePattern    = regexp.MustCompile(`!\[([^\]]*)\]\(([^()\s]+)\)`)
	markdownPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^()\s]+)\)`)
	bareURLPattern  = regexp.MustCompile(`https?://[^\s<>()\[\]"']+`)
)

// Extract parses a note body for wikilinks and external references.
// Every occurrence is emitted, duplicates included; resolution of wikilink
// targets against the note table is the caller's job.
func Extract(body string) *Extraction {
	result := &Extraction{}

	for i, line := range strings.Split(body, "\n") {
		lineNo := i + 1

		// claimed marks byte ranges already consumed by a higher-priority
		// pattern so bare-URL and wikilink scans don't double-report.
		claimed := make([]bool, len(line))
		claim := func(start, end int) {
			for j := start; j < end && j < len(claimed); j++ {
				claimed[j] = true
			}
		}
		isClaimed := func(start int) bool {
			return start < len(claimed) && claimed[start]
		}

		for _, m := range embedPattern.FindAllStringSubmatchIndex(line, -1) {
			target := strings.TrimSpace(line[m[2]:m[3]])
			if target == "" {
				continue
			}
			result.External = append(result.External, ExternalRef{
				URL:        target,
				LineNumber: lineNo,
				LinkType:   LinkTypeEmbed,
			})
			claim(m[0], m[1])
		}

		for _, m := range wikiPattern.FindAllStringSubmatchIndex(line, -1) {
			if isClaimed(m[0]) {
				continue
			}
			target := strings.TrimSpace(line[m[2]:m[3]])
			if target == "" {
				continue
			}
			var text string
			if m[4] >= 0 {
				text = strings.TrimSpace(line[m[4]:m[5]])
			}
			result.WikiLinks = append(result.WikiLinks, WikiLink{
				Target:     target,
				Text:       text,
				LineNumber: lineNo,
			})
			claim(m[0], m[1])
		}

		for _, m := range imagePattern.FindAllStringSubmatchIndex(line, -1) {
			if isClaimed(m[0]) {
				continue
			}
			result.External = append(result.External, ExternalRef{
				URL:        line[m[4]:m[5]],
				Title:      line[m[2]:m[3]],
				LineNumber: lineNo,
				LinkType:   LinkTypeImage,
			})
			claim(m[0], m[1])
		}

		for _, m := range markdownPattern.FindAllStringSubmatchIndex(line, -1) {
			if isClaimed(m[0]) {
				continue
			}
			result.External = append(result.External, ExternalRef{
				URL:        line[m[4]:m[5]],
				Title:      line[m[2]:m[3]],
				LineNumber: lineNo,
				LinkType:   LinkTypeURL,
			})
			claim(m[0], m[1])
		}

		for _, m := range bareURLPattern.FindAllStringIndex(line, -1) {
			if isClaimed(m[0]) {
				continue
			}
			result.External = append(result.External, ExternalRef{
				URL:        strings.TrimRight(line[m[0]:m[1]], ".,;:!?"),
				LineNumber: lineNo,
				LinkType:   LinkTypeURL,
			})
		}
	}

	return result
}
