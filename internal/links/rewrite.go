package links

import "strings"

// RewriteTargets rewrites wikilinks in body that reference oldID by id form
// (with or without the .md suffix) to point at newID. Title-form links are
// left alone; they keep following the note through the link table. Returns
// the new body and whether anything changed.
func RewriteTargets(body, oldID, newID string) (string, bool) {
	oldBare := strings.TrimSuffix(oldID, ".md")
	newBare := strings.TrimSuffix(newID, ".md")

	replacements := [][2]string{
		{"[[" + oldID + "]]", "[[" + newID + "]]"},
		{"[[" + oldID + "|", "[[" + newID + "|"},
		{"[[" + oldBare + "]]", "[[" + newBare + "]]"},
		{"[[" + oldBare + "|", "[[" + newBare + "|"},
	}

	changed := false
	for _, r := range replacements {
		if strings.Contains(body, r[0]) {
			body = strings.ReplaceAll(body, r[0], r[1])
			changed = true
		}
	}
	return body, changed
}
