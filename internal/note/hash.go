package note

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashPrefix marks a content hash as SHA-256.
const HashPrefix = "sha256:"

// HashContent fingerprints the exact bytes written to disk for a note,
// frontmatter included. Used only for optimistic concurrency.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// IsHash reports whether s has the prefixed sha256 form.
func IsHash(s string) bool {
	return strings.HasPrefix(s, HashPrefix) && len(s) == len(HashPrefix)+64
}
