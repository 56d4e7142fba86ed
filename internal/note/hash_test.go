package note

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashContent(t *testing.T) {
	h := HashContent([]byte("hello"))
	// SHA-256("hello"), prefixed.
	assert.Equal(t, "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", h)
	assert.True(t, IsHash(h))
}

func TestHashContent_DiffersByContent(t *testing.T) {
	assert.NotEqual(t, HashContent([]byte("a")), HashContent([]byte("b")))
}

func TestIsHash(t *testing.T) {
	assert.False(t, IsHash("deadbeef"))
	assert.False(t, IsHash("sha256:short"))
}
