package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatic(t *testing.T) {
	_, ok := Static("").Token()
	assert.False(t, ok)

	token, ok := Static("abc").Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}

func TestHolder(t *testing.T) {
	h := NewHolder("")
	_, ok := h.Token()
	assert.False(t, ok)

	h.Set("user-1")
	token, ok := h.Token()
	assert.True(t, ok)
	assert.Equal(t, "user-1", token)

	h.Clear()
	_, ok = h.Token()
	assert.False(t, ok)
}
