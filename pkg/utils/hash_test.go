package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKey(t *testing.T) {
	a := HashKey("https://cdn/img.jpg", "context")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashKey("https://cdn/img.jpg", "context"))
	assert.NotEqual(t, HashKey("ab", "c"), HashKey("a", "bc"))
}
