package uid

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := UID(10)
		assert.Len(t, id, 10)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		for _, c := range id {
			assert.Contains(t, letters, string(c))
		}
	}
}

func TestUUID(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, re, UUID())
	}
}

func TestHex32(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{32}$`)
	id := Hex32()
	assert.Regexp(t, re, id)
	assert.NotEqual(t, id, Hex32())
}
