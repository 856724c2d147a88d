package titles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterIsFirstWriterWins(t *testing.T) {
	r := New()

	assert.True(t, r.Register("page1", "First Title"))
	assert.False(t, r.Register("page1", "Later Resolution"))

	title, ok := r.Get("page1")
	assert.True(t, ok)
	assert.Equal(t, "First Title", title)
}

func TestSerializeReturnsFlatSnapshot(t *testing.T) {
	r := New()
	r.Register("a", "Alpha")
	r.Register("b", "Beta")

	snap := r.Serialize()
	assert.Equal(t, map[string]string{"a": "Alpha", "b": "Beta"}, snap)

	// Mutating the returned map must not affect the registry.
	snap["c"] = "Gamma"
	assert.Equal(t, 2, r.Len())
}
