package uuid

import (
	"testing"

	guuid "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := New()
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate operation id %s", id)
		seen[id] = true

		parsed, err := guuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, guuid.Version(4), parsed.Version())
	}
}
