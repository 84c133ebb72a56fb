// Package uuid includes tests for the run ID generator.
package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRawIDProducesUniqueV7(t *testing.T) {
	t.Parallel()

	gen := New()
	seen := make(map[goUUID.UUID]struct{}, 64)
	for i := 0; i < 64; i++ {
		id, err := gen.NewRawID()
		require.NoError(t, err)
		assert.Equal(t, goUUID.Version(7), id.Version())

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
