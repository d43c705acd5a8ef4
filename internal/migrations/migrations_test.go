package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending(t *testing.T) {
	all := Pending(nil)
	require.Len(t, all, len(allMigrations))
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}

	rest := Pending(map[string]bool{all[0].ID: true})
	require.Len(t, rest, len(all)-1)
	assert.NotEqual(t, all[0].ID, rest[0].ID)

	done := make(map[string]bool)
	for _, m := range all {
		done[m.ID] = true
	}
	assert.Empty(t, Pending(done))
}
