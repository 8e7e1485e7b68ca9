package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateID_IsRandomUUID(t *testing.T) {
	seen := make(map[string]bool)
	for range 128 {
		id, err := generateID()
		require.NoError(t, err)

		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		require.Equal(t, uuid.Version(4), parsed.Version())
		require.Equal(t, uuid.RFC4122, parsed.Variant())
		require.Equal(t, id, parsed.String(), "ids are stored in canonical lower-case form")

		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
