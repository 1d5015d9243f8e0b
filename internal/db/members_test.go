package db

import (
	"context"
	"testing"

	"crewtime/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMember(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	created, err := database.EnsureMember(ctx, model.RoleAudio, "山田")
	require.NoError(t, err)
	assert.True(t, created)

	// Same person in another spelling is not registered twice.
	created, err = database.EnsureMember(ctx, model.RoleAudio, "山田 ")
	require.NoError(t, err)
	assert.False(t, created)

	// Same name under a different role is a distinct roster entry.
	created, err = database.EnsureMember(ctx, model.RoleLighting, "山田")
	require.NoError(t, err)
	assert.True(t, created)

	// Blank names are ignored.
	created, err = database.EnsureMember(ctx, model.RoleAudio, "   ")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestListActiveMembers(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	for _, n := range []string{"横田", "浅井", "大石"} {
		_, err := database.EnsureMember(ctx, model.RoleVideo, n)
		require.NoError(t, err)
	}
	_, err := database.EnsureMember(ctx, model.RoleAudio, "山田")
	require.NoError(t, err)

	members, err := database.ListActiveMembers(ctx, model.RoleVideo)
	require.NoError(t, err)
	require.Len(t, members, 3)
	for _, m := range members {
		assert.Equal(t, model.RoleVideo, m.Role)
		assert.True(t, m.Active)
	}
}

func TestDeactivateMember(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	_, err := database.EnsureMember(ctx, model.RoleAudio, "山田")
	require.NoError(t, err)

	members, err := database.ListActiveMembers(ctx, model.RoleAudio)
	require.NoError(t, err)
	require.Len(t, members, 1)

	require.NoError(t, database.DeactivateMember(ctx, members[0].ID))

	members, err = database.ListActiveMembers(ctx, model.RoleAudio)
	require.NoError(t, err)
	assert.Empty(t, members)

	assert.ErrorIs(t, database.DeactivateMember(ctx, "missing"), ErrNotFound)
}
