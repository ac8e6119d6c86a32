package tilegate_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	"github.com/smallbiznis/tilegrid/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateFollowsGridTier(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	viewer := env.User(t, "viewer@example.com")
	stranger := env.User(t, "stranger@example.com")
	gridID := env.Grid(t, owner.ID, "Team")
	env.Share(t, owner.ID, gridID, viewer.Email, "view")
	tileID := env.TilesOf(t, gridID)[0].ID

	tests := []struct {
		name      string
		userID    snowflake.ID
		canAccess bool
		canEdit   bool
	}{
		{"owner", owner.ID, true, true},
		{"viewer", viewer.ID, true, false},
		{"stranger", stranger.ID, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := env.Gate.CanAccessTileResource(ctx, tc.userID, tileID)
			require.NoError(t, err)
			assert.Equal(t, tc.canAccess, ok)

			ok, err = env.Gate.CanEditTileResource(ctx, tc.userID, tileID)
			require.NoError(t, err)
			assert.Equal(t, tc.canEdit, ok)
		})
	}
}

func TestRequireTileHidesExistence(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridID := env.Grid(t, owner.ID, "Team")
	tileID := env.TilesOf(t, gridID)[0].ID

	got, err := env.Gate.RequireTile(ctx, owner.ID, tileID, permissiondomain.TierEdit)
	require.NoError(t, err)
	assert.Equal(t, gridID, got)

	_, err = env.Gate.RequireTile(ctx, owner.ID, env.Node.Generate(), permissiondomain.TierView)
	assert.ErrorIs(t, err, permissiondomain.ErrForbidden)

	_, err = env.Gate.RequireTile(ctx, 0, tileID, permissiondomain.TierView)
	assert.ErrorIs(t, err, permissiondomain.ErrUnauthenticated)

	ok, err := env.Gate.CanAccessTileResource(ctx, owner.ID, env.Node.Generate())
	require.NoError(t, err)
	assert.False(t, ok)
}
