package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tilegrid/internal/audit/domain"
	channeldomain "github.com/smallbiznis/tilegrid/internal/channel/domain"
	messagedomain "github.com/smallbiznis/tilegrid/internal/message/domain"
	"github.com/smallbiznis/tilegrid/internal/testkit"
	"github.com/smallbiznis/tilegrid/internal/tile/domain"
	"github.com/smallbiznis/tilegrid/internal/tile/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func findTile(t *testing.T, env *testkit.Env, id snowflake.ID) domain.Tile {
	t.Helper()
	tile, err := env.TileRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, tile)
	return *tile
}

func TestHideRequiresEdit(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	guest := env.User(t, "guest@example.com")
	gridID := env.Grid(t, owner.ID, "Board")
	tile := env.TilesOf(t, gridID)[0]

	assert.ErrorIs(t, env.Tiles.Hide(ctx, guest.ID, tile.ID), domain.ErrForbidden)

	env.Share(t, owner.ID, gridID, guest.Email, "view")
	assert.ErrorIs(t, env.Tiles.Hide(ctx, guest.ID, tile.ID), domain.ErrForbidden)
	assert.False(t, findTile(t, env, tile.ID).Hidden)

	env.Share(t, owner.ID, gridID, guest.Email, "edit")
	require.NoError(t, env.Tiles.Hide(ctx, guest.ID, tile.ID))
	assert.Equal(t, domain.StateHidden, findTile(t, env, tile.ID).State())

	// Hiding again is a no-op.
	require.NoError(t, env.Tiles.Hide(ctx, guest.ID, tile.ID))
}

func TestHideUnknownTileIsForbidden(t *testing.T) {
	env := testkit.New(t)
	owner := env.User(t, "owner@example.com")

	err := env.Tiles.Hide(context.Background(), owner.ID, env.Node.Generate())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestHideFromTray(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridID := env.Grid(t, owner.ID, "Board")
	tile := env.TilesOf(t, gridID)[0]

	_, err := env.Tiles.Update(ctx, owner.ID, tile.ID, domain.UpdateRequest{OnGrid: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, domain.StateTray, findTile(t, env, tile.ID).State())

	require.NoError(t, env.Tiles.Hide(ctx, owner.ID, tile.ID))
	assert.Equal(t, domain.StateHidden, findTile(t, env, tile.ID).State())
}

func TestRestoreAllHidden(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridID := env.Grid(t, owner.ID, "Board")
	tiles := env.TilesOf(t, gridID)

	for _, tile := range tiles {
		require.NoError(t, env.Tiles.Hide(ctx, owner.ID, tile.ID))
	}
	visible, err := env.Tiles.List(ctx, owner.ID, gridID, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, visible)

	restored, err := env.Tiles.Restore(ctx, owner.ID, gridID, nil)
	require.NoError(t, err)
	require.Len(t, restored, 2)
	for _, r := range restored {
		assert.False(t, r.Hidden)
		assert.True(t, r.OnGrid)
		assert.Equal(t, domain.FallbackRoomLabel, r.RoomLabel)
	}
	for _, tile := range tiles {
		assert.Equal(t, domain.StatePlaced, findTile(t, env, tile.ID).State())
	}
}

func TestRestoreLabelPrecedence(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridID := env.Grid(t, owner.ID, "Board")

	channel, err := env.Channels.CreateChannel(ctx, owner.ID, channeldomain.CreateChannelRequest{Name: "design", Emoji: "🎨"})
	require.NoError(t, err)
	channelID, err := snowflake.ParseString(channel.ID)
	require.NoError(t, err)

	create := func(req domain.CreateRequest) snowflake.ID {
		resp, err := env.Tiles.Create(ctx, owner.ID, gridID, req)
		require.NoError(t, err)
		id, err := snowflake.ParseString(resp.ID)
		require.NoError(t, err)
		require.NoError(t, env.Tiles.Hide(ctx, owner.ID, id))
		return id
	}

	explicit := create(domain.CreateRequest{Type: "call", X: 0, Y: 4, W: 2, H: 2,
		ChannelID: &channelID, ConversationID: strPtr("conv-1234567890"), CallRoomLabel: strPtr("Standup")})
	viaChannel := create(domain.CreateRequest{Type: "channel", X: 2, Y: 4, W: 2, H: 2,
		ChannelID: &channelID, ConversationID: strPtr("conv-1234567890")})
	viaConversation := create(domain.CreateRequest{Type: "dm", X: 4, Y: 4, W: 2, H: 2,
		ConversationID: strPtr("abcdefghijkl")})
	fallback := create(domain.CreateRequest{Type: "call", X: 6, Y: 4, W: 2, H: 2})

	restored, err := env.Tiles.Restore(ctx, owner.ID, gridID, []snowflake.ID{explicit, viaChannel, viaConversation, fallback})
	require.NoError(t, err)
	require.Len(t, restored, 4)

	labels := map[string]domain.RestoredTile{}
	for _, r := range restored {
		labels[r.ID] = r
	}
	assert.Equal(t, "Standup", labels[explicit.String()].RoomLabel)
	assert.Equal(t, "🎨 #design", labels[viaChannel.String()].RoomLabel)
	require.NotNil(t, labels[viaChannel.String()].ChannelName)
	assert.Equal(t, "design", *labels[viaChannel.String()].ChannelName)
	assert.Equal(t, "DM abcdefgh", labels[viaConversation.String()].RoomLabel)
	assert.Equal(t, "Grid call", labels[fallback.String()].RoomLabel)
}

func TestRestoreRejectsForeignTiles(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridA := env.Grid(t, owner.ID, "A")
	gridB := env.Grid(t, owner.ID, "B")
	tileA := env.TilesOf(t, gridA)[0]
	tileB := env.TilesOf(t, gridB)[0]
	require.NoError(t, env.Tiles.Hide(ctx, owner.ID, tileA.ID))
	require.NoError(t, env.Tiles.Hide(ctx, owner.ID, tileB.ID))

	_, err := env.Tiles.Restore(ctx, owner.ID, gridA, []snowflake.ID{tileA.ID, tileB.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.True(t, findTile(t, env, tileA.ID).Hidden, "no partial restore")

	_, err = env.Tiles.Restore(ctx, owner.ID, gridA, []snowflake.ID{tileA.ID, env.Node.Generate()})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateIsPartial(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridID := env.Grid(t, owner.ID, "Board")
	tile := env.TilesOf(t, gridID)[1]

	resp, err := env.Tiles.Update(ctx, owner.ID, tile.ID, domain.UpdateRequest{X: intPtr(7)})
	require.NoError(t, err)
	assert.Equal(t, 7, resp.X)

	stored := findTile(t, env, tile.ID)
	assert.Equal(t, 7, stored.X)
	assert.Equal(t, tile.Y, stored.Y)
	assert.Equal(t, tile.W, stored.W)
	assert.Equal(t, tile.H, stored.H)
	assert.True(t, stored.OnGrid)

	_, err = env.Tiles.Update(ctx, owner.ID, tile.ID, domain.UpdateRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidUpdate)
	_, err = env.Tiles.Update(ctx, owner.ID, tile.ID, domain.UpdateRequest{W: intPtr(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidRect)
}

func TestBatchLayoutIsAtomic(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	alice := env.User(t, "alice@example.com")
	bob := env.User(t, "bob@example.com")
	mine := env.TilesOf(t, env.Grid(t, alice.ID, "Mine"))[0]
	theirsGrid := env.Grid(t, bob.ID, "Theirs")
	env.Share(t, bob.ID, theirsGrid, alice.Email, "view")
	theirs := env.TilesOf(t, theirsGrid)[0]

	err := env.Tiles.BatchUpdateLayout(ctx, alice.ID, []domain.LayoutItem{
		{ID: mine.ID, X: 9, Y: 9, W: 2, H: 2},
		{ID: theirs.ID, X: 9, Y: 9, W: 2, H: 2},
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	for _, original := range []domain.Tile{mine, theirs} {
		stored := findTile(t, env, original.ID)
		assert.Equal(t, original.X, stored.X)
		assert.Equal(t, original.Y, stored.Y)
	}

	env.Share(t, bob.ID, theirsGrid, alice.Email, "edit")
	require.NoError(t, env.Tiles.BatchUpdateLayout(ctx, alice.ID, []domain.LayoutItem{
		{ID: mine.ID, X: 9, Y: 9, W: 2, H: 2},
		{ID: theirs.ID, X: 1, Y: 1, W: 3, H: 3},
	}))
	assert.Equal(t, 9, findTile(t, env, mine.ID).X)
	assert.Equal(t, 3, findTile(t, env, theirs.ID).W)
}

func TestBatchLayoutValidation(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	tile := env.TilesOf(t, env.Grid(t, owner.ID, "Board"))[0]

	cases := []struct {
		name  string
		items []domain.LayoutItem
		want  error
	}{
		{"empty", nil, domain.ErrInvalidBatch},
		{"duplicate", []domain.LayoutItem{{ID: tile.ID, W: 1, H: 1}, {ID: tile.ID, W: 1, H: 1}}, domain.ErrDuplicateTile},
		{"negative x", []domain.LayoutItem{{ID: tile.ID, X: -1, W: 1, H: 1}}, domain.ErrInvalidRect},
		{"zero height", []domain.LayoutItem{{ID: tile.ID, W: 1}}, domain.ErrInvalidRect},
		{"unknown tile", []domain.LayoutItem{{ID: env.Node.Generate(), W: 1, H: 1}}, domain.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, env.Tiles.BatchUpdateLayout(ctx, owner.ID, tc.items), tc.want)
		})
	}

	oversized := make([]domain.LayoutItem, env.Limits.Get().MaxBatchTiles+1)
	for i := range oversized {
		oversized[i] = domain.LayoutItem{ID: env.Node.Generate(), W: 1, H: 1}
	}
	assert.ErrorIs(t, env.Tiles.BatchUpdateLayout(ctx, owner.ID, oversized), domain.ErrBatchTooLarge)
}

func TestDeleteRequiresEditOnEveryTile(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	alice := env.User(t, "alice@example.com")
	bob := env.User(t, "bob@example.com")
	mine := env.TilesOf(t, env.Grid(t, alice.ID, "Mine"))
	theirs := env.TilesOf(t, env.Grid(t, bob.ID, "Theirs"))[0]

	_, err := env.Messages.Post(ctx, alice.ID, mine[0].ID, messagedomain.PostRequest{Ciphertext: "abc"})
	require.NoError(t, err)

	_, err = env.Tiles.Delete(ctx, alice.ID, []snowflake.ID{mine[0].ID, theirs.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	findTile(t, env, mine[0].ID)

	deleted, err := env.Tiles.Delete(ctx, alice.ID, []snowflake.ID{mine[0].ID, mine[1].ID, mine[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var messages int64
	require.NoError(t, env.DB.Model(&messagedomain.Message{}).Count(&messages).Error)
	assert.Zero(t, messages)

	_, err = env.Tiles.Delete(ctx, alice.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidBatch)

	var denials int64
	require.NoError(t, env.DB.Model(&auditdomain.AuditLog{}).Where("action LIKE ?", "%denied%").Count(&denials).Error)
	assert.Zero(t, denials, "a rejected delete leaves no rows behind")
}

func TestCreateValidatesInput(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	guest := env.User(t, "guest@example.com")
	gridID := env.Grid(t, owner.ID, "Board")

	_, err := env.Tiles.Create(ctx, owner.ID, gridID, domain.CreateRequest{Type: "poll", W: 1, H: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidType)
	_, err = env.Tiles.Create(ctx, owner.ID, gridID, domain.CreateRequest{Type: "notes", W: 0, H: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidRect)
	_, err = env.Tiles.Create(ctx, owner.ID, gridID, domain.CreateRequest{Type: "channel", W: 1, H: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidChannel)
	_, err = env.Tiles.Create(ctx, guest.ID, gridID, domain.CreateRequest{Type: "notes", W: 1, H: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	resp, err := env.Tiles.Create(ctx, owner.ID, gridID, domain.CreateRequest{Type: "Tasks", X: 8, W: 2, H: 2, OnGrid: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "tasks", resp.Type)
	assert.Equal(t, domain.StateTray, resp.State)
}

func TestCreateChannelTileRequiresMembership(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	stranger := env.User(t, "stranger@example.com")
	gridID := env.Grid(t, stranger.ID, "Board")
	before := len(env.TilesOf(t, gridID))

	private, err := env.Channels.CreateChannel(ctx, owner.ID, channeldomain.CreateChannelRequest{Name: "payroll", Emoji: "💰"})
	require.NoError(t, err)
	channelID, err := snowflake.ParseString(private.ID)
	require.NoError(t, err)

	_, err = env.Tiles.Create(ctx, stranger.ID, gridID, domain.CreateRequest{Type: "channel", W: 2, H: 2, ChannelID: &channelID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	unknown := env.Node.Generate()
	_, err = env.Tiles.Create(ctx, stranger.ID, gridID, domain.CreateRequest{Type: "channel", W: 2, H: 2, ChannelID: &unknown})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.Tiles.Create(ctx, stranger.ID, gridID, domain.CreateRequest{Type: "call", W: 2, H: 2, ChannelID: &channelID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.Len(t, env.TilesOf(t, gridID), before)

	var links int64
	require.NoError(t, env.DB.Table("casbin_rule").Where("v0 = ?", "user:"+stranger.ID.String()).Count(&links).Error)
	assert.Zero(t, links)
}

func TestRestoreLeavesVisibleTilesAlone(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridID := env.Grid(t, owner.ID, "Board")
	tiles := env.TilesOf(t, gridID)
	require.Len(t, tiles, 2)
	tray, hidden := tiles[0], tiles[1]

	_, err := env.Tiles.Update(ctx, owner.ID, tray.ID, domain.UpdateRequest{OnGrid: boolPtr(false)})
	require.NoError(t, err)
	require.NoError(t, env.Tiles.Hide(ctx, owner.ID, hidden.ID))

	restored, err := env.Tiles.Restore(ctx, owner.ID, gridID, []snowflake.ID{tray.ID, hidden.ID})
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, hidden.ID.String(), restored[0].ID)

	assert.Equal(t, domain.StateTray, findTile(t, env, tray.ID).State())
	assert.Equal(t, domain.StatePlaced, findTile(t, env, hidden.ID).State())
}

type failingChannels struct{}

func (failingChannels) Summaries(context.Context, []snowflake.ID) (map[snowflake.ID]domain.ChannelSummary, error) {
	return nil, errors.New("channel store unavailable")
}

func TestRestoreSurvivesChannelLookupFailure(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridID := env.Grid(t, owner.ID, "Board")

	channel, err := env.Channels.CreateChannel(ctx, owner.ID, channeldomain.CreateChannelRequest{Name: "ops"})
	require.NoError(t, err)
	channelID, err := snowflake.ParseString(channel.ID)
	require.NoError(t, err)

	resp, err := env.Tiles.Create(ctx, owner.ID, gridID, domain.CreateRequest{Type: "channel", W: 2, H: 2, ChannelID: &channelID})
	require.NoError(t, err)
	tileID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)
	require.NoError(t, env.Tiles.Hide(ctx, owner.ID, tileID))

	tiles := service.NewService(service.Params{
		DB:       env.DB,
		Log:      env.Log,
		GenID:    env.Node,
		Clock:    env.Clock,
		Repo:     env.TileRepo,
		Resolver: env.Resolver,
		Limits:   env.Limits,
		Authz:    env.Authz,
		Channels: failingChannels{},
	})

	restored, err := tiles.Restore(ctx, owner.ID, gridID, []snowflake.ID{tileID})
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Nil(t, restored[0].ChannelName)
	assert.Equal(t, domain.FallbackRoomLabel, restored[0].RoomLabel)
	assert.Equal(t, domain.StatePlaced, findTile(t, env, tileID).State())
}
