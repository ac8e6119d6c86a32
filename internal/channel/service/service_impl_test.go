package service_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/channel/domain"
	"github.com/smallbiznis/tilegrid/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createChannel(t *testing.T, env *testkit.Env, ownerID snowflake.ID, name string) snowflake.ID {
	t.Helper()
	ch, err := env.Channels.CreateChannel(context.Background(), ownerID, domain.CreateChannelRequest{Name: name})
	require.NoError(t, err)
	id, err := snowflake.ParseString(ch.ID)
	require.NoError(t, err)
	return id
}

func TestCreateChannelAddsOwner(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")

	ch, err := env.Channels.CreateChannel(ctx, owner.ID, domain.CreateChannelRequest{Name: "#Product Launch", Emoji: "🚀"})
	require.NoError(t, err)
	assert.Equal(t, "Product Launch", ch.Name)
	assert.Equal(t, "product-launch", ch.Slug)
	assert.Equal(t, domain.RoleOwner, ch.Role)

	channelID, err := snowflake.ParseString(ch.ID)
	require.NoError(t, err)
	members, err := env.Channels.ListMembers(ctx, owner.ID, channelID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, domain.RoleOwner, members[0].Role)

	ok, err := env.Channels.CanModerate(ctx, owner.ID, channelID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateChannelInGroup(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	other := env.User(t, "other@example.com")

	group, err := env.Channels.CreateGroup(ctx, owner.ID, domain.CreateGroupRequest{Name: "Engineering"})
	require.NoError(t, err)
	groupID, err := snowflake.ParseString(group.ID)
	require.NoError(t, err)

	ch, err := env.Channels.CreateChannel(ctx, owner.ID, domain.CreateChannelRequest{Name: "backend", GroupID: &groupID})
	require.NoError(t, err)
	require.NotNil(t, ch.GroupID)
	assert.Equal(t, group.ID, *ch.GroupID)

	_, err = env.Channels.CreateChannel(ctx, other.ID, domain.CreateChannelRequest{Name: "sneaky", GroupID: &groupID})
	assert.ErrorIs(t, err, domain.ErrInvalidGroup)

	_, err = env.Channels.CreateChannel(ctx, owner.ID, domain.CreateChannelRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestAddMembersPartialMatch(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	env.User(t, "a@example.com")
	env.User(t, "b@example.com")
	channelID := createChannel(t, env, owner.ID, "general")

	res, err := env.Channels.AddMembersByEmail(ctx, owner.ID, channelID, []string{
		"A@example.com", "a@example.com", "b@example.com", "ghost@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Len(t, res.Members, 2)
	assert.Equal(t, []string{"ghost@example.com"}, res.Unmatched)
	for _, m := range res.Members {
		assert.Equal(t, domain.RoleMember, m.Role)
	}

	// Re-adding reports nothing new.
	res, err = env.Channels.AddMembersByEmail(ctx, owner.ID, channelID, []string{"a@example.com"})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.Len(t, res.Members, 1)
}

func TestAddMembersNeverDowngrades(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	channelID := createChannel(t, env, owner.ID, "general")

	res, err := env.Channels.AddMembersByEmail(ctx, owner.ID, channelID, []string{owner.Email})
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	require.Len(t, res.Members, 1)
	assert.Equal(t, domain.RoleOwner, res.Members[0].Role)
}

func TestAddMembersRequiresModerator(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	member := env.User(t, "member@example.com")
	outsider := env.User(t, "outsider@example.com")
	channelID := createChannel(t, env, owner.ID, "general")

	_, err := env.Channels.AddMembersByEmail(ctx, owner.ID, channelID, []string{member.Email})
	require.NoError(t, err)

	_, err = env.Channels.AddMembersByEmail(ctx, member.ID, channelID, []string{outsider.Email})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.Channels.AddMembersByEmail(ctx, outsider.ID, channelID, []string{outsider.Email})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = env.Channels.AddMembersByEmail(ctx, owner.ID, env.Node.Generate(), []string{outsider.Email})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	ok, err := env.Channels.CanModerate(ctx, member.ID, channelID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdminMayModerate(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	admin := env.User(t, "admin@example.com")
	newcomer := env.User(t, "newcomer@example.com")
	channelID := createChannel(t, env, owner.ID, "general")

	require.NoError(t, env.DB.Create(&domain.ChannelMember{
		ID:        env.Node.Generate(),
		ChannelID: channelID,
		UserID:    admin.ID,
		Role:      string(domain.RoleAdmin),
		CreatedAt: testkit.Epoch,
	}).Error)

	res, err := env.Channels.AddMembersByEmail(ctx, admin.ID, channelID, []string{newcomer.Email})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestAddMembersValidation(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	channelID := createChannel(t, env, owner.ID, "general")

	_, err := env.Channels.AddMembersByEmail(ctx, owner.ID, channelID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidEmails)
	_, err = env.Channels.AddMembersByEmail(ctx, owner.ID, channelID, []string{"nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	_, err = env.Channels.AddMembersByEmail(ctx, owner.ID, channelID, []string{"ghost@example.com"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListChannelsShowsRole(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	member := env.User(t, "member@example.com")
	channelID := createChannel(t, env, owner.ID, "general")
	_, err := env.Channels.AddMembersByEmail(ctx, owner.ID, channelID, []string{member.Email})
	require.NoError(t, err)

	channels, err := env.Channels.ListChannels(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, domain.RoleMember, channels[0].Role)
}
