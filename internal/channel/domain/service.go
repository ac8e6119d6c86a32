package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateChannel(ctx context.Context, userID snowflake.ID, req CreateChannelRequest) (*ChannelResponse, error)
	CreateGroup(ctx context.Context, userID snowflake.ID, req CreateGroupRequest) (*GroupResponse, error)
	ListChannels(ctx context.Context, userID snowflake.ID) ([]ChannelResponse, error)
	ListMembers(ctx context.Context, userID, channelID snowflake.ID) ([]MemberResponse, error)
	AddMembersByEmail(ctx context.Context, userID, channelID snowflake.ID, emails []string) (*AddMembersResult, error)
	// CanModerate is true iff the user is an owner or admin of the channel.
	CanModerate(ctx context.Context, userID, channelID snowflake.ID) (bool, error)
}
