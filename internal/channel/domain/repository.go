package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type MemberListItem struct {
	ChannelMember
	Email       string
	DisplayName string
}

type MembershipItem struct {
	Channel
	Role string
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateChannel(ctx context.Context, channel Channel) error
	CreateGroup(ctx context.Context, group ChannelGroup) error
	FindGroup(ctx context.Context, id snowflake.ID) (*ChannelGroup, error)
	// AddMember inserts the row unless the pair already exists, in which case
	// the stored role is kept. It reports whether a row was inserted.
	AddMember(ctx context.Context, member ChannelMember) (bool, error)
	ListMembers(ctx context.Context, channelID snowflake.ID, userIDs ...snowflake.ID) ([]MemberListItem, error)
	ListForUser(ctx context.Context, userID snowflake.ID) ([]MembershipItem, error)
	FindByIDs(ctx context.Context, ids []snowflake.ID) ([]Channel, error)
}
