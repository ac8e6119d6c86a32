package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/channel/domain"
	tiledomain "github.com/smallbiznis/tilegrid/internal/tile/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

// NewChannelLookup exposes channel names to the tile restore labels.
func NewChannelLookup(db *gorm.DB) tiledomain.ChannelLookup {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	if tx == nil {
		return r
	}
	return &repo{db: tx}
}

func (r *repo) CreateChannel(ctx context.Context, channel domain.Channel) error {
	return r.db.WithContext(ctx).Create(&channel).Error
}

func (r *repo) CreateGroup(ctx context.Context, group domain.ChannelGroup) error {
	return r.db.WithContext(ctx).Create(&group).Error
}

func (r *repo) FindGroup(ctx context.Context, id snowflake.ID) (*domain.ChannelGroup, error) {
	var group domain.ChannelGroup
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repo) AddMember(ctx context.Context, member domain.ChannelMember) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&member)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListMembers(ctx context.Context, channelID snowflake.ID, userIDs ...snowflake.ID) ([]domain.MemberListItem, error) {
	q := r.db.WithContext(ctx).
		Table("channel_members AS m").
		Select("m.id, m.channel_id, m.user_id, m.role, m.created_at, u.email, u.display_name").
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.channel_id = ?", channelID)
	if len(userIDs) > 0 {
		q = q.Where("m.user_id IN ?", userIDs)
	}
	var items []domain.MemberListItem
	err := q.Order("m.created_at ASC, m.id ASC").Scan(&items).Error
	return items, err
}

func (r *repo) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.MembershipItem, error) {
	var items []domain.MembershipItem
	err := r.db.WithContext(ctx).
		Table("channels AS c").
		Select("c.id, c.owner_id, c.group_id, c.name, c.slug, c.emoji, c.created_at, m.role").
		Joins("JOIN channel_members m ON m.channel_id = c.id").
		Where("m.user_id = ?", userID).
		Order("c.created_at ASC, c.id ASC").
		Scan(&items).Error
	return items, err
}

func (r *repo) FindByIDs(ctx context.Context, ids []snowflake.ID) ([]domain.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var channels []domain.Channel
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&channels).Error
	return channels, err
}

func (r *repo) Summaries(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]tiledomain.ChannelSummary, error) {
	channels, err := r.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]tiledomain.ChannelSummary, len(channels))
	for _, c := range channels {
		out[c.ID] = tiledomain.ChannelSummary{ID: c.ID, Name: c.Name, Emoji: c.Emoji}
	}
	return out, nil
}
