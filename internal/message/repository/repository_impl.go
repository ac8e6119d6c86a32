package repository

import (
	"context"

	"github.com/smallbiznis/tilegrid/internal/message/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, msg domain.Message) error {
	return r.db.WithContext(ctx).Create(&msg).Error
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]domain.Message, error) {
	stmt := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("tile_id = ?", filter.TileID)
	if filter.After != nil {
		stmt = stmt.Where("((created_at > ?) OR (created_at = ? AND id > ?))",
			filter.After.CreatedAt,
			filter.After.CreatedAt,
			filter.After.ID,
		)
	}
	stmt = stmt.Order("created_at asc, id asc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var messages []domain.Message
	if err := stmt.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
