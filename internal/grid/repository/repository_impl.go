package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/grid/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	if tx == nil {
		return r
	}
	return &repo{db: tx}
}

func (r *repo) Create(ctx context.Context, grid domain.Grid) error {
	return r.db.WithContext(ctx).Create(&grid).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Grid, error) {
	var grid domain.Grid
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&grid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grid, nil
}

func (r *repo) ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]domain.Grid, error) {
	var grids []domain.Grid
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&grids).Error
	return grids, err
}

func (r *repo) ListSharedWith(ctx context.Context, userID snowflake.ID) ([]domain.SharedGridItem, error) {
	var items []domain.SharedGridItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT g.id, g.owner_id, g.name, g.created_at, g.updated_at, s.permission
		 FROM grid_shares s
		 JOIN grids g ON g.id = s.grid_id
		 WHERE s.user_id = ? AND g.owner_id <> ?
		 ORDER BY g.created_at ASC, g.id ASC`,
		userID,
		userID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) UpsertShare(ctx context.Context, share domain.GridShare) (*domain.GridShare, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "grid_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"permission", "updated_at"}),
	}).Create(&share).Error
	if err != nil {
		return nil, err
	}

	var stored domain.GridShare
	if err := r.db.WithContext(ctx).
		Where("grid_id = ? AND user_id = ?", share.GridID, share.UserID).
		Take(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repo) ListShares(ctx context.Context, gridID snowflake.ID) ([]domain.ShareListItem, error) {
	var items []domain.ShareListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT s.id, s.grid_id, s.user_id, s.permission, s.created_at, s.updated_at,
		        u.email, u.display_name
		 FROM grid_shares s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.grid_id = ?
		 ORDER BY s.created_at ASC, s.id ASC`,
		gridID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) DeleteShare(ctx context.Context, gridID, userID snowflake.ID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("grid_id = ? AND user_id = ?", gridID, userID).
		Delete(&domain.GridShare{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) DeleteCascade(ctx context.Context, gridID snowflake.ID) (int64, []string, error) {
	q := r.db.WithContext(ctx)

	var keys []string
	if err := q.Table("grid_files").Where("grid_id = ?", gridID).Pluck("object_key", &keys).Error; err != nil {
		return 0, nil, err
	}

	if err := q.Exec(
		`DELETE FROM messages WHERE tile_id IN (SELECT id FROM tiles WHERE grid_id = ?)`, gridID,
	).Error; err != nil {
		return 0, nil, err
	}
	tiles := q.Exec(`DELETE FROM tiles WHERE grid_id = ?`, gridID)
	if tiles.Error != nil {
		return 0, nil, tiles.Error
	}
	for _, stmt := range []string{
		`DELETE FROM grid_files WHERE grid_id = ?`,
		`DELETE FROM grid_shares WHERE grid_id = ?`,
		`DELETE FROM grids WHERE id = ?`,
	} {
		if err := q.Exec(stmt, gridID).Error; err != nil {
			return 0, nil, err
		}
	}
	return tiles.RowsAffected, keys, nil
}

func (r *repo) Touch(ctx context.Context, gridID snowflake.ID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Grid{}).
		Where("id = ?", gridID).
		Update("updated_at", at).Error
}
