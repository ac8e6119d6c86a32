package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/tile/domain"
	"github.com/smallbiznis/tilegrid/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db   *gorm.DB
	inTx bool
}

func NewRepository(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	if tx == nil {
		return r
	}
	return &repo{db: tx, inTx: true}
}

func (r *repo) Create(ctx context.Context, tiles ...domain.Tile) error {
	if len(tiles) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tiles).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Tile, error) {
	q := r.db.WithContext(ctx)
	if r.inTx {
		q = db.ForUpdate(q)
	}
	var tile domain.Tile
	err := q.Where("id = ?", id).Take(&tile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tile, nil
}

func (r *repo) FindByIDs(ctx context.Context, ids []snowflake.ID) ([]domain.Tile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx)
	if r.inTx {
		q = db.ForUpdate(q)
	}
	var tiles []domain.Tile
	err := q.Where("id IN ?", ids).Order("id ASC").Find(&tiles).Error
	return tiles, err
}

func (r *repo) ListByGrid(ctx context.Context, gridID snowflake.ID, includeHidden bool) ([]domain.Tile, error) {
	q := r.db.WithContext(ctx).Where("grid_id = ?", gridID)
	if !includeHidden {
		q = q.Where("hidden = ?", false)
	}
	var tiles []domain.Tile
	err := q.Order("created_at ASC, id ASC").Find(&tiles).Error
	return tiles, err
}

func (r *repo) ListHidden(ctx context.Context, gridID snowflake.ID) ([]domain.Tile, error) {
	q := r.db.WithContext(ctx)
	if r.inTx {
		q = db.ForUpdate(q)
	}
	var tiles []domain.Tile
	err := q.Where("grid_id = ? AND hidden = ?", gridID, true).
		Order("created_at ASC, id ASC").
		Find(&tiles).Error
	return tiles, err
}

func (r *repo) SetHidden(ctx context.Context, id snowflake.ID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Tile{}).
		Where("id = ?", id).
		Updates(map[string]any{"hidden": true, "updated_at": at}).Error
}

func (r *repo) Restore(ctx context.Context, ids []snowflake.ID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.Tile{}).
		Where("id IN ? AND hidden = ?", ids, true).
		Updates(map[string]any{"hidden": false, "on_grid": true, "updated_at": at}).Error
}

func (r *repo) Update(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.Tile{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) UpdateRect(ctx context.Context, item domain.LayoutItem, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Tile{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"x":          item.X,
			"y":          item.Y,
			"w":          item.W,
			"h":          item.H,
			"updated_at": at,
		}).Error
}

func (r *repo) Delete(ctx context.Context, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := r.db.WithContext(ctx)
	if err := q.Exec(`DELETE FROM messages WHERE tile_id IN ?`, ids).Error; err != nil {
		return 0, err
	}
	res := q.Where("id IN ?", ids).Delete(&domain.Tile{})
	return res.RowsAffected, res.Error
}
