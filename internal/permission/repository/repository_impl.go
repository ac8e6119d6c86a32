package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/permission/domain"
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

func (r *repo) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.inTx {
		q = db.ForShare(q)
	}
	return q
}

func (r *repo) GridOwners(ctx context.Context, gridIDs []snowflake.ID) (map[snowflake.ID]snowflake.ID, error) {
	owners := make(map[snowflake.ID]snowflake.ID, len(gridIDs))
	if len(gridIDs) == 0 {
		return owners, nil
	}

	var rows []struct {
		ID      snowflake.ID `gorm:"column:id"`
		OwnerID snowflake.ID `gorm:"column:owner_id"`
	}
	if err := r.query(ctx).
		Table("grids").
		Select("id, owner_id").
		Where("id IN ?", gridIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		owners[row.ID] = row.OwnerID
	}
	return owners, nil
}

func (r *repo) SharePermissions(ctx context.Context, userID snowflake.ID, gridIDs []snowflake.ID) (map[snowflake.ID]string, error) {
	perms := make(map[snowflake.ID]string, len(gridIDs))
	if len(gridIDs) == 0 {
		return perms, nil
	}

	var rows []struct {
		GridID     snowflake.ID `gorm:"column:grid_id"`
		Permission string       `gorm:"column:permission"`
	}
	if err := r.query(ctx).
		Table("grid_shares").
		Select("grid_id, permission").
		Where("user_id = ? AND grid_id IN ?", userID, gridIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		perms[row.GridID] = row.Permission
	}
	return perms, nil
}
