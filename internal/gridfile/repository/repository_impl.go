package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/gridfile/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, file domain.GridFile) error {
	return r.db.WithContext(ctx).Create(&file).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.GridFile, error) {
	var file domain.GridFile
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *repo) ListByGrid(ctx context.Context, gridID snowflake.ID) ([]domain.GridFile, error) {
	var files []domain.GridFile
	err := r.db.WithContext(ctx).
		Where("grid_id = ?", gridID).
		Order("created_at ASC, id ASC").
		Find(&files).Error
	return files, err
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.GridFile{}).Error
}
