package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/tilegrid/internal/audit/domain"
	"gorm.io/gorm"
)

// Repository is stateless; callers pass the handle so audit rows can join a
// transaction that is already open.
type repository struct{}

func NewRepository() domain.Repository {
	return repository{}
}

func (repository) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// List reads newest first and fetches one extra row so the caller can tell
// whether another page exists.
func (repository) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.AuditLog, error) {
	var entries []domain.AuditLog
	err := db.WithContext(ctx).
		Model(&domain.AuditLog{}).
		Scopes(forGrid(filter), withAction(filter.Action), before(filter.Cursor), pageOf(filter.Limit)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error
	return entries, err
}

func forGrid(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("grid_id = ?", filter.GridID)
	}
}

func withAction(action string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if action = strings.TrimSpace(action); action == "" {
			return db
		}
		return db.Where("action = ?", action)
	}
}

func before(cursor *domain.AuditCursor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if cursor == nil {
			return db
		}
		return db.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
}

func pageOf(limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit + 1)
	}
}
