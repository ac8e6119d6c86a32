package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SharedGridItem struct {
	Grid
	Permission string
}

type ShareListItem struct {
	GridShare
	Email       string
	DisplayName string
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, grid Grid) error
	FindByID(ctx context.Context, id snowflake.ID) (*Grid, error)
	ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]Grid, error)
	ListSharedWith(ctx context.Context, userID snowflake.ID) ([]SharedGridItem, error)
	// UpsertShare inserts or overwrites the permission of the (grid, user)
	// row and returns the stored row.
	UpsertShare(ctx context.Context, share GridShare) (*GridShare, error)
	ListShares(ctx context.Context, gridID snowflake.ID) ([]ShareListItem, error)
	DeleteShare(ctx context.Context, gridID, userID snowflake.ID) (bool, error)
	// DeleteCascade removes the grid and everything hanging off it, returning
	// the tile count and the blob keys of its files.
	DeleteCascade(ctx context.Context, gridID snowflake.ID) (int64, []string, error)
	Touch(ctx context.Context, gridID snowflake.ID, at time.Time) error
}
