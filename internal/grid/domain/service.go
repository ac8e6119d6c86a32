package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateGridRequest) (*GridResponse, error)
	ProvisionDefault(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID) error
	// ListOwned returns the grids owned by the caller.
	ListOwned(ctx context.Context, userID snowflake.ID) ([]GridResponse, error)
	ListShared(ctx context.Context, userID snowflake.ID) ([]GridResponse, error)
	Get(ctx context.Context, userID, gridID snowflake.ID) (*GridResponse, error)
	Delete(ctx context.Context, userID, gridID snowflake.ID) (*DeleteGridResult, error)

	CreateShare(ctx context.Context, userID, gridID snowflake.ID, req CreateShareRequest) (*ShareResponse, error)
	ListShares(ctx context.Context, userID, gridID snowflake.ID) ([]ShareResponse, error)
	RevokeShare(ctx context.Context, userID, gridID, targetUserID snowflake.ID) error
}

// TileSeeder places the default tiles of a new grid inside the caller's transaction.
type TileSeeder interface {
	SeedDefaults(ctx context.Context, tx *gorm.DB, gridID snowflake.ID) error
}
