package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, userID, gridID snowflake.ID, req CreateRequest) (*TileResponse, error)
	List(ctx context.Context, userID, gridID snowflake.ID, req ListRequest) ([]TileResponse, error)
	Hide(ctx context.Context, userID, tileID snowflake.ID) error
	// Restore unhides and places the hidden tiles among tileIDs, or every
	// hidden tile of the grid when tileIDs is empty. Visible tiles are skipped.
	Restore(ctx context.Context, userID, gridID snowflake.ID, tileIDs []snowflake.ID) ([]RestoredTile, error)
	Update(ctx context.Context, userID, tileID snowflake.ID, req UpdateRequest) (*TileResponse, error)
	BatchUpdateLayout(ctx context.Context, userID snowflake.ID, items []LayoutItem) error
	Delete(ctx context.Context, userID snowflake.ID, tileIDs []snowflake.ID) (int64, error)
	SeedDefaults(ctx context.Context, tx *gorm.DB, gridID snowflake.ID) error
}
