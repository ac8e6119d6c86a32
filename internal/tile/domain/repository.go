package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tiles ...Tile) error
	FindByID(ctx context.Context, id snowflake.ID) (*Tile, error)
	// FindByIDs locks the returned rows when called inside a transaction.
	FindByIDs(ctx context.Context, ids []snowflake.ID) ([]Tile, error)
	ListByGrid(ctx context.Context, gridID snowflake.ID, includeHidden bool) ([]Tile, error)
	ListHidden(ctx context.Context, gridID snowflake.ID) ([]Tile, error)
	SetHidden(ctx context.Context, id snowflake.ID, at time.Time) error
	Restore(ctx context.Context, ids []snowflake.ID, at time.Time) error
	Update(ctx context.Context, id snowflake.ID, fields map[string]any) error
	UpdateRect(ctx context.Context, item LayoutItem, at time.Time) error
	// Delete removes the tiles and their messages.
	Delete(ctx context.Context, ids []snowflake.ID) (int64, error)
}

// ChannelLookup resolves channel names and emoji for restore labels.
type ChannelLookup interface {
	Summaries(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]ChannelSummary, error)
}
