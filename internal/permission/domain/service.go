package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Resolver answers "what may this user do on this grid". It never caches;
// every call reads the current grid and share rows.
type Resolver interface {
	// WithTx binds the resolver to a transaction. Rows read are locked on
	// dialects that support it so the decision holds until commit.
	WithTx(tx *gorm.DB) Resolver
	Resolve(ctx context.Context, userID, gridID snowflake.ID) (Tier, error)
	ResolveMany(ctx context.Context, userID snowflake.ID, gridIDs []snowflake.ID) (map[snowflake.ID]Tier, error)
	CanView(ctx context.Context, userID, gridID snowflake.ID) (bool, error)
	CanEdit(ctx context.Context, userID, gridID snowflake.ID) (bool, error)
	// Require returns ErrForbidden unless the user holds the required tier on every grid.
	Require(ctx context.Context, userID snowflake.ID, required Tier, gridIDs ...snowflake.ID) error
}
