package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GridOwners(ctx context.Context, gridIDs []snowflake.ID) (map[snowflake.ID]snowflake.ID, error)
	SharePermissions(ctx context.Context, userID snowflake.ID, gridIDs []snowflake.ID) (map[snowflake.ID]string, error)
}
