package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// Provision creates the local profile for an authenticated identity the
	// first time it is seen, together with its default grid.
	Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error)
	Get(ctx context.Context, userID snowflake.ID) (*User, error)
	// SetAdmin changes the admin flag of target. While no admin exists any
	// authenticated user may do so; afterwards only admins may.
	SetAdmin(ctx context.Context, actorID, targetID snowflake.ID, isAdmin bool) (*User, error)
}

// GridProvisioner seeds the default grid of a freshly provisioned user
// inside the caller's transaction.
type GridProvisioner interface {
	ProvisionDefault(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID) error
}
