package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
)

type Grid struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OwnerID   snowflake.ID `gorm:"not null;index:idx_grids_owner"`
	Name      string       `gorm:"type:varchar(120);not null"`
	CreatedAt time.Time    `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (Grid) TableName() string { return "grids" }

// GridShare grants a non-owner view or edit on a grid. At most one row
// exists per (grid, user); re-sharing overwrites the permission.
type GridShare struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	GridID     snowflake.ID `gorm:"not null;uniqueIndex:ux_grid_shares_grid_user,priority:1"`
	UserID     snowflake.ID `gorm:"not null;uniqueIndex:ux_grid_shares_grid_user,priority:2;index:idx_grid_shares_user"`
	Permission string       `gorm:"type:varchar(8);not null"`
	CreatedAt  time.Time    `gorm:"not null"`
	UpdatedAt  time.Time    `gorm:"not null"`
}

func (GridShare) TableName() string { return "grid_shares" }

type CreateGridRequest struct {
	Name string
}

type CreateShareRequest struct {
	Email      string
	Permission string
}

type GridResponse struct {
	ID         string                `json:"id"`
	OwnerID    string                `json:"owner_id"`
	Name       string                `json:"name"`
	Permission permissiondomain.Tier `json:"permission"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

type ShareResponse struct {
	ID          string    `json:"id"`
	GridID      string    `json:"grid_id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Permission  string    `json:"permission"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type DeleteGridResult struct {
	TilesDeleted int64 `json:"tiles_deleted"`
	FilesDeleted int   `json:"files_deleted"`
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidGrid        = errors.New("invalid_grid")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidPermission  = errors.New("invalid_permission")
	ErrInvalidShareTarget = errors.New("invalid_share_target")
	ErrInvalidUser        = errors.New("invalid_user")

	ErrUnauthenticated = permissiondomain.ErrUnauthenticated
	ErrForbidden       = permissiondomain.ErrForbidden
	ErrNotFound        = permissiondomain.ErrNotFound
)
