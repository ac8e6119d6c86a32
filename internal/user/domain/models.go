package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
)

type User struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Email       string       `gorm:"type:varchar(320);not null;uniqueIndex:ux_users_email" json:"email"`
	DisplayName string       `gorm:"type:varchar(120);not null;default:''" json:"display_name"`
	IsAdmin     bool         `gorm:"not null;default:false;index:idx_users_is_admin" json:"is_admin"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type ProvisionRequest struct {
	ID          snowflake.ID
	Email       string
	DisplayName string
}

type ProvisionResult struct {
	User    User `json:"user"`
	Created bool `json:"created"`
}

var (
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrEmailTaken   = errors.New("email_taken")
	ErrAdminBusy    = errors.New("admin_change_in_progress")

	ErrUnauthenticated = permissiondomain.ErrUnauthenticated
	ErrForbidden       = permissiondomain.ErrForbidden
	ErrNotFound        = permissiondomain.ErrNotFound
)
