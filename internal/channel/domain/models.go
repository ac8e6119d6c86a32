package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type ChannelGroup struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OwnerID   snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:varchar(80);not null"`
	CreatedAt time.Time    `gorm:"not null"`
}

func (ChannelGroup) TableName() string { return "channel_groups" }

type Channel struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	OwnerID   snowflake.ID  `gorm:"not null;index"`
	GroupID   *snowflake.ID `gorm:"index"`
	Name      string        `gorm:"type:varchar(80);not null"`
	Slug      string        `gorm:"type:varchar(96);not null;index"`
	Emoji     string        `gorm:"type:varchar(16)"`
	CreatedAt time.Time     `gorm:"not null"`
}

func (Channel) TableName() string { return "channels" }

type ChannelMember struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ChannelID snowflake.ID `gorm:"not null;uniqueIndex:ux_channel_members_channel_user,priority:1"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_channel_members_channel_user,priority:2;index"`
	Role      string       `gorm:"type:varchar(8);not null"`
	CreatedAt time.Time    `gorm:"not null"`
}

func (ChannelMember) TableName() string { return "channel_members" }

type CreateChannelRequest struct {
	Name    string
	Emoji   string
	GroupID *snowflake.ID
}

type CreateGroupRequest struct {
	Name string
}

type ChannelResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	GroupID   *string   `json:"group_id,omitempty"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Emoji     string    `json:"emoji,omitempty"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type GroupResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// AddMembersResult reports a partial match as success. Members lists every
// matched user with their role after the call; Count is how many were newly
// added; Unmatched echoes the emails with no account.
type AddMembersResult struct {
	Members   []MemberResponse `json:"members"`
	Count     int              `json:"count"`
	Unmatched []string         `json:"unmatched"`
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmoji  = errors.New("invalid_emoji")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidEmails = errors.New("invalid_emails")
	ErrInvalidGroup  = errors.New("invalid_group")

	ErrUnauthenticated = permissiondomain.ErrUnauthenticated
	ErrForbidden       = permissiondomain.ErrForbidden
	ErrNotFound        = permissiondomain.ErrNotFound
)
