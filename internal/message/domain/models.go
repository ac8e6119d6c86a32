package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	"github.com/smallbiznis/tilegrid/pkg/db/pagination"
)

// Message is append-only. Ciphertext is produced by clients and never
// inspected here.
type Message struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	TileID     snowflake.ID `gorm:"not null;index:idx_messages_tile_created,priority:1"`
	AuthorID   snowflake.ID `gorm:"not null"`
	Ciphertext string       `gorm:"type:text;not null"`
	CreatedAt  time.Time    `gorm:"not null;index:idx_messages_tile_created,priority:2"`
}

func (Message) TableName() string { return "messages" }

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	TileID snowflake.ID
	After  *Cursor
	Limit  int
}

type PostRequest struct {
	Ciphertext string
}

type ListRequest struct {
	pagination.Pagination
}

type MessageResponse struct {
	ID         string    `json:"id"`
	TileID     string    `json:"tile_id"`
	AuthorID   string    `json:"author_id"`
	Ciphertext string    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Messages []MessageResponse `json:"messages"`
}

var (
	ErrInvalidCiphertext = errors.New("invalid_ciphertext")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrInvalidTile       = errors.New("invalid_tile")

	ErrUnauthenticated = permissiondomain.ErrUnauthenticated
	ErrForbidden       = permissiondomain.ErrForbidden
)
