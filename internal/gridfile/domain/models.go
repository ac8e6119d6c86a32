package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
)

// GridFile is the metadata row of a blob attached to a grid.
type GridFile struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	GridID      snowflake.ID `gorm:"not null;index"`
	UploaderID  snowflake.ID `gorm:"not null"`
	Name        string       `gorm:"type:varchar(255);not null"`
	ContentType string       `gorm:"type:varchar(127);not null"`
	SizeBytes   int64        `gorm:"not null"`
	ObjectKey   string       `gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt   time.Time    `gorm:"not null"`
}

func (GridFile) TableName() string { return "grid_files" }

type RegisterRequest struct {
	Name        string
	ContentType string
	SizeBytes   int64
}

type FileResponse struct {
	ID          string    `json:"id"`
	GridID      string    `json:"grid_id"`
	UploaderID  string    `json:"uploader_id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	UploadURL   string    `json:"upload_url,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidContentType = errors.New("invalid_content_type")
	ErrInvalidSize        = errors.New("invalid_size")
	ErrInvalidGrid        = errors.New("invalid_grid")
	ErrInvalidFile        = errors.New("invalid_file")

	ErrUnauthenticated = permissiondomain.ErrUnauthenticated
	ErrForbidden       = permissiondomain.ErrForbidden
)
