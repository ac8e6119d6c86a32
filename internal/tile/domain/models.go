package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
)

type Type string

const (
	TypeNotes    Type = "notes"
	TypeTasks    Type = "tasks"
	TypeLinks    Type = "links"
	TypeCalendar Type = "calendar"
	TypeDM       Type = "dm"
	TypeChannel  Type = "channel"
	TypeCall     Type = "call"
	TypeSummary  Type = "summary"
)

func (t Type) Valid() bool {
	switch t {
	case TypeNotes, TypeTasks, TypeLinks, TypeCalendar, TypeDM, TypeChannel, TypeCall, TypeSummary:
		return true
	default:
		return false
	}
}

// State is derived from the on_grid and hidden flags; hidden wins.
type State string

const (
	StatePlaced State = "placed"
	StateTray   State = "tray"
	StateHidden State = "hidden"
)

// FallbackRoomLabel names a call room when nothing more specific is known.
const FallbackRoomLabel = "Grid call"

type Tile struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	GridID         snowflake.ID  `gorm:"not null;index:idx_tiles_grid;index:idx_tiles_grid_hidden,priority:1"`
	Type           string        `gorm:"type:varchar(16);not null"`
	X              int           `gorm:"not null"`
	Y              int           `gorm:"not null"`
	W              int           `gorm:"not null"`
	H              int           `gorm:"not null"`
	OnGrid         bool          `gorm:"not null"`
	Hidden         bool          `gorm:"not null;index:idx_tiles_grid_hidden,priority:2"`
	ChannelID      *snowflake.ID `gorm:"index"`
	ConversationID *string       `gorm:"type:varchar(128)"`
	CallRoomLabel  *string       `gorm:"type:varchar(120)"`
	CreatedAt      time.Time     `gorm:"not null"`
	UpdatedAt      time.Time     `gorm:"not null"`
}

func (Tile) TableName() string { return "tiles" }

func (t Tile) State() State {
	switch {
	case t.Hidden:
		return StateHidden
	case t.OnGrid:
		return StatePlaced
	default:
		return StateTray
	}
}

type CreateRequest struct {
	Type           string
	X, Y, W, H     int
	OnGrid         *bool
	ChannelID      *snowflake.ID
	ConversationID *string
	CallRoomLabel  *string
}

// UpdateRequest only touches the fields that are set.
type UpdateRequest struct {
	OnGrid *bool
	X      *int
	Y      *int
	W      *int
	H      *int
}

func (r UpdateRequest) Empty() bool {
	return r.OnGrid == nil && r.X == nil && r.Y == nil && r.W == nil && r.H == nil
}

type LayoutItem struct {
	ID snowflake.ID
	X  int
	Y  int
	W  int
	H  int
}

type ListRequest struct {
	IncludeHidden bool
}

type TileResponse struct {
	ID             string    `json:"id"`
	GridID         string    `json:"grid_id"`
	Type           string    `json:"type"`
	X              int       `json:"x"`
	Y              int       `json:"y"`
	W              int       `json:"w"`
	H              int       `json:"h"`
	OnGrid         bool      `json:"on_grid"`
	Hidden         bool      `json:"hidden"`
	State          State     `json:"state"`
	ChannelID      *string   `json:"channel_id,omitempty"`
	ConversationID *string   `json:"conversation_id,omitempty"`
	CallRoomLabel  *string   `json:"call_room_label,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RestoredTile carries the presentational fields a client needs to render a
// restored tile without further lookups.
type RestoredTile struct {
	TileResponse
	ChannelName       *string `json:"channel_name,omitempty"`
	ChannelEmoji      *string `json:"channel_emoji,omitempty"`
	ConversationLabel *string `json:"conversation_label,omitempty"`
	RoomLabel         string  `json:"room_label"`
}

// ChannelSummary is the read-only view of a channel used for labels.
type ChannelSummary struct {
	ID    snowflake.ID
	Name  string
	Emoji string
}

var (
	ErrInvalidType    = errors.New("invalid_type")
	ErrInvalidRect    = errors.New("invalid_rect")
	ErrInvalidUpdate  = errors.New("invalid_update")
	ErrInvalidBatch   = errors.New("invalid_batch")
	ErrBatchTooLarge  = errors.New("invalid_batch_size")
	ErrDuplicateTile  = errors.New("invalid_duplicate_tile")
	ErrInvalidTile    = errors.New("invalid_tile")
	ErrInvalidGrid    = errors.New("invalid_grid")
	ErrInvalidChannel = errors.New("invalid_channel")

	ErrUnauthenticated = permissiondomain.ErrUnauthenticated
	ErrForbidden       = permissiondomain.ErrForbidden
	ErrNotFound        = permissiondomain.ErrNotFound
)
