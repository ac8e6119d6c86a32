package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records privileged changes. Denied attempts are logged, not stored.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	GridID     *snowflake.ID     `gorm:"index:idx_audit_logs_grid_created,priority:1" json:"grid_id,omitempty"`
	ActorID    *snowflake.ID     `json:"actor_id,omitempty"`
	Action     string            `gorm:"type:varchar(64);not null" json:"action"`
	TargetType string            `gorm:"type:varchar(32);not null" json:"target_type"`
	TargetID   *string           `gorm:"type:varchar(64)" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;index:idx_audit_logs_grid_created,priority:2" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	GridID snowflake.ID
	Action string
	Cursor *AuditCursor
	Limit  int
}
