package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
	"github.com/smallbiznis/tilegrid/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action string
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

type Service interface {
	AuditLog(ctx context.Context, gridID *snowflake.ID, actorID *snowflake.ID, action string, targetType string, targetID *string, metadata map[string]any) error
	// List returns the audit trail of a grid to its owner.
	List(ctx context.Context, userID, gridID snowflake.ID, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidAction    = errors.New("invalid_action")

	ErrForbidden = permissiondomain.ErrForbidden
)
