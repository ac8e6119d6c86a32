package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	permissiondomain "github.com/smallbiznis/tilegrid/internal/permission/domain"
)

// Service decides channel-scoped capabilities from a member's role.
type Service interface {
	Authorize(ctx context.Context, userID, channelID snowflake.ID, object, action string) error
	Allowed(ctx context.Context, userID, channelID snowflake.ID, object, action string) (bool, error)
}

var (
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidChannel = errors.New("invalid_channel")
	ErrInvalidObject  = errors.New("invalid_object")
	ErrInvalidAction  = errors.New("invalid_action")

	ErrForbidden = permissiondomain.ErrForbidden
)
