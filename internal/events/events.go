package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	GridCreatedTopic  = "grid.created"
	GridDeletedTopic  = "grid.deleted"
	GridSharedTopic   = "grid.shared"
	GridUnsharedTopic = "grid.unshared"
	TilesHiddenTopic  = "tiles.hidden"
	TilesRestored     = "tiles.restored"
	TilesDeletedTopic = "tiles.deleted"
	TilesMovedTopic   = "tiles.layout_changed"
	ChannelMembers    = "channel.members_added"
)

// Publisher delivers domain events after the originating transaction commits.
// Delivery failures never fail the request that produced the event.
type Publisher interface {
	Publish(ctx context.Context, topic string, key snowflake.ID, payload []byte) error
}

// GridEvent is an outbox row awaiting relay.
type GridEvent struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	GridID    snowflake.ID   `gorm:"not null;index"`
	EventType string         `gorm:"type:varchar(64);not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	Published bool           `gorm:"not null;default:false;index"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (GridEvent) TableName() string { return "grid_events" }

// Emit marshals payload and publishes it, logging instead of returning errors.
func Emit(ctx context.Context, publisher Publisher, log *zap.Logger, topic string, key snowflake.ID, payload any) {
	if publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn("failed to marshal event payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := publisher.Publish(ctx, topic, key, data); err != nil {
		log.Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}
