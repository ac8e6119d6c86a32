package events

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type outboxPublisher struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutboxPublisher(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) Publisher {
	return &outboxPublisher{
		db:    db,
		genID: genID,
		clock: clk,
	}
}

func (p *outboxPublisher) Publish(ctx context.Context, topic string, key snowflake.ID, payload []byte) error {
	return p.db.WithContext(ctx).Create(&GridEvent{
		ID:        p.genID.Generate(),
		GridID:    key,
		EventType: topic,
		Payload:   datatypes.JSON(payload),
		CreatedAt: p.clock.Now(),
	}).Error
}
