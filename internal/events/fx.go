package events

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

type PublisherParams struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node
	Clock clock.Clock
	Log   *zap.Logger
}

func NewPublisher(p PublisherParams) (Publisher, error) {
	if p.Cfg.Events.Driver != "kafka" {
		return NewOutboxPublisher(p.DB, p.GenID, p.Clock), nil
	}

	pub, err := NewKafkaPublisher(KafkaConfig{
		Brokers:      p.Cfg.Events.KafkaBrokers,
		Topic:        p.Cfg.Events.KafkaTopic,
		Async:        p.Cfg.Events.KafkaAsync,
		BatchTimeout: p.Cfg.Events.KafkaBatchWait,
	})
	if err != nil {
		return nil, err
	}
	p.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			p.Log.Info("closing kafka writer")
			return pub.Close()
		},
	})
	p.Log.Info("events published to kafka", zap.String("topic", p.Cfg.Events.KafkaTopic))
	return pub, nil
}
