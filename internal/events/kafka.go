package events

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	kafka "github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Async        bool
	BatchTimeout time.Duration
}

// KafkaPublisher is the Publisher used when EVENTS_DRIVER=kafka.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher writes every event to one topic keyed by grid id, so
// events of a grid stay ordered within a partition.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        cfg.Async,
		BatchTimeout: cfg.BatchTimeout,
	}
	return &KafkaPublisher{w: w}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, key snowflake.ID, payload []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key.String()),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(topic)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
