package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/clock"
	"github.com/smallbiznis/tilegrid/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, key snowflake.ID, payload []byte) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

func TestOutboxPublisherWritesRow(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&GridEvent{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub := NewOutboxPublisher(conn, node, clock.NewFakeClock(now))

	require.NoError(t, pub.Publish(context.Background(), GridSharedTopic, snowflake.ID(7), []byte(`{"grid_id":"7"}`)))

	var rows []GridEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, snowflake.ID(7), rows[0].GridID)
	assert.Equal(t, GridSharedTopic, rows[0].EventType)
	assert.False(t, rows[0].Published)
	assert.JSONEq(t, `{"grid_id":"7"}`, string(rows[0].Payload))
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, TilesHiddenTopic, snowflake.ID(3), []byte(`{"a":1}`)).Return(errors.New("broker down"))

	Emit(context.Background(), pub, zap.NewNop(), TilesHiddenTopic, snowflake.ID(3), map[string]int{"a": 1})
	pub.AssertExpectations(t)

	Emit(context.Background(), nil, zap.NewNop(), TilesHiddenTopic, snowflake.ID(3), nil)
}

func TestKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "x"})
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	pub, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "tilegrid.events"})
	require.NoError(t, err)
	assert.NoError(t, pub.Close())
}
