package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/tilegrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisabledLimiterAllows(t *testing.T) {
	l := NewEmailLookupLimiter(nil, config.NewStaticLimits(config.DefaultLimitsConfig()))
	assert.False(t, l.Enabled())

	res, err := l.Allow(context.Background(), "42", 100)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilLockerRunsGuardedSection(t *testing.T) {
	var l *Locker
	assert.Nil(t, NewLocker(nil, zap.NewNop()))

	ran := false
	err := l.Guard(context.Background(), "users:admin:change", time.Second, func(context.Context) error {
		ran = true
		return errors.New("boom")
	})
	assert.True(t, ran)
	assert.EqualError(t, err, "boom")
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, time.Second, RetryAfter(0, 1))
	assert.Equal(t, 500*time.Millisecond, RetryAfter(0.5, 1))
	assert.Zero(t, RetryAfter(1.2, 1))
	assert.Zero(t, RetryAfter(0, 0))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, bucketTTL(1, 10))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 1))
}

func TestScriptResultParsing(t *testing.T) {
	assert.Equal(t, int64(1), toInt(int64(1)))
	assert.Equal(t, int64(1), toInt("1"))
	assert.InDelta(t, 2.5, toFloat("2.5"), 1e-9)
	assert.InDelta(t, 3, toFloat(int64(3)), 1e-9)
}
