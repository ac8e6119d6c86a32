package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockHeld means another instance is inside the guarded section.
var ErrLockHeld = errors.New("lock_held")

// compare-and-delete so an expired holder cannot free a newer lock
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker serializes short critical sections across API replicas with a
// SET NX lease.
type Locker struct {
	client *redis.Client
	unlock *redis.Script
	log    *zap.Logger
}

// NewLocker returns nil without a redis client; a nil Locker runs guarded
// sections directly.
func NewLocker(client *redis.Client, log *zap.Logger) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		unlock: redis.NewScript(unlockScript),
		log:    log.Named("ratelimit.locker"),
	}
}

// Guard runs fn while holding key. It fails fast with ErrLockHeld instead of
// waiting. The lease expires after ttl even if the process dies inside fn.
func (l *Locker) Guard(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil {
		return fn(ctx)
	}
	if key == "" || ttl <= 0 {
		return errors.New("lock key and ttl are required")
	}

	lease := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, lease, ttl).Result()
	if err != nil {
		return err
	}
	if !acquired {
		return ErrLockHeld
	}
	defer func() {
		// the request context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := l.unlock.Run(releaseCtx, l.client, []string{key}, lease).Err(); err != nil {
			l.log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn(ctx)
}
