package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tilegrid/internal/config"
)

const keyEmailLookup = "email:lookup:user:%s"

// EmailLookupLimiter throttles endpoints that resolve accounts by email
// (sharing a grid, adding channel members) per calling user.
type EmailLookupLimiter struct {
	bucket *TokenBucket
	limits *config.LimitsHolder
}

func NewEmailLookupLimiter(client *redis.Client, limits *config.LimitsHolder) *EmailLookupLimiter {
	return &EmailLookupLimiter{
		bucket: NewTokenBucket(client),
		limits: limits,
	}
}

func (l *EmailLookupLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow reports whether userID may perform count more lookups. A disabled
// limiter allows everything.
func (l *EmailLookupLimiter) Allow(ctx context.Context, userID string, count int) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	if count < 1 {
		count = 1
	}
	cfg := l.limits.Get()
	key := fmt.Sprintf(keyEmailLookup, strings.TrimSpace(userID))

	var last *Result
	for i := 0; i < count; i++ {
		res, err := l.bucket.Allow(ctx, key, cfg.EmailLookupRate, cfg.EmailLookupBurst)
		if err != nil {
			return nil, err
		}
		last = res
		if !res.Allowed {
			return res, nil
		}
	}
	return last, nil
}
