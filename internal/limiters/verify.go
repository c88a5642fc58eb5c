package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultSecondFactorMaxAttempts = 5
	defaultSecondFactorCooldown    = time.Minute
)

var (
	ErrSecondFactorRateLimited        = errors.New("second factor rate limited")
	ErrSecondFactorLimiterUnavailable = errors.New("second factor limiter unavailable")
)

// SecondFactorLimiterConfig holds configurable thresholds for the second
// factor verification limiter.
type SecondFactorLimiterConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// SecondFactorLimiter counts failed verification attempts per account in
// redis and blocks further attempts once the threshold is reached. The
// counter carries a TTL so a locked account recovers after the cooldown.
type SecondFactorLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int64
	cooldown    time.Duration
}

// NewSecondFactorLimiter creates a verification limiter. Zero-value fields
// in cfg fall back to defaults (5 attempts / 60s).
func NewSecondFactorLimiter(redisClient redis.UniversalClient, cfg SecondFactorLimiterConfig) *SecondFactorLimiter {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = defaultSecondFactorMaxAttempts
	}
	cd := cfg.Cooldown
	if cd <= 0 {
		cd = defaultSecondFactorCooldown
	}
	return &SecondFactorLimiter{redis: redisClient, maxAttempts: int64(max), cooldown: cd}
}

func (l *SecondFactorLimiter) key(username string) string {
	return "v2f:" + username
}

func (l *SecondFactorLimiter) Check(ctx context.Context, username string) error {
	count, err := l.redis.Get(ctx, l.key(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrSecondFactorLimiterUnavailable, err)
	}
	if count >= l.maxAttempts {
		return ErrSecondFactorRateLimited
	}
	return nil
}

func (l *SecondFactorLimiter) RecordFailure(ctx context.Context, username string) error {
	count, err := l.redis.Incr(ctx, l.key(username)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSecondFactorLimiterUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, l.key(username), l.cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrSecondFactorLimiterUnavailable, err)
		}
	}
	if count >= l.maxAttempts {
		return ErrSecondFactorRateLimited
	}
	return nil
}

func (l *SecondFactorLimiter) Reset(ctx context.Context, username string) error {
	if err := l.redis.Del(ctx, l.key(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSecondFactorLimiterUnavailable, err)
	}
	return nil
}
