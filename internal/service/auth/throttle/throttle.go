// Package throttle counts failed logins per email in Redis.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/tenantauth/internal/apperrors"
)

const (
	defaultMaxAttempts = 5
	defaultCooldown    = 15 * time.Minute
	keyPrefix          = "tenantauth:login:"
)

var ErrUnavailable = errors.New("login throttle storage unavailable")

type Config struct {
	// Failed attempts allowed inside the window
	MaxAttempts int

	// Window length, counted from the first failed attempt
	Cooldown time.Duration
}

type LoginThrottle struct {
	redis       redis.UniversalClient
	maxAttempts int64
	cooldown    time.Duration
}

func New(client redis.UniversalClient, cfg Config) *LoginThrottle {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}

	return &LoginThrottle{
		redis:       client,
		maxAttempts: int64(cfg.MaxAttempts),
		cooldown:    cfg.Cooldown,
	}
}

// Check returns apperrors.ErrLoginThrottled if attempts budget is spent
func (l *LoginThrottle) Check(ctx context.Context, email string) error {
	count, err := l.redis.Get(ctx, key(email)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case count >= l.maxAttempts:
		return apperrors.ErrLoginThrottled
	default:
		return nil
	}
}

// Fail records failed attempt
// Fixed window: TTL is set on the first failure only
func (l *LoginThrottle) Fail(ctx context.Context, email string) error {
	k := key(email)

	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return nil
}

// Reset clears failures after successful login
func (l *LoginThrottle) Reset(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func key(email string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(email))
}
