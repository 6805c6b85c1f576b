package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptsPrefix = "login_attempts"

// LoginThrottle counts failed logins per email
type LoginThrottle interface {
	Locked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type redisLoginThrottle struct {
	client      *redis.Client
	maxAttempts int
	lockout     time.Duration
}

// NewLoginThrottle locks an email for lockout after maxAttempts failures
// inside the same lockout window
func NewLoginThrottle(client *redis.Client, maxAttempts int, lockout time.Duration) LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &redisLoginThrottle{client: client, maxAttempts: maxAttempts, lockout: lockout}
}

func loginAttemptsKey(email string) string {
	return fmt.Sprintf("%s:%s", loginAttemptsPrefix, strings.ToLower(strings.TrimSpace(email)))
}

func (t *redisLoginThrottle) Locked(ctx context.Context, email string) (bool, error) {
	count, err := t.client.Get(ctx, loginAttemptsKey(email)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read login attempts: %w", err)
	}
	return count >= t.maxAttempts, nil
}

func (t *redisLoginThrottle) RecordFailure(ctx context.Context, email string) error {
	key := loginAttemptsKey(email)

	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	// the window starts at the first failure
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.lockout).Err(); err != nil {
			return fmt.Errorf("failed to set login attempt window: %w", err)
		}
	}
	return nil
}

func (t *redisLoginThrottle) Reset(ctx context.Context, email string) error {
	if err := t.client.Del(ctx, loginAttemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}
