package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per normalized username.
// Key format: login:fail:<normalized_username>
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewLoginThrottle returns a throttle that locks a username after maxAttempts
// failures within window. maxAttempts <= 0 disables locking.
func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration) *LoginThrottle {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Locked reports whether the username has exhausted its attempts.
func (t *LoginThrottle) Locked(ctx context.Context, username string) (bool, error) {
	if t.maxAttempts <= 0 {
		return false, nil
	}
	n, err := t.client.Get(ctx, t.key(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n >= t.maxAttempts, nil
}

// recordFailureScript increments the counter and arms its expiry in one atomic
// step. A key left without a TTL gets one on the next failure.
var recordFailureScript = redis.NewScript(`
	local n = redis.call('INCR', KEYS[1])
	if n == 1 or redis.call('PTTL', KEYS[1]) < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return n
`)

// RecordFailure increments the counter; the first failure starts the window.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	if t.maxAttempts <= 0 {
		return nil
	}
	if err := recordFailureScript.Run(ctx, t.client, []string{t.key(username)}, t.window.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("throttle record failure: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	if t.maxAttempts <= 0 {
		return nil
	}
	return t.client.Del(ctx, t.key(username)).Err()
}

func (t *LoginThrottle) key(username string) string {
	return "login:fail:" + username
}
