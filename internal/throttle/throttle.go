// Package throttle limits how often a confirmation code can be requested.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "yamdb:signup:cooldown:"

// SignupLimiter allows one signup per username per cooldown window. A nil
// limiter or one without a client allows everything.
type SignupLimiter struct {
	client   *redis.Client
	cooldown time.Duration
}

func NewSignupLimiter(client *redis.Client, cooldown time.Duration) *SignupLimiter {
	return &SignupLimiter{client: client, cooldown: cooldown}
}

func key(username string) string {
	return keyPrefix + username
}

// Allow claims the cooldown slot for username. It reports false when the
// slot is already held.
func (l *SignupLimiter) Allow(ctx context.Context, username string) (bool, error) {
	if l == nil || l.client == nil || l.cooldown <= 0 {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, key(username), time.Now().Unix(), l.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("signup throttle: %w", err)
	}
	return ok, nil
}

// Release frees the slot early, used when the code never reached the user.
func (l *SignupLimiter) Release(ctx context.Context, username string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := l.client.Del(ctx, key(username)).Err(); err != nil {
		return fmt.Errorf("release signup throttle: %w", err)
	}
	return nil
}
