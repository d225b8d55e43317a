// Package ratelimit enforces per-identity request quotas over fixed time
// windows, backed by redis so the count is shared across instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/crestbank/corebank/internal/domain"
	"github.com/crestbank/corebank/pkg/logger"
)

// Class partitions limits by operation sensitivity. Each class carries its own
// rule, so bursts of balance reads cannot consume the login budget.
type Class string

const (
	ClassLogin    Class = "login"
	ClassReset    Class = "reset"
	ClassMutation Class = "mutation"
)

// Rule is the quota for one class: at most Limit requests per Window.
type Rule struct {
	Limit  int64
	Window time.Duration
}

// Limiter counts requests in redis with a fixed window per identity and class.
// Redis outages trip a circuit breaker and the limiter fails open, so a cache
// incident degrades throttling rather than taking down the money paths.
type Limiter struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	rules   map[Class]Rule
	now     func() time.Time
}

func New(client *redis.Client, rules map[Class]Rule) *Limiter {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ratelimit-redis",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Limiter{
		client:  client,
		breaker: breaker,
		rules:   rules,
		now:     time.Now,
	}
}

// Check consumes one unit of the class quota for key. It returns a
// RateLimitError carrying the wait until the window rolls over when the quota
// is exhausted, and nil when the request may proceed.
func (l *Limiter) Check(ctx context.Context, key string, class Class) error {
	rule, ok := l.rules[class]
	if !ok || rule.Limit <= 0 {
		return nil
	}

	now := l.now().UTC()
	windowStart := now.Truncate(rule.Window)
	redisKey := fmt.Sprintf("rl:%s:%s:%d", class, key, windowStart.Unix())

	result, err := l.breaker.Execute(func() (interface{}, error) {
		pipe := l.client.TxPipeline()
		count := pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, rule.Window)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
		return count.Val(), nil
	})
	if err != nil {
		logger.Log.Warn("rate limit check failed, allowing request",
			logger.String("class", string(class)),
			logger.Error(err),
		)
		return nil
	}

	if result.(int64) > rule.Limit {
		retryAfter := windowStart.Add(rule.Window).Sub(now)
		return &domain.RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}
