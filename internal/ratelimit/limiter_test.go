package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crestbank/corebank/internal/domain"
)

func newTestLimiter(t *testing.T, rules map[Class]Rule) *Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, rules)
}

func TestCheckAllowsWithinLimit(t *testing.T) {
	l := newTestLimiter(t, map[Class]Rule{
		ClassLogin: {Limit: 3, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, l.Check(ctx, "10.0.0.1", ClassLogin))
	}
}

func TestCheckBlocksOverLimit(t *testing.T) {
	l := newTestLimiter(t, map[Class]Rule{
		ClassLogin: {Limit: 2, Window: time.Minute},
	})
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return base }

	require.NoError(t, l.Check(ctx, "10.0.0.1", ClassLogin))
	require.NoError(t, l.Check(ctx, "10.0.0.1", ClassLogin))

	err := l.Check(ctx, "10.0.0.1", ClassLogin)
	require.ErrorIs(t, err, domain.ErrRateLimited)

	var rle *domain.RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, 50*time.Second, rle.RetryAfter)
}

func TestCheckWindowRollover(t *testing.T) {
	l := newTestLimiter(t, map[Class]Rule{
		ClassMutation: {Limit: 1, Window: time.Minute},
	})
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return base }

	require.NoError(t, l.Check(ctx, "usr-1", ClassMutation))
	require.ErrorIs(t, l.Check(ctx, "usr-1", ClassMutation), domain.ErrRateLimited)

	l.now = func() time.Time { return base.Add(time.Minute) }
	assert.NoError(t, l.Check(ctx, "usr-1", ClassMutation))
}

func TestCheckIsolatesKeysAndClasses(t *testing.T) {
	l := newTestLimiter(t, map[Class]Rule{
		ClassLogin: {Limit: 1, Window: time.Minute},
		ClassReset: {Limit: 1, Window: time.Minute},
	})
	ctx := context.Background()

	require.NoError(t, l.Check(ctx, "10.0.0.1", ClassLogin))
	require.ErrorIs(t, l.Check(ctx, "10.0.0.1", ClassLogin), domain.ErrRateLimited)

	// Other identities and other classes keep their own budget.
	assert.NoError(t, l.Check(ctx, "10.0.0.2", ClassLogin))
	assert.NoError(t, l.Check(ctx, "10.0.0.1", ClassReset))
}

func TestCheckUnknownClassAllowed(t *testing.T) {
	l := newTestLimiter(t, map[Class]Rule{})
	assert.NoError(t, l.Check(context.Background(), "usr-1", ClassMutation))
}

func TestCheckFailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := New(client, map[Class]Rule{
		ClassLogin: {Limit: 1, Window: time.Minute},
	})
	mr.Close()

	for i := 0; i < 5; i++ {
		assert.NoError(t, l.Check(context.Background(), "10.0.0.1", ClassLogin))
	}
}
