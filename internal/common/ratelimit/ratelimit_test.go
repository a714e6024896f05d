package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-insights/internal/common/logger"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var testRules = Rules{
	"create_customer": {Limit: 2, Window: time.Minute},
}

func newRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis, *fakeClock) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := &fakeClock{t: time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)}
	l := NewRedisLimiter(client, testRules, logger.NewTestLogger(t))
	l.now = clock.now
	return l, mr, clock
}

// keys reports how many action:tenant entries the limiter holds.
func (m *MemoryLimiter) keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hits)
}

func newMemoryLimiter() (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(testRules)
	l.now = clock.now
	return l, clock
}

func TestLimiters(t *testing.T) {
	ctx := context.Background()

	impls := map[string]func(t *testing.T) (Limiter, *fakeClock){
		"memory": func(t *testing.T) (Limiter, *fakeClock) {
			l, c := newMemoryLimiter()
			return l, c
		},
		"redis": func(t *testing.T) (Limiter, *fakeClock) {
			l, _, c := newRedisLimiter(t)
			return l, c
		},
	}

	for name, build := range impls {
		t.Run(name+"/blocks after limit", func(t *testing.T) {
			l, _ := build(t)
			assert.True(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
			assert.True(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
			assert.False(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
		})

		t.Run(name+"/tenants are independent", func(t *testing.T) {
			l, _ := build(t)
			assert.True(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
			assert.True(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
			assert.True(t, l.CheckLimit(ctx, "create_customer", "biz-2"))
		})

		t.Run(name+"/window slides", func(t *testing.T) {
			l, clock := build(t)
			assert.True(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
			clock.advance(30 * time.Second)
			assert.True(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
			assert.False(t, l.CheckLimit(ctx, "create_customer", "biz-1"))

			clock.advance(31 * time.Second)
			assert.True(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
			assert.False(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
		})

		t.Run(name+"/unknown action is unlimited", func(t *testing.T) {
			l, _ := build(t)
			for i := 0; i < 10; i++ {
				assert.True(t, l.CheckLimit(ctx, "smart_chat", "biz-1"))
			}
		})
	}
}

func TestMemoryLimiter_DropsIdleTenants(t *testing.T) {
	l, clock := newMemoryLimiter()
	ctx := context.Background()

	for _, tenant := range []string{"biz-1", "biz-2", "biz-3"} {
		require.True(t, l.CheckLimit(ctx, "create_customer", tenant))
	}
	assert.Equal(t, 3, l.keys())

	clock.advance(2 * time.Minute)
	require.True(t, l.CheckLimit(ctx, "create_customer", "biz-4"))

	assert.Equal(t, 1, l.keys())
}

func TestMemoryLimiter_KeepsActiveTenantsOnSweep(t *testing.T) {
	l, clock := newMemoryLimiter()
	ctx := context.Background()

	require.True(t, l.CheckLimit(ctx, "create_customer", "biz-1"))
	clock.advance(2 * time.Minute)
	require.True(t, l.CheckLimit(ctx, "create_customer", "biz-3"))
	clock.advance(10 * time.Second)
	require.True(t, l.CheckLimit(ctx, "create_customer", "biz-2"))
	clock.advance(10 * time.Second)
	require.True(t, l.CheckLimit(ctx, "create_customer", "biz-2"))

	// The next call sweeps biz-3 but biz-2 is still inside its window.
	clock.advance(45 * time.Second)
	assert.False(t, l.CheckLimit(ctx, "create_customer", "biz-2"))
	assert.Equal(t, 1, l.keys())
}

func TestMemoryLimiter_ZeroLimitHoldsNoState(t *testing.T) {
	l := NewMemoryLimiter(Rules{"blocked": {Limit: 0, Window: time.Minute}})

	assert.False(t, l.CheckLimit(context.Background(), "blocked", "biz-1"))
	assert.Equal(t, 0, l.keys())
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	l, mr, _ := newRedisLimiter(t)
	mr.Close()

	assert.True(t, l.CheckLimit(context.Background(), "create_customer", "biz-1"))
}

func TestRedisLimiter_KeysArePerActionAndTenant(t *testing.T) {
	l, mr, _ := newRedisLimiter(t)

	require.True(t, l.CheckLimit(context.Background(), "create_customer", "biz-9"))

	assert.True(t, mr.Exists("ratelimit:create_customer:biz-9"))
	members, err := mr.ZMembers("ratelimit:create_customer:biz-9")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestAllowAll(t *testing.T) {
	assert.True(t, AllowAll{}.CheckLimit(context.Background(), "anything", "anyone"))
}
