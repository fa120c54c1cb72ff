package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBucket(capacity int, period time.Duration) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	tb := NewTokenBucket(capacity, period)
	tb.now = clock.Now
	tb.lastRefill = clock.Now()
	return tb, clock
}

func TestTokenBucket(t *testing.T) {
	limiter, clock := newTestBucket(3, 300*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(), "request %d should be allowed", i+1)
	}
	assert.False(t, limiter.Allow(), "4th request should be denied")

	// One token per 100ms
	clock.Advance(100 * time.Millisecond)
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	clock.Advance(time.Hour)
	assert.Equal(t, 3, limiter.Tokens())
}

func TestTokenBucketReset(t *testing.T) {
	limiter, _ := newTestBucket(2, time.Minute)
	limiter.Allow()
	limiter.Allow()
	assert.False(t, limiter.Allow())

	limiter.Reset()
	assert.Equal(t, 2, limiter.Tokens())
}

func TestTokenBucketWait(t *testing.T) {
	limiter := NewTokenBucket(1, 20*time.Millisecond)
	require.True(t, limiter.Allow())

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	limiter := PerMinute(1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow())
	}
	assert.NoError(t, l.Wait(context.Background()))
}
