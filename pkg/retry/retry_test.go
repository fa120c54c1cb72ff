package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "educabiz-exporter/pkg/errors"
	"educabiz-exporter/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxAttempts int, timeout time.Duration) *Config {
	return &Config{
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		MaxAttempts: maxAttempts,
		Timeout:     timeout,
		Logger:      logger.NewNopLogger(),
	}
}

func TestConstantBackoff(t *testing.T) {
	b := &ConstantBackoff{Delay: time.Second}
	assert.Equal(t, time.Duration(0), b.NextDelay(0))
	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, time.Second, b.NextDelay(attempt))
	}
}

func TestPollStopsWhenDone(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), fastConfig(0, 0), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		assert.Equal(t, calls, attempt)
		return attempt == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollFirstAttemptIsImmediate(t *testing.T) {
	cfg := &Config{Backoff: &ConstantBackoff{Delay: time.Hour}, Logger: logger.NewNopLogger()}

	start := time.Now()
	err := Poll(context.Background(), cfg, func(ctx context.Context, attempt int) (bool, error) {
		return true, nil
	})

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Poll(context.Background(), fastConfig(0, 0), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestPollAttemptCap(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), fastConfig(4, 0), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, nil
	})

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeTimeout))
	assert.Equal(t, 4, calls)
}

func TestPollTimeout(t *testing.T) {
	err := Poll(context.Background(), fastConfig(0, 20*time.Millisecond), func(ctx context.Context, attempt int) (bool, error) {
		return false, nil
	})

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	err := Poll(ctx, fastConfig(0, time.Minute), func(ctx context.Context, attempt int) (bool, error) {
		if attempt == 2 {
			cancel()
		}
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errs.IsType(err, errs.ErrorTypeTimeout))
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
