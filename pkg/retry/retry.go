package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "educabiz-exporter/pkg/errors"
	"educabiz-exporter/pkg/logger"
)

// PollFunc performs one attempt. It returns done=true once the awaited
// condition holds. Any error ends polling immediately.
type PollFunc func(ctx context.Context, attempt int) (done bool, err error)

// Config bounds a polling loop
type Config struct {
	// Backoff between attempts
	Backoff BackoffStrategy
	// MaxAttempts caps the number of attempts (0 means no cap)
	MaxAttempts int
	// Timeout caps the total wall time (0 means bounded only by ctx)
	Timeout time.Duration
	// Logger for attempt bookkeeping
	Logger logger.Logger
}

// FixedInterval returns a Config that polls every interval
func FixedInterval(interval time.Duration, maxAttempts int, timeout time.Duration) *Config {
	return &Config{
		Backoff:     &ConstantBackoff{Delay: interval},
		MaxAttempts: maxAttempts,
		Timeout:     timeout,
		Logger:      logger.GetLogger(),
	}
}

// Poll calls fn until it reports done, returns an error, or a bound is hit.
// The first attempt runs immediately. Hitting the attempt cap or the timeout
// yields a timeout *errors.Error; cancellation of the parent ctx is returned
// as the bare context error.
func Poll(ctx context.Context, cfg *Config, fn PollFunc) error {
	if cfg == nil {
		cfg = FixedInterval(time.Second, 0, 0)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	parent := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	for attempt := 1; ; attempt++ {
		done, err := fn(ctx, attempt)
		if err != nil {
			if timedOut(parent, ctx, err) {
				return errs.Timeout(fmt.Sprintf("gave up after %s", cfg.Timeout), err)
			}
			return err
		}
		if done {
			if attempt > 1 {
				log.DebugWithFields("poll condition met", map[string]interface{}{"attempts": attempt})
			}
			return nil
		}

		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return errs.Timeout(fmt.Sprintf("gave up after %d attempts", attempt), nil)
		}

		if err := Wait(ctx, cfg.Backoff.NextDelay(attempt)); err != nil {
			if timedOut(parent, ctx, err) {
				return errs.Timeout(fmt.Sprintf("gave up after %s", cfg.Timeout), err)
			}
			return err
		}
	}
}

// timedOut distinguishes our own deadline from the caller cancelling
func timedOut(parent, ctx context.Context, err error) bool {
	return parent.Err() == nil && ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded)
}
