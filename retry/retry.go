// Package retry runs flaky operations again with exponential backoff.
// Attempts are strictly sequential: an operation is never in flight twice.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/wb-go/e2ekit/logger"
)

const (
	_defaultMaxRetries = 3
	_defaultDelay      = time.Second
	_defaultBackoff    = 2
	_defaultMaxDelay   = 10 * time.Second

	_maxLoggedMessage = 100
)

// Strategy describes how an operation is retried.
// A zero Strategy makes exactly one attempt; use New for the documented defaults.
type Strategy struct {
	MaxRetries int           // retries after the initial attempt
	Delay      time.Duration // wait before the first retry
	Backoff    float64       // multiplier applied to the wait after each failure, values below 1 mean 1
	MaxDelay   time.Duration // upper bound on any wait, 0 means unbounded

	// ShouldRetry stops retrying as soon as it returns false. Nil retries every error.
	ShouldRetry func(error) bool
	LogRetries  bool
	Logger      logger.Logger

	// OnRetry is called before each wait with the 1-based number of the failed attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

var defaultLogger = sync.OnceValue(func() logger.Logger {
	return logger.NewSlogAdapter("e2ekit", "")
})

// Do executes fn under the strategy and returns nil on the first success,
// or the error of the last attempt.
func Do(ctx context.Context, strategy Strategy, fn func() error) error {
	_, err := execute(ctx, strategy, func() (struct{}, error) {
		return struct{}{}, fn()
	}, nil)
	return err
}

// DoValue is Do for operations producing a value.
func DoValue[T any](ctx context.Context, strategy Strategy, fn func() (T, error)) (T, error) {
	return execute(ctx, strategy, fn, nil)
}

// WithFixedDelay retries fn up to maxRetries times, waiting the same delay before every retry.
func WithFixedDelay[T any](
	ctx context.Context,
	fn func() (T, error),
	maxRetries int,
	delay time.Duration,
	opts ...Option,
) (T, error) {
	opts = append([]Option{
		MaxRetries(maxRetries),
		InitialDelay(delay),
		BackoffMultiplier(1),
		MaxDelay(delay),
	}, opts...)
	return execute(ctx, New(opts...), fn, nil)
}

func execute[T any](ctx context.Context, s Strategy, fn func() (T, error), stats *Stats) (T, error) {
	var (
		zero    T
		lastErr error
	)

	s = s.normalize()
	delay := s.capped(s.Delay)

	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if stats != nil {
			stats.TotalAttempts++
		}

		v, err := fn()
		if err == nil {
			if stats != nil {
				stats.SuccessfulAttempt = attempt + 1
			}
			if attempt > 0 && s.LogRetries {
				s.logger().LogAttrs(ctx, logger.InfoLevel, "attempt succeeded",
					logger.Int("attempt", attempt+1),
				)
			}
			return v, nil
		}

		lastErr = err
		if stats != nil {
			stats.Errors = append(stats.Errors, err.Error())
		}

		if s.ShouldRetry != nil && !s.ShouldRetry(err) {
			return zero, err
		}

		if attempt == s.MaxRetries {
			break
		}

		if s.LogRetries {
			s.logger().LogAttrs(ctx, logger.WarnLevel, "attempt failed",
				logger.Int("attempt", attempt+1),
				logger.Int("max_retries", s.MaxRetries),
				logger.String("error", truncate(err.Error(), _maxLoggedMessage)),
				logger.String("retry_after", delay.String()),
			)
		}
		if s.OnRetry != nil {
			s.OnRetry(attempt+1, err, delay)
		}

		if waitErr := sleep(ctx, delay); waitErr != nil {
			return zero, fmt.Errorf("retry cancelled after attempt %d: %w", attempt+1, errors.Join(waitErr, lastErr))
		}
		if stats != nil {
			stats.TotalDelay += delay
		}

		delay = s.next(delay)
	}

	if s.LogRetries {
		s.logger().LogAttrs(ctx, logger.ErrorLevel, "all retries failed",
			logger.Int("max_retries", s.MaxRetries),
			logger.String("error", truncate(lastErr.Error(), _maxLoggedMessage)),
		)
	}

	return zero, lastErr
}

func (s Strategy) normalize() Strategy {
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.Delay < 0 {
		s.Delay = 0
	}
	if s.Backoff < 1 {
		s.Backoff = 1
	}
	if s.MaxDelay < 0 {
		s.MaxDelay = 0
	}
	return s
}

func (s Strategy) capped(d time.Duration) time.Duration {
	if s.MaxDelay > 0 && d > s.MaxDelay {
		return s.MaxDelay
	}
	return d
}

// next multiplies d by Backoff. The product is clamped in float64 so it never wraps past MaxInt64.
func (s Strategy) next(d time.Duration) time.Duration {
	n := float64(d) * s.Backoff
	if s.MaxDelay > 0 && n >= float64(s.MaxDelay) {
		return s.MaxDelay
	}
	if n >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(n)
}

func (s Strategy) logger() logger.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return defaultLogger()
}

// sleep is the only suspension point of the package.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
