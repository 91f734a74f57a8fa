package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	_defaultWaitTimeout  = 30 * time.Second
	_defaultWaitInterval = 500 * time.Millisecond
)

// ErrConditionTimeout is returned by WaitForCondition when the deadline passes
// before the condition holds.
var ErrConditionTimeout = errors.New("condition not met")

type waitConfig struct {
	timeout  time.Duration
	interval time.Duration
}

// WaitOption configures WaitForCondition.
type WaitOption func(*waitConfig)

// Timeout sets the overall deadline. Non-positive values keep the 30s default.
func Timeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Interval sets the pause between polls. Non-positive values keep the 500ms default.
func Interval(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WaitForCondition polls cond until it returns true or the timeout elapses.
// An error from cond counts as "not yet".
func WaitForCondition(
	ctx context.Context,
	cond func(context.Context) (bool, error),
	opts ...WaitOption,
) (bool, error) {
	cfg := waitConfig{
		timeout:  _defaultWaitTimeout,
		interval: _defaultWaitInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var lastErr error
	start := time.Now()

	for time.Since(start) < cfg.timeout {
		ok, err := cond(ctx)
		if err == nil && ok {
			return true, nil
		}
		if err != nil {
			lastErr = err
		}

		if err := sleep(ctx, cfg.interval); err != nil {
			return false, err
		}
	}

	if lastErr != nil {
		return false, fmt.Errorf("%w within %s timeout (last error: %v)", ErrConditionTimeout, cfg.timeout, lastErr)
	}
	return false, fmt.Errorf("%w within %s timeout", ErrConditionTimeout, cfg.timeout)
}
