package retry_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/retry"
)

var errFlaky = errors.New("flaky")

func quiet(opts ...retry.Option) retry.Strategy {
	return retry.New(append([]retry.Option{retry.LogRetries(false)}, opts...)...)
}

func TestNew_Defaults(t *testing.T) {
	s := retry.New()

	assert.Equal(t, 3, s.MaxRetries)
	assert.Equal(t, time.Second, s.Delay)
	assert.Equal(t, 2.0, s.Backoff)
	assert.Equal(t, 10*time.Second, s.MaxDelay)
	assert.True(t, s.LogRetries)
	assert.Nil(t, s.ShouldRetry)
}

func TestDo_AlwaysFailingRunsMaxRetriesPlusOne(t *testing.T) {
	for n := 0; n <= 3; n++ {
		t.Run(fmt.Sprintf("max_retries_%d", n), func(t *testing.T) {
			calls := 0
			err := retry.Do(context.Background(), quiet(retry.MaxRetries(n), retry.InitialDelay(time.Millisecond)),
				func() error {
					calls++
					return fmt.Errorf("attempt %d: %w", calls, errFlaky)
				})

			require.Error(t, err)
			assert.Equal(t, n+1, calls)
			assert.ErrorIs(t, err, errFlaky)
			assert.Equal(t, fmt.Sprintf("attempt %d: flaky", n+1), err.Error())
		})
	}
}

func TestDoValue_SucceedsOnAttemptK(t *testing.T) {
	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprintf("attempt_%d", k), func(t *testing.T) {
			calls, waits := 0, 0
			s := quiet(
				retry.MaxRetries(3),
				retry.InitialDelay(time.Millisecond),
				retry.OnRetry(func(int, error, time.Duration) { waits++ }),
			)

			v, err := retry.DoValue(context.Background(), s, func() (string, error) {
				calls++
				if calls < k {
					return "", errFlaky
				}
				return "ok", nil
			})

			require.NoError(t, err)
			assert.Equal(t, "ok", v)
			assert.Equal(t, k, calls)
			assert.Equal(t, k-1, waits, "no wait may follow a success")
		})
	}
}

func TestDoValue_BackoffSchedule(t *testing.T) {
	cases := []struct {
		initial    time.Duration
		multiplier float64
		max        time.Duration
	}{
		{initial: 2 * time.Millisecond, multiplier: 2, max: time.Second},
		{initial: 2 * time.Millisecond, multiplier: 3, max: 10 * time.Millisecond},
		{initial: 4 * time.Millisecond, multiplier: 1.5, max: 0},
		{initial: 8 * time.Millisecond, multiplier: 2, max: 5 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_x%.1f_max_%s", tc.initial, tc.multiplier, tc.max), func(t *testing.T) {
			var delays []time.Duration
			s := quiet(
				retry.MaxRetries(4),
				retry.InitialDelay(tc.initial),
				retry.BackoffMultiplier(tc.multiplier),
				retry.MaxDelay(tc.max),
				retry.OnRetry(func(_ int, _ error, d time.Duration) { delays = append(delays, d) }),
			)

			_, err := retry.DoValue(context.Background(), s, func() (int, error) { return 0, errFlaky })
			require.ErrorIs(t, err, errFlaky)
			require.Len(t, delays, 4)

			for i, got := range delays {
				k := i + 2
				want := time.Duration(float64(tc.initial) * math.Pow(tc.multiplier, float64(k-2)))
				if tc.max > 0 && want > tc.max {
					want = tc.max
				}
				assert.Equal(t, want, got, "delay before attempt %d", k)
			}
		})
	}
}

func TestDo_HugeBackoffIsClamped(t *testing.T) {
	t.Run("capped", func(t *testing.T) {
		var delays []time.Duration
		s := quiet(
			retry.MaxRetries(3),
			retry.InitialDelay(time.Millisecond),
			retry.BackoffMultiplier(1e17),
			retry.MaxDelay(20*time.Millisecond),
			retry.OnRetry(func(_ int, _ error, d time.Duration) { delays = append(delays, d) }),
		)

		start := time.Now()
		err := retry.Do(context.Background(), s, func() error { return errFlaky })
		require.ErrorIs(t, err, errFlaky)
		assert.Equal(t, []time.Duration{time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond}, delays)
		assert.GreaterOrEqual(t, time.Since(start), 41*time.Millisecond)
	})

	t.Run("unbounded", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var delays []time.Duration
		s := quiet(
			retry.MaxRetries(3),
			retry.InitialDelay(time.Millisecond),
			retry.BackoffMultiplier(1e17),
			retry.MaxDelay(0),
			retry.OnRetry(func(_ int, _ error, d time.Duration) {
				delays = append(delays, d)
				if len(delays) == 2 {
					cancel()
				}
			}),
		)

		err := retry.Do(ctx, s, func() error { return errFlaky })
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []time.Duration{time.Millisecond, time.Duration(math.MaxInt64)}, delays)
	})
}

func TestDo_FailsTwiceThenSucceeds(t *testing.T) {
	var delays []time.Duration
	calls := 0
	s := quiet(
		retry.MaxRetries(3),
		retry.InitialDelay(100*time.Millisecond),
		retry.BackoffMultiplier(2),
		retry.OnRetry(func(_ int, _ error, d time.Duration) { delays = append(delays, d) }),
	)

	start := time.Now()
	v, err := retry.DoValue(context.Background(), s, func() (string, error) {
		calls++
		if calls <= 2 {
			return "", errFlaky
		}
		return "checkout complete", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "checkout complete", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestDo_ExhaustedReturnsLastError(t *testing.T) {
	calls := 0
	errs := make([]error, 0, 3)

	err := retry.Do(context.Background(), quiet(retry.MaxRetries(2), retry.InitialDelay(time.Millisecond)),
		func() error {
			calls++
			e := fmt.Errorf("attempt %d refused", calls)
			errs = append(errs, e)
			return e
		})

	assert.Equal(t, 3, calls)
	assert.Same(t, errs[2], err)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls, waits := 0, 0
	s := quiet(
		retry.MaxRetries(5),
		retry.InitialDelay(time.Millisecond),
		retry.ShouldRetry(func(err error) bool { return strings.Contains(err.Error(), "timeout") }),
		retry.OnRetry(func(int, error, time.Duration) { waits++ }),
	)

	refused := errors.New("connection refused")
	err := retry.Do(context.Background(), s, func() error {
		calls++
		return refused
	})

	assert.Same(t, refused, err)
	assert.Equal(t, 1, calls)
	assert.Zero(t, waits)
}

func TestDo_ShouldRetryRejectsLaterAttempt(t *testing.T) {
	calls := 0
	fatal := errors.New("fatal")
	s := quiet(
		retry.MaxRetries(5),
		retry.InitialDelay(time.Millisecond),
		retry.ShouldRetry(func(err error) bool { return !errors.Is(err, fatal) }),
	)

	err := retry.Do(context.Background(), s, func() error {
		calls++
		if calls == 2 {
			return fatal
		}
		return errFlaky
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 2, calls)
}

func TestWithFixedDelay_ConstantDelay(t *testing.T) {
	var delays []time.Duration
	calls := 0

	_, err := retry.WithFixedDelay(context.Background(), func() (int, error) {
		calls++
		return 0, errFlaky
	}, 4, 3*time.Millisecond,
		retry.LogRetries(false),
		retry.OnRetry(func(_ int, _ error, d time.Duration) { delays = append(delays, d) }),
	)

	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 5, calls)
	require.Len(t, delays, 4)
	for _, d := range delays {
		assert.Equal(t, 3*time.Millisecond, d)
	}
}

func TestDo_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s := quiet(
		retry.MaxRetries(3),
		retry.InitialDelay(time.Minute),
		retry.OnRetry(func(int, error, time.Duration) { cancel() }),
	)

	err := retry.Do(ctx, s, func() error {
		calls++
		return errFlaky
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errFlaky)
}

func TestDo_ZeroStrategySingleAttempt(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), retry.Strategy{MaxRetries: -2, Backoff: 0.5}, func() error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDo_LogsTruncatedAttempts(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogAdapter("e2e", "test", logger.WithWriter(&buf), logger.WithLevel(logger.DebugLevel))

	long := strings.Repeat("x", 150)
	_ = retry.Do(context.Background(), retry.New(
		retry.MaxRetries(1),
		retry.InitialDelay(time.Millisecond),
		retry.WithLogger(log),
	), func() error { return errors.New(long) })

	out := buf.String()
	assert.Contains(t, out, "attempt failed")
	assert.Contains(t, out, strings.Repeat("x", 100)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 101))
	assert.Contains(t, out, "all retries failed")
}

func TestDo_NoLogsWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogAdapter("e2e", "test", logger.WithWriter(&buf))

	_ = retry.Do(context.Background(), quiet(
		retry.MaxRetries(1),
		retry.InitialDelay(time.Millisecond),
		retry.WithLogger(log),
	), func() error { return errFlaky })

	assert.Empty(t, buf.String())
}

func TestOnRetry_Chains(t *testing.T) {
	var order []string
	s := quiet(
		retry.MaxRetries(1),
		retry.InitialDelay(time.Millisecond),
		retry.OnRetry(func(int, error, time.Duration) { order = append(order, "first") }),
		retry.OnRetry(func(int, error, time.Duration) { order = append(order, "second") }),
	)

	_ = retry.Do(context.Background(), s, func() error { return errFlaky })

	assert.Equal(t, []string{"first", "second"}, order)
}
