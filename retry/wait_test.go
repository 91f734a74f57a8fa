package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/e2ekit/retry"
)

func TestWaitForCondition_TrueOnThirdPoll(t *testing.T) {
	polls := 0
	start := time.Now()

	ok, err := retry.WaitForCondition(context.Background(), func(context.Context) (bool, error) {
		polls++
		return polls == 3, nil
	}, retry.Timeout(time.Second), retry.Interval(200*time.Millisecond))

	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, polls)
	assert.GreaterOrEqual(t, elapsed, 400*time.Millisecond)
	assert.Less(t, elapsed, 800*time.Millisecond)
}

func TestWaitForCondition_ImmediateTrue(t *testing.T) {
	start := time.Now()
	ok, err := retry.WaitForCondition(context.Background(), func(context.Context) (bool, error) {
		return true, nil
	}, retry.Timeout(5*time.Second))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForCondition_ErrorsMeanNotYet(t *testing.T) {
	polls := 0
	ok, err := retry.WaitForCondition(context.Background(), func(context.Context) (bool, error) {
		polls++
		if polls < 3 {
			return false, errors.New("element detached")
		}
		return true, nil
	}, retry.Timeout(time.Second), retry.Interval(5*time.Millisecond))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, polls)
}

func TestWaitForCondition_Timeout(t *testing.T) {
	ok, err := retry.WaitForCondition(context.Background(), func(context.Context) (bool, error) {
		return false, nil
	}, retry.Timeout(100*time.Millisecond), retry.Interval(20*time.Millisecond))

	assert.False(t, ok)
	require.ErrorIs(t, err, retry.ErrConditionTimeout)
	assert.Contains(t, err.Error(), "100ms")
}

func TestWaitForCondition_TimeoutReportsLastError(t *testing.T) {
	_, err := retry.WaitForCondition(context.Background(), func(context.Context) (bool, error) {
		return false, errors.New("cart badge missing")
	}, retry.Timeout(30*time.Millisecond), retry.Interval(10*time.Millisecond))

	require.ErrorIs(t, err, retry.ErrConditionTimeout)
	assert.Contains(t, err.Error(), "cart badge missing")
}

func TestWaitForCondition_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ok, err := retry.WaitForCondition(ctx, func(context.Context) (bool, error) {
		cancel()
		return false, nil
	}, retry.Timeout(time.Minute), retry.Interval(time.Minute))

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, retry.ErrConditionTimeout)
}
