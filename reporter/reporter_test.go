package reporter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/rabbitmq"
	"github.com/wb-go/e2ekit/reporter"
	"github.com/wb-go/e2ekit/results"
)

type fakeResults struct {
	err    error
	runIDs []string
	titles []string
}

func (f *fakeResults) PublishResult(_ context.Context, runID string, r results.TestResult) error {
	f.runIDs = append(f.runIDs, runID)
	f.titles = append(f.titles, r.Title)
	return f.err
}

type fakeSummaries struct {
	err  error
	sent []results.Summary
}

func (f *fakeSummaries) PublishSummary(_ context.Context, s results.Summary, _ ...rabbitmq.PublishOption) error {
	f.sent = append(f.sent, s)
	return f.err
}

func quietLogger() logger.Logger {
	return logger.NewSlogAdapter("e2ekit", "test", logger.WithoutStdout())
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(30 * time.Second)
		return t
	}
}

func TestReporter_FullRun(t *testing.T) {
	rp := &fakeResults{}
	sp := &fakeSummaries{}
	r := reporter.New("run-1", rp, sp, quietLogger(), results.WithClock(fixedClock()))

	ctx := context.Background()
	r.OnBegin()
	r.OnTestEnd(ctx, results.TestResult{Title: "login", File: "tests/auth.spec.ts", Status: results.StatusPassed, Retry: 1})
	r.OnTestEnd(ctx, results.TestResult{Title: "checkout", File: "tests/cart.spec.ts", Status: results.StatusTimedOut})

	s, err := r.OnEnd(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"run-1", "run-1"}, rp.runIDs)
	assert.Equal(t, []string{"login", "checkout"}, rp.titles)
	require.Len(t, sp.sent, 1)
	assert.Equal(t, s, sp.sent[0])
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Flaky)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 30*time.Second, s.Duration)
	assert.Equal(t, "Test timed out", s.FailedTests[0].Error)
}

func TestReporter_StreamFailureKeepsSummary(t *testing.T) {
	r := reporter.New("run-1", &fakeResults{err: errors.New("broker down")}, nil, quietLogger())
	r.OnBegin()
	r.OnTestEnd(context.Background(), results.TestResult{Title: "a", File: "a.spec.ts", Status: results.StatusPassed})

	s, err := r.OnEnd(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Passed)
}

func TestReporter_SummaryPublishError(t *testing.T) {
	r := reporter.New("run-1", nil, &fakeSummaries{err: errors.New("channel lost")}, quietLogger())
	r.OnBegin()

	s, err := r.OnEnd(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reporter.OnEnd: channel lost")
	assert.Equal(t, "run-1", s.RunID)
}
