package results_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/e2ekit/results"
)

func TestCollector_Counts(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	now := start
	c := results.NewCollector("run-1", results.WithClock(func() time.Time { return now }))

	c.Begin()
	c.Record(results.TestResult{Title: "login", File: "tests/features/login.feature", Status: results.StatusPassed})
	c.Record(results.TestResult{Title: "cart", File: "tests/features/cart.feature", Status: results.StatusPassed, Retry: 1})
	c.Record(results.TestResult{Title: "checkout", File: "tests/features/checkout.feature", Status: results.StatusFailed, Error: "expected 3 items"})
	c.Record(results.TestResult{Title: "slow", File: "tests/features/perf.feature", Status: results.StatusTimedOut, Error: "ignored"})
	c.Record(results.TestResult{Title: "mobile", File: "tests/features/mobile.feature", Status: results.StatusSkipped})
	now = start.Add(90 * time.Second)
	s := c.End()

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Flaky)
	assert.Equal(t, 90*time.Second, s.Duration)
	assert.True(t, s.HasFailures())
	assert.InDelta(t, 40.0, s.PassRate(), 0.001)

	require.Len(t, s.FailedTests, 2)
	assert.Equal(t, results.FailedTest{Title: "checkout", File: "checkout.feature", Error: "expected 3 items"}, s.FailedTests[0])
	assert.Equal(t, "Test timed out", s.FailedTests[1].Error)
}

func TestCollector_TruncatesError(t *testing.T) {
	c := results.NewCollector("run-2")
	c.Begin()
	c.Record(results.TestResult{Title: "t", File: "a.feature", Status: results.StatusFailed, Error: strings.Repeat("é", 250)})

	s := c.End()
	assert.Len(t, []rune(s.FailedTests[0].Error), 200)
}

func TestSummary_EmptyRun(t *testing.T) {
	s := results.NewCollector("run-3").End()
	assert.Zero(t, s.PassRate())
	assert.False(t, s.HasFailures())
	assert.NotNil(t, s.FailedTests)
}

func TestCollector_Concurrent(t *testing.T) {
	c := results.NewCollector("run-4")
	c.Begin()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Record(results.TestResult{Title: "t", File: "f", Status: results.StatusPassed})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Snapshot().Passed)
}

func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := results.NewCollector("run-5")
	c.Begin()
	c.Record(results.TestResult{Title: "a", File: "f", Status: results.StatusFailed})
	snap := c.Snapshot()
	snap.FailedTests[0].Title = "mutated"

	assert.Equal(t, "a", c.Snapshot().FailedTests[0].Title)
}
