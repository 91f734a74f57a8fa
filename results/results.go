// Package results aggregates per-test outcomes of one suite run into a Summary.
package results

import (
	"path/filepath"
	"sync"
	"time"
)

// Status is the final state of one test.
type Status string

// Test statuses reported by the runner.
const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusTimedOut Status = "timedOut"
)

const (
	_maxErrorLen    = 200
	_timedOutReason = "Test timed out"
)

// TestResult is the outcome of one test, as reported at test end.
type TestResult struct {
	Title    string        `json:"title" binding:"required"`
	File     string        `json:"file" binding:"required"`
	Status   Status        `json:"status" binding:"required,oneof=passed failed skipped timedOut"`
	Retry    int           `json:"retry" binding:"min=0"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// FailedTest describes a failed or timed out test in a Summary.
type FailedTest struct {
	Title string `json:"title"`
	File  string `json:"file"`
	Error string `json:"error,omitempty"`
}

// Summary is the aggregate of one run.
type Summary struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Total       int           `json:"total"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Flaky       int           `json:"flaky"`
	FailedTests []FailedTest  `json:"failed_tests"`
}

// PassRate returns Passed/Total in percent, 0 for an empty run.
func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// HasFailures reports whether any test failed or timed out.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Collector accumulates results of one run. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	now     func() time.Time
	summary Summary
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// NewCollector creates a Collector for runID.
func NewCollector(runID string, opts ...Option) *Collector {
	c := &Collector{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.summary = Summary{RunID: runID, FailedTests: []FailedTest{}}
	return c
}

// Begin resets the counters and marks the run start.
func (c *Collector) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = Summary{
		RunID:       c.summary.RunID,
		StartedAt:   c.now(),
		FailedTests: []FailedTest{},
	}
}

// Record counts one finished test. Unknown statuses only increase Total.
func (c *Collector) Record(r TestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.summary
	s.Total++
	switch r.Status {
	case StatusPassed:
		s.Passed++
		if r.Retry > 0 {
			s.Flaky++
		}
	case StatusFailed:
		s.Failed++
		s.FailedTests = append(s.FailedTests, FailedTest{
			Title: r.Title,
			File:  filepath.Base(r.File),
			Error: truncate(r.Error, _maxErrorLen),
		})
	case StatusSkipped:
		s.Skipped++
	case StatusTimedOut:
		s.Failed++
		s.FailedTests = append(s.FailedTests, FailedTest{
			Title: r.Title,
			File:  filepath.Base(r.File),
			Error: _timedOutReason,
		})
	}
}

// End stamps the run duration and returns the final Summary.
func (c *Collector) End() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.summary.StartedAt.IsZero() {
		c.summary.Duration = c.now().Sub(c.summary.StartedAt)
	}
	return c.snapshot()
}

// Snapshot returns a copy of the current Summary without ending the run.
func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Collector) snapshot() Summary {
	s := c.summary
	s.FailedTests = append([]FailedTest(nil), c.summary.FailedTests...)
	if s.FailedTests == nil {
		s.FailedTests = []FailedTest{}
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
