package retry

import (
	"context"
	"time"
)

// Stats describes how a DoWithStats call went.
type Stats struct {
	TotalAttempts     int
	SuccessfulAttempt int // 1-based, 0 when every attempt failed
	TotalDelay        time.Duration
	Errors            []string // messages of failed attempts, in attempt order
}

// Succeeded reports whether one of the attempts succeeded.
func (s Stats) Succeeded() bool {
	return s.SuccessfulAttempt > 0
}

// DoWithStats is DoValue that also reports attempt statistics.
// Stats are returned on failure as well.
func DoWithStats[T any](ctx context.Context, strategy Strategy, fn func() (T, error)) (T, Stats, error) {
	var stats Stats
	v, err := execute(ctx, strategy, fn, &stats)
	return v, stats, err
}
