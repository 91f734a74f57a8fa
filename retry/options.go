package retry

import (
	"time"

	"github.com/wb-go/e2ekit/logger"
)

// Option represents a functional configuration option for a Strategy.
type Option func(*Strategy)

// New returns a Strategy with the defaults (3 retries, 1s initial delay, x2 backoff,
// 10s cap, every error retried, retries logged) overridden by opts.
func New(opts ...Option) Strategy {
	s := Strategy{
		MaxRetries: _defaultMaxRetries,
		Delay:      _defaultDelay,
		Backoff:    _defaultBackoff,
		MaxDelay:   _defaultMaxDelay,
		LogRetries: true,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// MaxRetries sets the number of retries after the initial attempt.
func MaxRetries(n int) Option {
	return func(s *Strategy) {
		s.MaxRetries = n
	}
}

// InitialDelay sets the wait before the first retry.
func InitialDelay(d time.Duration) Option {
	return func(s *Strategy) {
		s.Delay = d
	}
}

// BackoffMultiplier sets the factor applied to the wait after each failed attempt.
func BackoffMultiplier(m float64) Option {
	return func(s *Strategy) {
		s.Backoff = m
	}
}

// MaxDelay sets the upper bound on the wait between attempts.
func MaxDelay(d time.Duration) Option {
	return func(s *Strategy) {
		s.MaxDelay = d
	}
}

// ShouldRetry installs the error filter.
func ShouldRetry(fn func(error) bool) Option {
	return func(s *Strategy) {
		s.ShouldRetry = fn
	}
}

// LogRetries toggles progress diagnostics.
func LogRetries(enabled bool) Option {
	return func(s *Strategy) {
		s.LogRetries = enabled
	}
}

// WithLogger routes diagnostics to l.
func WithLogger(l logger.Logger) Option {
	return func(s *Strategy) {
		s.Logger = l
	}
}

// OnRetry installs a hook called before every wait.
// An already installed hook keeps running before the new one.
func OnRetry(hook func(attempt int, err error, delay time.Duration)) Option {
	return func(s *Strategy) {
		prev := s.OnRetry
		if prev == nil {
			s.OnRetry = hook
			return
		}
		s.OnRetry = func(attempt int, err error, delay time.Duration) {
			prev(attempt, err, delay)
			hook(attempt, err, delay)
		}
	}
}

// With returns a copy of s with opts applied.
func (s Strategy) With(opts ...Option) Strategy {
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
