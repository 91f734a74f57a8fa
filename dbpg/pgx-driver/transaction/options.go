package transaction

import (
	"errors"
	"time"
)

var (
	// ErrInvalidMaxAttempts is returned when MaxAttempts <= 0.
	ErrInvalidMaxAttempts = errors.New("invalid maxAttempts: must be > 0")
	// ErrInvalidBaseRetryDelay is returned when BaseRetryDelay <= 0.
	ErrInvalidBaseRetryDelay = errors.New("invalid base retry delay: must be > 0")
	// ErrInvalidMaxRetryDelay is returned when MaxRetryDelay <= 0.
	ErrInvalidMaxRetryDelay = errors.New("invalid max retry delay: must be > 0")
	// ErrBaseExceedsMaxDelay is returned when BaseRetryDelay > MaxRetryDelay.
	ErrBaseExceedsMaxDelay = errors.New("baseRetryDelay cannot exceed maxRetryDelay")
)

// Option configures the transaction manager.
type Option func(*manager)

// MaxAttempts sets how many times a transaction runs, the first run included.
func MaxAttempts(attempts int) Option {
	return func(m *manager) {
		m.maxAttempts = attempts
	}
}

// BaseRetryDelay sets the wait before the first restart.
func BaseRetryDelay(delay time.Duration) Option {
	return func(m *manager) {
		m.baseRetryDelay = delay
	}
}

// MaxRetryDelay caps the wait between restarts.
func MaxRetryDelay(delay time.Duration) Option {
	return func(m *manager) {
		m.maxRetryDelay = delay
	}
}

func (m *manager) validate() error {
	switch {
	case m.maxAttempts <= 0:
		return ErrInvalidMaxAttempts
	case m.baseRetryDelay <= 0:
		return ErrInvalidBaseRetryDelay
	case m.maxRetryDelay <= 0:
		return ErrInvalidMaxRetryDelay
	case m.baseRetryDelay > m.maxRetryDelay:
		return ErrBaseExceedsMaxDelay
	}
	return nil
}
