package pgxdriver

import (
	"errors"
	"time"
)

var (
	// ErrInvalidMaxPoolSize is returned when MaxPoolSize <= 0.
	ErrInvalidMaxPoolSize = errors.New("invalid maxPoolSize: must be > 0")
	// ErrInvalidConnAttempts is returned when MaxConnAttempts <= 0.
	ErrInvalidConnAttempts = errors.New("invalid connAttempts: must be > 0")
	// ErrInvalidBaseRetryDelay is returned when BaseRetryDelay <= 0.
	ErrInvalidBaseRetryDelay = errors.New("invalid base retry delay: must be > 0")
	// ErrInvalidMaxRetryDelay is returned when MaxRetryDelay <= 0.
	ErrInvalidMaxRetryDelay = errors.New("invalid max retry delay: must be > 0")
	// ErrBaseExceedsMaxDelay is returned when BaseRetryDelay > MaxRetryDelay.
	ErrBaseExceedsMaxDelay = errors.New("baseRetryDelay cannot exceed maxRetryDelay")
)

// Option represents a functional configuration option for the Postgres client.
type Option func(*Postgres)

// MaxPoolSize sets the maximum number of pooled connections.
func MaxPoolSize(size int32) Option {
	return func(p *Postgres) {
		p.maxPoolSize = size
	}
}

// MaxConnAttempts sets how many times New tries to connect, the first try included.
func MaxConnAttempts(attempts int) Option {
	return func(p *Postgres) {
		p.connAttempts = attempts
	}
}

// BaseRetryDelay sets the wait after the first failed connection attempt.
func BaseRetryDelay(delay time.Duration) Option {
	return func(p *Postgres) {
		p.baseRetryDelay = delay
	}
}

// MaxRetryDelay caps the wait between connection attempts.
func MaxRetryDelay(delay time.Duration) Option {
	return func(p *Postgres) {
		p.maxRetryDelay = delay
	}
}

func (p *Postgres) validate() error {
	switch {
	case p.maxPoolSize <= 0:
		return ErrInvalidMaxPoolSize
	case p.connAttempts <= 0:
		return ErrInvalidConnAttempts
	case p.baseRetryDelay <= 0:
		return ErrInvalidBaseRetryDelay
	case p.maxRetryDelay <= 0:
		return ErrInvalidMaxRetryDelay
	case p.baseRetryDelay > p.maxRetryDelay:
		return ErrBaseExceedsMaxDelay
	}
	return nil
}
