package kafkav2

import (
	"errors"
	"time"

	"github.com/wb-go/e2ekit/retry"
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

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// MaxAttempts sets how many times the handler sees one message, the first try included.
func MaxAttempts(attempts int) ProcessorOption {
	return func(p *Processor) {
		p.maxAttempts = attempts
	}
}

// BaseRetryDelay sets the wait before the first redelivery to the handler.
func BaseRetryDelay(delay time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.baseRetryDelay = delay
	}
}

// MaxRetryDelay caps the wait between handler attempts.
func MaxRetryDelay(delay time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.maxRetryDelay = delay
	}
}

// WithRetryOptions appends options to the handler retry strategy, e.g. a metrics hook.
func WithRetryOptions(opts ...retry.Option) ProcessorOption {
	return func(p *Processor) {
		p.retryOpts = append(p.retryOpts, opts...)
	}
}

func (p *Processor) validate() error {
	switch {
	case p.maxAttempts <= 0:
		return ErrInvalidMaxAttempts
	case p.baseRetryDelay <= 0:
		return ErrInvalidBaseRetryDelay
	case p.maxRetryDelay <= 0:
		return ErrInvalidMaxRetryDelay
	case p.baseRetryDelay > p.maxRetryDelay:
		return ErrBaseExceedsMaxDelay
	}
	return nil
}
