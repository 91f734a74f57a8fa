package kafkav2

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/retry"
)

const (
	_defaultMaxAttempts    = 3
	_defaultBaseRetryDelay = 10 * time.Millisecond
	_defaultMaxRetryDelay  = 100 * time.Millisecond

	_backoffMultiplier = 2
)

// Handler processes one message. Nil means the offset may be committed.
type Handler func(ctx context.Context, msg kafka.Message) error

// MessageSource is the part of Consumer the processor needs.
type MessageSource interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// DeadLetters receives messages whose handler attempts are exhausted.
type DeadLetters interface {
	PublishError(ctx context.Context, msg kafka.Message, err error, attempts int) error
}

// Processor fetches messages, runs the handler under a retry strategy
// and moves messages that keep failing to the DLQ.
type Processor struct {
	source MessageSource
	dlq    DeadLetters
	logger logger.Logger

	maxAttempts    int
	baseRetryDelay time.Duration
	maxRetryDelay  time.Duration
	retryOpts      []retry.Option
}

// NewProcessor creates a processor. d may be nil, in which case failed messages are committed and dropped.
func NewProcessor(src MessageSource, d DeadLetters, log logger.Logger, opts ...ProcessorOption) (*Processor, error) {
	p := &Processor{
		source:         src,
		dlq:            d,
		logger:         log,
		maxAttempts:    _defaultMaxAttempts,
		baseRetryDelay: _defaultBaseRetryDelay,
		maxRetryDelay:  _defaultMaxRetryDelay,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("kafkav2.NewProcessor: validation: %w", err)
	}

	return p, nil
}

// Start runs the fetch loop in a goroutine until ctx is done. The returned channel closes on exit.
func (p *Processor) Start(ctx context.Context, handler Handler) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.run(ctx, handler)
	}()
	return done
}

func (p *Processor) run(ctx context.Context, handler Handler) {
	for {
		msg, err := p.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.LogAttrs(ctx, logger.ErrorLevel, "fetch error", logger.Err(err))
			continue
		}

		p.process(ctx, msg, handler)
	}
}

func (p *Processor) strategy() retry.Strategy {
	opts := []retry.Option{
		retry.MaxRetries(p.maxAttempts - 1),
		retry.InitialDelay(p.baseRetryDelay),
		retry.BackoffMultiplier(_backoffMultiplier),
		retry.MaxDelay(p.maxRetryDelay),
		retry.ShouldRetry(func(err error) bool { return !errors.Is(err, ErrMalformedEvent) }),
		retry.WithLogger(p.logger),
	}
	return retry.New(append(opts, p.retryOpts...)...)
}

// process commits msg once the handler succeeds, or once it reached the DLQ.
// When the DLQ write fails the offset is left uncommitted so the message is redelivered.
func (p *Processor) process(ctx context.Context, msg kafka.Message, handler Handler) {
	_, stats, err := retry.DoWithStats(ctx, p.strategy(), func() (struct{}, error) {
		return struct{}{}, handler(ctx, msg)
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if p.dlq != nil {
			if dlqErr := p.dlq.PublishError(ctx, msg, err, stats.TotalAttempts); dlqErr != nil {
				p.logger.LogAttrs(ctx, logger.ErrorLevel, "dlq unavailable, offset not committed",
					logger.Int64("offset", msg.Offset),
					logger.Err(dlqErr),
				)
				return
			}
		}
	}

	if err := p.source.Commit(ctx, msg); err != nil {
		p.logger.LogAttrs(ctx, logger.ErrorLevel, "failed to commit message offset",
			logger.Int64("offset", msg.Offset),
			logger.String("topic", msg.Topic),
			logger.Err(err),
		)
	}
}
