// Package aggregator turns the result event stream and run summaries into stored runs:
// results land in redis as they arrive, finished runs are persisted to postgres,
// exported as metrics and announced in Slack.
package aggregator

import (
	"context"
	"fmt"
	"time"

	kafkav2 "github.com/wb-go/e2ekit/kafka/kafka-v2"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/metrics"
	"github.com/wb-go/e2ekit/results"
	"github.com/wb-go/e2ekit/retry"
)

// Store keeps runs while they are in flight. *redis.Client implements it.
type Store interface {
	AppendResult(ctx context.Context, strategy retry.Strategy, runID string, r results.TestResult) error
	Results(ctx context.Context, strategy retry.Strategy, runID string) ([]results.TestResult, error)
	SaveSummary(ctx context.Context, strategy retry.Strategy, s results.Summary, ttl time.Duration) error
}

// Persister stores a finished run with its results atomically.
type Persister interface {
	PersistRun(ctx context.Context, s results.Summary, rs []results.TestResult) error
}

// Notifier announces a finished run. *slack.Reporter implements it.
type Notifier interface {
	Notify(ctx context.Context, s results.Summary) error
}

// Aggregator handles result events and run summaries.
type Aggregator struct {
	store     Store
	persister Persister
	notifier  Notifier
	metrics   *metrics.Collector
	strategy  retry.Strategy
	ttl       time.Duration
	log       logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPersister enables postgres persistence of finished runs.
func WithPersister(p Persister) Option { return func(a *Aggregator) { a.persister = p } }

// WithNotifier enables run announcements.
func WithNotifier(n Notifier) Option { return func(a *Aggregator) { a.notifier = n } }

// WithMetrics exports run gauges and store retry counters.
func WithMetrics(m *metrics.Collector) Option { return func(a *Aggregator) { a.metrics = m } }

// WithTTL sets how long summaries stay in the store.
func WithTTL(ttl time.Duration) Option { return func(a *Aggregator) { a.ttl = ttl } }

// New creates an Aggregator over store. strategy drives every store call.
func New(store Store, strategy retry.Strategy, log logger.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:    store,
		strategy: strategy,
		ttl:      7 * 24 * time.Hour,
		log:      log.With("component", "aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics != nil {
		a.strategy = a.strategy.With(a.metrics.Hook("run_store"))
	}
	return a
}

// HandleResult appends one streamed result to its run. It makes a single store attempt:
// the kafka processor retries the whole handler.
func (a *Aggregator) HandleResult(ctx context.Context, ev kafkav2.ResultEvent) error {
	ctx = logger.SetRunID(ctx, ev.RunID)
	if err := a.store.AppendResult(ctx, retry.Strategy{}, ev.RunID, ev.Result); err != nil {
		return fmt.Errorf("aggregator.HandleResult: %w", err)
	}
	a.log.Ctx(ctx).Debug("result stored", "title", ev.Result.Title, "status", string(ev.Result.Status))
	return nil
}

// HandleSummary finalizes a run: caches the summary, persists it with the streamed results,
// records metrics and notifies. Store and persistence errors are returned so the message is redelivered;
// a failed notification is only logged.
func (a *Aggregator) HandleSummary(ctx context.Context, s results.Summary) error {
	const op = "aggregator.HandleSummary"

	ctx = logger.SetRunID(ctx, s.RunID)
	log := a.log.Ctx(ctx)

	if err := a.store.SaveSummary(ctx, a.strategy, s, a.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if a.persister != nil {
		rs, err := a.store.Results(ctx, a.strategy, s.RunID)
		if err != nil {
			return fmt.Errorf("%s: load results: %w", op, err)
		}
		if err := a.persister.PersistRun(ctx, s, rs); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		log.Info("run persisted", "results", len(rs))
	}

	if a.metrics != nil {
		a.metrics.RecordRun(s)
	}

	if a.notifier != nil {
		if err := a.notifier.Notify(ctx, s); err != nil {
			log.Error("run notification failed", "error", err.Error())
		}
	}
	return nil
}
