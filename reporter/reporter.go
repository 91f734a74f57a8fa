// Package reporter is the suite-side end of the result pipeline: it records each test
// in a results.Collector, streams it to Kafka and publishes the run summary to RabbitMQ.
package reporter

import (
	"context"
	"fmt"

	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/rabbitmq"
	"github.com/wb-go/e2ekit/results"
)

// ResultPublisher streams single results. *kafkav2.Producer implements it.
type ResultPublisher interface {
	PublishResult(ctx context.Context, runID string, r results.TestResult) error
}

// SummaryPublisher announces finished runs. *rabbitmq.Publisher implements it.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, s results.Summary, opts ...rabbitmq.PublishOption) error
}

// Reporter is created once per run.
type Reporter struct {
	runID     string
	collector *results.Collector
	results   ResultPublisher
	summaries SummaryPublisher
	log       logger.Logger
}

// New creates a reporter for runID. Either publisher may be nil.
func New(runID string, rp ResultPublisher, sp SummaryPublisher, log logger.Logger, opts ...results.Option) *Reporter {
	return &Reporter{
		runID:     runID,
		collector: results.NewCollector(runID, opts...),
		results:   rp,
		summaries: sp,
		log:       log.With("run_id", runID),
	}
}

// OnBegin marks the start of the run.
func (r *Reporter) OnBegin() {
	r.collector.Begin()
	r.log.Info("run started")
}

// OnTestEnd records tr and streams it. A publish failure is logged; the local summary stays complete.
func (r *Reporter) OnTestEnd(ctx context.Context, tr results.TestResult) {
	r.collector.Record(tr)
	if r.results == nil {
		return
	}
	if err := r.results.PublishResult(ctx, r.runID, tr); err != nil {
		r.log.Warn("result not streamed", "title", tr.Title, "error", err.Error())
	}
}

// OnEnd closes the run and publishes its summary.
func (r *Reporter) OnEnd(ctx context.Context) (results.Summary, error) {
	s := r.collector.End()
	r.log.Info("run finished",
		"total", s.Total, "passed", s.Passed, "failed", s.Failed, "skipped", s.Skipped, "flaky", s.Flaky)

	if r.summaries == nil {
		return s, nil
	}
	if err := r.summaries.PublishSummary(ctx, s); err != nil {
		return s, fmt.Errorf("reporter.OnEnd: %w", err)
	}
	return s, nil
}
