// Package metrics exposes retry and test run statistics as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/wb-go/e2ekit/results"
	"github.com/wb-go/e2ekit/retry"
)

// Collector provides Prometheus metrics for retried operations and finished runs.
type Collector struct {
	attempts  *prometheus.CounterVec
	retries   *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	delay     *prometheus.HistogramVec
	tests     *prometheus.GaugeVec
	passRate  prometheus.Gauge
}

// NewCollector registers the metrics in registry, or the default registerer when nil.
func NewCollector(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Collector{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "e2e_retry_attempts_total",
				Help: "Total number of attempts made by retried operations",
			},
			[]string{"operation"},
		),

		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "e2e_retry_retries_total",
				Help: "Total number of retries after a failed attempt",
			},
			[]string{"operation"},
		),

		exhausted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "e2e_retry_exhausted_total",
				Help: "Total number of operations that failed after all attempts",
			},
			[]string{"operation"},
		),

		delay: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "e2e_retry_delay_seconds",
				Help: "Wait before a retry in seconds",
				Buckets: []float64{
					0.01, // 10ms
					0.1,  // 100ms
					0.5,  // 500ms
					1.0,  // 1s
					2.0,  // 2s
					5.0,  // 5s
					10.0, // 10s
				},
			},
			[]string{"operation"},
		),

		tests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "e2e_run_tests",
				Help: "Tests of the last finished run by outcome",
			},
			[]string{"outcome"},
		),

		passRate: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "e2e_run_pass_rate_percent",
				Help: "Pass rate of the last finished run",
			},
		),
	}
}

// Hook returns a retry option that counts retries and their delays under operation.
func (c *Collector) Hook(operation string) retry.Option {
	return retry.OnRetry(func(_ int, _ error, delay time.Duration) {
		c.retries.WithLabelValues(operation).Inc()
		c.delay.WithLabelValues(operation).Observe(delay.Seconds())
	})
}

// Observe records a finished DoWithStats call.
func (c *Collector) Observe(operation string, stats retry.Stats, err error) {
	c.attempts.WithLabelValues(operation).Add(float64(stats.TotalAttempts))
	if err != nil && !stats.Succeeded() {
		c.exhausted.WithLabelValues(operation).Inc()
	}
}

// RecordRun publishes the outcome counts of a finished run.
func (c *Collector) RecordRun(s results.Summary) {
	c.tests.WithLabelValues("total").Set(float64(s.Total))
	c.tests.WithLabelValues("passed").Set(float64(s.Passed))
	c.tests.WithLabelValues("failed").Set(float64(s.Failed))
	c.tests.WithLabelValues("skipped").Set(float64(s.Skipped))
	c.tests.WithLabelValues("flaky").Set(float64(s.Flaky))
	c.passRate.Set(s.PassRate())
}
