// Package perf reads Lighthouse JSON reports and checks them against score and Web Vitals thresholds.
package perf

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// ErrInvalidReport is returned when the input is not a Lighthouse result.
var ErrInvalidReport = errors.New("invalid lighthouse report")

// Scores are category scores in 0..100.
type Scores struct {
	Performance   int
	Accessibility int
	BestPractices int
	SEO           int
	PWA           int
}

// Metrics are audit values in milliseconds; CumulativeLayoutShift is unitless.
type Metrics struct {
	FirstContentfulPaint   float64
	LargestContentfulPaint float64
	CumulativeLayoutShift  float64
	TimeToInteractive      float64
	SpeedIndex             float64
	TotalBlockingTime      float64
}

// Result is the parsed part of a Lighthouse report.
type Result struct {
	URL     string
	Scores  Scores
	Metrics Metrics
}

// Thresholds are lower bounds for scores and upper bounds for metrics. Zero disables a check.
type Thresholds struct {
	Performance   int
	Accessibility int
	BestPractices int
	SEO           int
	LCP           float64
	FCP           float64
	CLS           float64
}

// Check is the outcome of Thresholds.Check.
type Check struct {
	Passed   bool
	Failures []string
}

// DefaultThresholds are lenient enough for a public demo site.
var DefaultThresholds = Thresholds{
	Performance:   50,
	Accessibility: 80,
	BestPractices: 80,
	SEO:           80,
	LCP:           4000,
	FCP:           3000,
	CLS:           0.25,
}

// ParseReport extracts scores and metrics from a Lighthouse JSON report (the lhr object).
// Missing categories and audits count as 0.
func ParseReport(report []byte) (Result, error) {
	if !gjson.ValidBytes(report) {
		return Result{}, fmt.Errorf("perf.ParseReport: %w: malformed JSON", ErrInvalidReport)
	}
	root := gjson.ParseBytes(report)
	if !root.Get("categories").IsObject() {
		return Result{}, fmt.Errorf("perf.ParseReport: %w: no categories", ErrInvalidReport)
	}

	score := func(category string) int {
		return int(math.Round(root.Get("categories." + gjson.Escape(category) + ".score").Float() * 100))
	}
	metric := func(audit string) float64 {
		return root.Get("audits." + gjson.Escape(audit) + ".numericValue").Float()
	}

	return Result{
		URL: root.Get("finalDisplayedUrl").String(),
		Scores: Scores{
			Performance:   score("performance"),
			Accessibility: score("accessibility"),
			BestPractices: score("best-practices"),
			SEO:           score("seo"),
			PWA:           score("pwa"),
		},
		Metrics: Metrics{
			FirstContentfulPaint:   metric("first-contentful-paint"),
			LargestContentfulPaint: metric("largest-contentful-paint"),
			CumulativeLayoutShift:  metric("cumulative-layout-shift"),
			TimeToInteractive:      metric("interactive"),
			SpeedIndex:             metric("speed-index"),
			TotalBlockingTime:      metric("total-blocking-time"),
		},
	}, nil
}

// Check compares r with t and lists every violated threshold.
func (t Thresholds) Check(r Result) Check {
	var failures []string
	below := func(name string, got, want int) {
		if want > 0 && got < want {
			failures = append(failures, fmt.Sprintf("%s score %d is below threshold %d", name, got, want))
		}
	}
	below("Performance", r.Scores.Performance, t.Performance)
	below("Accessibility", r.Scores.Accessibility, t.Accessibility)
	below("Best Practices", r.Scores.BestPractices, t.BestPractices)
	below("SEO", r.Scores.SEO, t.SEO)

	if t.LCP > 0 && r.Metrics.LargestContentfulPaint > t.LCP {
		failures = append(failures, fmt.Sprintf("LCP %s exceeds threshold %s",
			FormatMillis(r.Metrics.LargestContentfulPaint), FormatMillis(t.LCP)))
	}
	if t.FCP > 0 && r.Metrics.FirstContentfulPaint > t.FCP {
		failures = append(failures, fmt.Sprintf("FCP %s exceeds threshold %s",
			FormatMillis(r.Metrics.FirstContentfulPaint), FormatMillis(t.FCP)))
	}
	if t.CLS > 0 && r.Metrics.CumulativeLayoutShift > t.CLS {
		failures = append(failures, fmt.Sprintf("CLS %.3f exceeds threshold %g",
			r.Metrics.CumulativeLayoutShift, t.CLS))
	}

	return Check{Passed: len(failures) == 0, Failures: failures}
}

// FormatMillis renders ms as "850ms" below one second and "2.35s" above.
func FormatMillis(ms float64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", int(math.Round(ms)))
	}
	return fmt.Sprintf("%.2fs", ms/1000)
}

// ScoreBadge prefixes a score with a traffic light: green from 90, yellow from 50.
func ScoreBadge(score int) string {
	switch {
	case score >= 90:
		return fmt.Sprintf("🟢 %d/100", score)
	case score >= 50:
		return fmt.Sprintf("🟡 %d/100", score)
	default:
		return fmt.Sprintf("🔴 %d/100", score)
	}
}
