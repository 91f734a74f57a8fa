// Package slack posts suite run summaries to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/wb-go/e2ekit/config"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/results"
	"github.com/wb-go/e2ekit/retry"
)

// Defaults of a Reporter.
const (
	DefaultChannel     = "#test-results"
	DefaultUsername    = "Playwright Bot"
	DefaultIconEmoji   = ":robot_face:"
	DefaultEnvironment = "development"
)

// ErrNoWebhook is returned by SendMessage when the webhook URL is empty.
var ErrNoWebhook = errors.New("slack webhook url is empty")

// StatusError is returned when the webhook answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("slack API error: %s", e.Status)
}

// Retryable reports whether the response may succeed on a later attempt (429 or 5xx).
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Reporter sends run summaries to Slack.
type Reporter struct {
	webhookURL      string
	channel         string
	username        string
	iconEmoji       string
	notifyOnSuccess bool
	notifyOnFailure bool
	mentions        []string
	environment     string
	detailed        bool
	gitRef          string

	client   *http.Client
	strategy retry.Strategy
	log      logger.Logger
	now      func() time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithWebhookURL sets the incoming webhook. Without it summaries are only logged.
func WithWebhookURL(url string) Option { return func(r *Reporter) { r.webhookURL = url } }

// WithChannel overrides the target channel.
func WithChannel(ch string) Option { return func(r *Reporter) { r.channel = ch } }

// WithUsername overrides the bot name.
func WithUsername(name string) Option { return func(r *Reporter) { r.username = name } }

// WithIconEmoji overrides the bot icon.
func WithIconEmoji(emoji string) Option { return func(r *Reporter) { r.iconEmoji = emoji } }

// WithNotifyOnSuccess enables messages for green runs.
func WithNotifyOnSuccess(v bool) Option { return func(r *Reporter) { r.notifyOnSuccess = v } }

// WithNotifyOnFailure toggles messages for red runs.
func WithNotifyOnFailure(v bool) Option { return func(r *Reporter) { r.notifyOnFailure = v } }

// WithMentions adds handles mentioned on failure.
func WithMentions(handles ...string) Option {
	return func(r *Reporter) { r.mentions = append(r.mentions, handles...) }
}

// WithEnvironment sets the environment label.
func WithEnvironment(env string) Option { return func(r *Reporter) { r.environment = env } }

// WithDetailedResults toggles the failed tests section.
func WithDetailedResults(v bool) Option { return func(r *Reporter) { r.detailed = v } }

// WithGitRef sets the ref shown in the footer.
func WithGitRef(ref string) Option { return func(r *Reporter) { r.gitRef = ref } }

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option { return func(r *Reporter) { r.client = c } }

// WithRetry sets the delivery strategy. A nil ShouldRetry is replaced with one that skips 4xx answers.
func WithRetry(s retry.Strategy) Option { return func(r *Reporter) { r.strategy = s } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(r *Reporter) { r.log = l } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(r *Reporter) { r.now = now } }

// New creates a Reporter. The footer ref defaults to GITHUB_REF.
func New(opts ...Option) *Reporter {
	r := &Reporter{
		channel:         DefaultChannel,
		username:        DefaultUsername,
		iconEmoji:       DefaultIconEmoji,
		notifyOnFailure: true,
		environment:     DefaultEnvironment,
		detailed:        true,
		gitRef:          os.Getenv("GITHUB_REF"),
		client:          &http.Client{Timeout: 10 * time.Second},
		strategy:        retry.New(retry.MaxRetries(2), retry.InitialDelay(500*time.Millisecond)),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.NewSlogAdapter("slack", r.environment)
	}
	if r.strategy.ShouldRetry == nil {
		r.strategy.ShouldRetry = isRetryable
	}
	if r.strategy.Logger == nil {
		r.strategy.Logger = r.log
	}
	return r
}

// FromConfig builds a Reporter from the suite's slack section. opts are applied last.
func FromConfig(cfg config.SlackConfig, opts ...Option) *Reporter {
	base := []Option{
		WithWebhookURL(cfg.WebhookURL),
		WithNotifyOnSuccess(cfg.NotifyOnSuccess),
		WithNotifyOnFailure(cfg.NotifyOnFailure),
		WithMentions(cfg.MentionOnFailure...),
	}
	if cfg.Channel != "" {
		base = append(base, WithChannel(cfg.Channel))
	}
	if cfg.Environment != "" {
		base = append(base, WithEnvironment(cfg.Environment))
	}
	return New(append(base, opts...)...)
}

// ShouldNotify applies the success/failure notification flags.
func (r *Reporter) ShouldNotify(s results.Summary) bool {
	if s.HasFailures() {
		return r.notifyOnFailure
	}
	return r.notifyOnSuccess
}

// Notify posts the summary. It returns nil when notification is disabled for this outcome
// or no webhook is configured, in which case the summary is written to the logger instead.
func (r *Reporter) Notify(ctx context.Context, s results.Summary) error {
	const op = "slack.Notify"

	log := r.log.Ctx(ctx)
	if !r.ShouldNotify(s) {
		log.Info("slack notification skipped", "failures", s.Failed)
		return nil
	}
	if r.webhookURL == "" {
		log.Warn("slack webhook not configured")
		r.logSummary(log, s)
		return nil
	}

	if err := r.post(ctx, r.BuildMessage(s)); err != nil {
		log.Error("slack notification failed", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("slack notification sent", "run_id", s.RunID)
	return nil
}

func (r *Reporter) post(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return retry.Do(ctx, r.strategy, func() error {
		return postJSON(ctx, r.client, r.webhookURL, body)
	})
}

func (r *Reporter) logSummary(log logger.Logger, s results.Summary) {
	log.Info("test results summary",
		"total", s.Total,
		"passed", s.Passed,
		"failed", s.Failed,
		"skipped", s.Skipped,
		"flaky", s.Flaky,
		"duration", s.Duration.String(),
	)
	for _, t := range s.FailedTests {
		log.Info("failed test", "title", t.Title, "file", t.File, "error", t.Error)
	}
}

// MessageOption configures SendMessage.
type MessageOption func(*Message)

// MessageChannel overrides the channel of a SendMessage payload.
func MessageChannel(ch string) MessageOption { return func(m *Message) { m.Channel = ch } }

// MessageUsername overrides the bot name of a SendMessage payload.
func MessageUsername(name string) MessageOption { return func(m *Message) { m.Username = name } }

// MessageEmoji overrides the bot icon of a SendMessage payload.
func MessageEmoji(emoji string) MessageOption { return func(m *Message) { m.IconEmoji = emoji } }

// SendMessage posts a plain text message once, with the reporter defaults for channel, name and icon.
func SendMessage(ctx context.Context, webhookURL, text string, opts ...MessageOption) error {
	const op = "slack.SendMessage"

	if webhookURL == "" {
		return fmt.Errorf("%s: %w", op, ErrNoWebhook)
	}
	msg := Message{Channel: DefaultChannel, Username: DefaultUsername, IconEmoji: DefaultIconEmoji, Text: text}
	for _, opt := range opts {
		opt(&msg)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	if err := postJSON(ctx, http.DefaultClient, webhookURL, body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return nil
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
