// Package cleanup deletes test data created through the application API once a scenario ends.
package cleanup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/retry"
)

const (
	_defaultMaxRetries = 2
	_defaultDelay      = 100 * time.Millisecond
)

// Resource is a registered cleanup request.
type Resource struct {
	URL    string
	Method string
}

// Helper collects resources during a scenario and removes them in Cleanup.
type Helper struct {
	client     *http.Client
	log        logger.Logger
	maxRetries int
	delay      time.Duration

	mu        sync.Mutex
	resources []Resource
}

// Option configures a Helper.
type Option func(*Helper)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Helper) { h.client = c }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Helper) { h.log = l }
}

// WithRetry sets how often and how far apart a failed request is retried.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(h *Helper) {
		h.maxRetries = maxRetries
		h.delay = delay
	}
}

// New creates an empty Helper.
func New(opts ...Option) *Helper {
	h := &Helper{
		client:     http.DefaultClient,
		maxRetries: _defaultMaxRetries,
		delay:      _defaultDelay,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.NewSlogAdapter("cleanup", "")
	}
	return h
}

// Register schedules url for removal. An empty method means DELETE.
func (h *Helper) Register(url, method string) {
	if method == "" {
		method = http.MethodDelete
	}
	h.mu.Lock()
	h.resources = append(h.resources, Resource{URL: url, Method: method})
	h.mu.Unlock()
}

// Pending returns the registered resources in registration order.
func (h *Helper) Pending() []Resource {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.resources)
}

// Cleanup sends every registered request, newest first, and empties the registry.
// Failures are logged and do not stop the remaining requests.
func (h *Helper) Cleanup(ctx context.Context) {
	h.mu.Lock()
	resources := h.resources
	h.resources = nil
	h.mu.Unlock()

	if len(resources) == 0 {
		return
	}

	log := h.log.Ctx(ctx)
	log.Info("cleaning up test data", "resources", len(resources))

	failed := 0
	for _, res := range slices.Backward(resources) {
		log.Debug("cleaning up resource", "method", res.Method, "url", res.URL)
		_, err := retry.WithFixedDelay(ctx, func() (struct{}, error) {
			return struct{}{}, h.send(ctx, res)
		}, h.maxRetries, h.delay, retry.WithLogger(log))
		if err != nil {
			failed++
			log.Error("failed to clean up resource", "method", res.Method, "url", res.URL, "error", err)
		}
	}

	log.Info("data cleanup complete", "resources", len(resources), "failed", failed)
}

func (h *Helper) send(ctx context.Context, res Resource) error {
	req, err := http.NewRequestWithContext(ctx, res.Method, res.URL, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// Already gone.
		return nil
	default:
		return fmt.Errorf("cleanup %s %s: unexpected status %s", res.Method, res.URL, resp.Status)
	}
}
