// Package consolemonitor collects browser console errors during a test and fails it on unexpected ones.
//
// A Monitor is owned by one test. Attach subscribes it to a Source; incoming events are queued
// and folded into the error and warning lists only when Drain is called, so a listener running
// on a driver goroutine never touches the lists directly.
package consolemonitor

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/wb-go/e2ekit/logger"
)

const _matchTimeout = 100 * time.Millisecond

// DefaultWhitelist holds console error patterns that are known noise. Matching is case-insensitive.
var DefaultWhitelist = []string{
	`favicon\.ico`,
	`Failed to load resource.*404`,
	`third-party cookie`,
	`DevTools`,
}

// ErrConsoleErrors is wrapped by AssertNoErrors.
var ErrConsoleErrors = errors.New("console errors detected")

// Monitor records console errors and warnings of one test.
type Monitor struct {
	log logger.Logger

	mu        sync.Mutex
	queue     []Event
	errors    []string
	warnings  []string
	whitelist []*regexp2.Regexp
	sub       Subscription
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the sink for recorded events.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// New creates a Monitor with DefaultWhitelist.
func New(opts ...Option) *Monitor {
	m := &Monitor{}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.NewSlogAdapter("consolemonitor", "", logger.WithoutStdout())
	}
	for _, p := range DefaultWhitelist {
		m.whitelist = append(m.whitelist, compile(regexp2.MustCompile(p, regexp2.IgnoreCase)))
	}
	return m
}

// AddToWhitelist adds a case-insensitive pattern (.NET regex syntax) for errors to ignore.
func (m *Monitor) AddToWhitelist(pattern string) error {
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return fmt.Errorf("consolemonitor.AddToWhitelist: %w", err)
	}
	m.mu.Lock()
	m.whitelist = append(m.whitelist, compile(re))
	m.mu.Unlock()
	return nil
}

// Attach subscribes to src. A previous subscription is released first.
func (m *Monitor) Attach(src Source) {
	m.Detach()
	sub := src.Subscribe(m.enqueue)
	m.mu.Lock()
	m.sub = sub
	m.mu.Unlock()
	m.log.Debug("console monitor attached")
}

// Detach releases the current subscription, if any. Queued events are kept.
func (m *Monitor) Detach() {
	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()
	if sub != nil {
		sub.Release()
	}
}

// Drain applies queued events in arrival order.
func (m *Monitor) Drain() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.queue {
		m.apply(e)
	}
	m.queue = nil
}

// Errors returns a copy of the recorded errors.
func (m *Monitor) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.errors...)
}

// Warnings returns a copy of the recorded warnings.
func (m *Monitor) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.warnings...)
}

// HasErrors reports whether any error has been recorded.
func (m *Monitor) HasErrors() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors) > 0
}

// Clear drops recorded errors, warnings and queued events.
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = nil
	m.warnings = nil
	m.queue = nil
}

// AssertNoErrors drains the queue and returns an error listing every recorded error, numbered from 1.
func (m *Monitor) AssertNoErrors() error {
	m.Drain()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errors) == 0 {
		return nil
	}
	var b strings.Builder
	for i, e := range m.errors {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, e)
	}
	return fmt.Errorf("%w:%s", ErrConsoleErrors, b.String())
}

func (m *Monitor) enqueue(e Event) {
	m.mu.Lock()
	m.queue = append(m.queue, e)
	m.mu.Unlock()
}

// apply must be called with mu held.
func (m *Monitor) apply(e Event) {
	switch e.Kind {
	case KindPageError:
		m.errors = append(m.errors, "Uncaught: "+e.Text)
		m.log.Error("uncaught exception", "message", e.Text)
	case KindConsole:
		switch {
		case e.Type == "error" && !m.whitelisted(e.Text):
			m.errors = append(m.errors, e.Text)
			m.log.Error("console error", "message", e.Text)
		case e.Type == "warning":
			m.warnings = append(m.warnings, e.Text)
			m.log.Warn("console warning", "message", e.Text)
		}
	}
}

func (m *Monitor) whitelisted(text string) bool {
	for _, re := range m.whitelist {
		// A match timeout counts as no match.
		if ok, err := re.MatchString(text); err == nil && ok {
			return true
		}
	}
	return false
}

func compile(re *regexp2.Regexp) *regexp2.Regexp {
	re.MatchTimeout = _matchTimeout
	return re
}
