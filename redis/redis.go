// Package redis provides a client wrapper for Redis operations
// and the run store: summaries and browser storage states shared between suite workers.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/wb-go/e2ekit/config"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/results"
	"github.com/wb-go/e2ekit/retry"
)

// NoMatches is returned when Redis did not find any matching key.
const NoMatches = redis.Nil

// ErrNotFound is returned by the run store when the key does not exist.
var ErrNotFound = errors.New("redis: key not found")

// Client wraps the Redis client.
type Client struct {
	*redis.Client
}

// New creates a new Redis client.
func New(addr, password string, db int) *Client {
	return &Client{
		redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// FromConfig creates a client for the suite's redis section.
func FromConfig(cfg config.RedisConfig) *Client {
	return New(cfg.Addr, cfg.Password, cfg.DB)
}

// RunKey is the key of a run summary.
func RunKey(runID string) string { return "e2e:run:" + runID }

// ResultsKey is the list of raw results of a run.
func ResultsKey(runID string) string { return "e2e:run:" + runID + ":results" }

// ResultIDsKey is the set of result identities already appended to ResultsKey(runID).
func ResultIDsKey(runID string) string { return "e2e:run:" + runID + ":result_ids" }

// ResultID identifies one attempt of a test within a run.
func ResultID(r results.TestResult) string { return fmt.Sprintf("%s|%s|%d", r.File, r.Title, r.Retry) }

// appendScript pushes ARGV[2] only if ARGV[1] is new in KEYS[2], so a repeated append is a no-op.
var appendScript = redis.NewScript(`
if redis.call("HSETNX", KEYS[2], ARGV[1], 1) == 1 then
	redis.call("RPUSH", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// StateKey is the key of a user's saved browser storage state.
func StateKey(user string) string { return "e2e:state:" + user }

// Get retrieves a value by key from Redis.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

// SetWithExpiration stores a value with a specified expiration time. Zero means no expiration.
func (c *Client) SetWithExpiration(ctx context.Context, key string, value any, expiration time.Duration) error {
	return c.Client.Set(ctx, key, value, expiration).Err()
}

// Del removes a key from Redis.
func (c *Client) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// GetWithRetry retrieves a value using a retry strategy. A missing key is not retried.
func (c *Client) GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error) {
	return retry.DoValue(ctx, withoutNil(strategy), func() (string, error) {
		return c.Get(ctx, key)
	})
}

// SetWithRetry stores a value using a retry strategy.
func (c *Client) SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value any, expiration time.Duration) error {
	return retry.Do(ctx, strategy, func() error {
		return c.SetWithExpiration(ctx, key, value, expiration)
	})
}

// DelWithRetry removes a key from Redis using a retry strategy.
func (c *Client) DelWithRetry(ctx context.Context, strategy retry.Strategy, key string) error {
	return retry.Do(ctx, strategy, func() error {
		return c.Del(ctx, key)
	})
}

// PingWithRetry waits until the server answers PING.
func (c *Client) PingWithRetry(ctx context.Context, strategy retry.Strategy) error {
	return retry.Do(ctx, strategy, func() error {
		return c.Ping(ctx).Err()
	})
}

// SaveSummary stores s as JSON under RunKey(s.RunID).
func (c *Client) SaveSummary(ctx context.Context, strategy retry.Strategy, s results.Summary, ttl time.Duration) error {
	const op = "redis.SaveSummary"

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	if err := c.SetWithRetry(ctx, strategy, RunKey(s.RunID), data, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LoadSummary reads the summary of runID. It returns ErrNotFound for unknown runs.
func (c *Client) LoadSummary(ctx context.Context, strategy retry.Strategy, runID string) (results.Summary, error) {
	const op = "redis.LoadSummary"

	raw, err := c.GetWithRetry(ctx, strategy, RunKey(runID))
	if err != nil {
		return results.Summary{}, fmt.Errorf("%s: %w", op, notFound(err))
	}
	var s results.Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return results.Summary{}, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return s, nil
}

// SaveStorageState keeps a logged-in browser storage state so other workers can skip the login form.
func (c *Client) SaveStorageState(ctx context.Context, strategy retry.Strategy, user string, state []byte, ttl time.Duration) error {
	if err := c.SetWithRetry(ctx, strategy, StateKey(user), state, ttl); err != nil {
		return fmt.Errorf("redis.SaveStorageState: %w", err)
	}
	return nil
}

// LoadStorageState returns the saved state of user, or ErrNotFound.
func (c *Client) LoadStorageState(ctx context.Context, strategy retry.Strategy, user string) ([]byte, error) {
	raw, err := c.GetWithRetry(ctx, strategy, StateKey(user))
	if err != nil {
		return nil, fmt.Errorf("redis.LoadStorageState: %w", notFound(err))
	}
	return []byte(raw), nil
}

// Results returns the raw results appended for runID, oldest first.
func (c *Client) Results(ctx context.Context, strategy retry.Strategy, runID string) ([]results.TestResult, error) {
	const op = "redis.Results"

	raw, err := retry.DoValue(ctx, strategy, func() ([]string, error) {
		return c.LRange(ctx, ResultsKey(runID), 0, -1).Result()
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]results.TestResult, 0, len(raw))
	for _, item := range raw {
		var r results.TestResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", op, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// AppendResult pushes r to the tail of ResultsKey(runID). A result with the same ResultID
// is stored once, so the call is safe to repeat after a lost reply.
func (c *Client) AppendResult(ctx context.Context, strategy retry.Strategy, runID string, r results.TestResult) error {
	const op = "redis.AppendResult"

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	keys := []string{ResultsKey(runID), ResultIDsKey(runID)}
	err = retry.Do(ctx, strategy, func() error {
		return appendScript.Run(ctx, c.Client, keys, ResultID(r), data).Err()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResultWriter appends results from in to ResultsKey(runID) asynchronously until in is closed
// or ctx is done. Write errors are logged and the result is dropped.
// The returned channel is closed when the writer stops.
func (c *Client) ResultWriter(ctx context.Context, runID string, in <-chan results.TestResult, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-in:
				if !ok {
					return
				}
				if err := c.AppendResult(ctx, retry.Strategy{}, runID, r); err != nil {
					log.Error("failed to append result", "run_id", runID, "title", r.Title, "error", err)
				}
			}
		}
	}()
	return done
}

// withoutNil stops retrying once the key is known to be missing.
func withoutNil(s retry.Strategy) retry.Strategy {
	prev := s.ShouldRetry
	return s.With(retry.ShouldRetry(func(err error) bool {
		if errors.Is(err, redis.Nil) {
			return false
		}
		return prev == nil || prev(err)
	}))
}

func notFound(err error) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	return err
}
