package cleanenvport_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cleanenvport "github.com/wb-go/e2ekit/config/cleanenv-port"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadSuite_File(t *testing.T) {
	path := writeConfig(t, `
base_url: "https://staging.saucedemo.com/"
timeout: 45s
ci: true
retry:
  max_retries: 5
  initial_delay: 200ms
  backoff_multiplier: 1.5
  max_delay: 2s
slack:
  webhook_url: "https://hooks.slack.com/services/T/B/X"
kafka:
  brokers: ["localhost:9092"]
`)

	s, err := cleanenvport.LoadSuite(path)
	require.NoError(t, err)

	assert.Equal(t, "https://staging.saucedemo.com", s.BaseURLWithoutSlash())
	assert.Equal(t, 45*time.Second, s.Timeout)
	assert.Equal(t, 2, s.EffectiveRetries())
	assert.Equal(t, 2, s.EffectiveWorkers())
	assert.True(t, s.Headless)
	assert.Equal(t, "#test-results", s.Slack.Channel)
	assert.True(t, s.Slack.NotifyOnFailure)
	assert.Equal(t, []string{"localhost:9092"}, s.Kafka.Brokers)

	strategy := s.Retry.Strategy()
	assert.Equal(t, 5, strategy.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, strategy.Delay)
	assert.Equal(t, 1.5, strategy.Backoff)
	assert.Equal(t, 2*time.Second, strategy.MaxDelay)
	assert.True(t, strategy.LogRetries)
}

func TestLoadSuite_EnvOnly(t *testing.T) {
	t.Setenv("BASE_URL", "http://localhost:3000")
	t.Setenv("RETRY_MAX_RETRIES", "1")

	s, err := cleanenvport.LoadSuite("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", s.BaseURL)
	assert.Equal(t, 1, s.Retry.MaxRetries)
	assert.Equal(t, time.Second, s.Retry.InitialDelay)
	assert.Equal(t, "slog", s.Log.Engine)
}

func TestLoadSuite_ValidationFailed(t *testing.T) {
	path := writeConfig(t, `
base_url: "not a url"
retry:
  backoff_multiplier: 0.5
`)

	_, err := cleanenvport.LoadSuite(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, cleanenvport.ErrConfigValidation)
	assert.Contains(t, err.Error(), "BaseURL")
	assert.Contains(t, err.Error(), "BackoffMultiplier")
}

func TestLoadPath_Missing(t *testing.T) {
	var s struct{}
	err := cleanenvport.LoadPath(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	assert.ErrorIs(t, err, cleanenvport.ErrConfigFileNotFound)
}
