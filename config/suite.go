package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/retry"
)

// DefaultBaseURL is the storefront exercised when BASE_URL is not set.
const DefaultBaseURL = "https://www.saucedemo.com"

const (
	_ciRetries = 2
	_ciWorkers = 2
)

// ErrValidation is returned when a loaded Suite violates its validate tags.
var ErrValidation = errors.New("suite config validation failed")

// Suite is the full configuration of a test run.
// Tags serve both loaders: mapstructure for viper, yaml/env for cleanenv.
type Suite struct {
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url" env:"BASE_URL" env-default:"https://www.saucedemo.com" validate:"required,url"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" env:"TIMEOUT" env-default:"30s" validate:"gt=0"`
	CI       bool          `mapstructure:"ci" yaml:"ci" env:"CI"`
	Retries  int           `mapstructure:"retries" yaml:"retries" env:"RETRIES" env-default:"-1" validate:"min=-1"`
	Workers  int           `mapstructure:"workers" yaml:"workers" env:"WORKERS" validate:"min=0"`
	Headless bool          `mapstructure:"headless" yaml:"headless" env:"HEADLESS" env-default:"true"`

	Retry     RetryConfig     `mapstructure:"retry" yaml:"retry" env-prefix:"RETRY_"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" env-prefix:"LOG_"`
	Slack     SlackConfig     `mapstructure:"slack" yaml:"slack" env-prefix:"SLACK_"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis" env-prefix:"REDIS_"`
	Postgres  PostgresConfig  `mapstructure:"postgres" yaml:"postgres" env-prefix:"POSTGRES_"`
	Kafka     KafkaConfig     `mapstructure:"kafka" yaml:"kafka" env-prefix:"KAFKA_"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq" yaml:"rabbitmq" env-prefix:"RABBITMQ_"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard" env-prefix:"DASHBOARD_"`
}

// RetryConfig holds the default retry strategy of the suite.
type RetryConfig struct {
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries" env:"MAX_RETRIES" env-default:"3" validate:"min=0"`
	InitialDelay      time.Duration `mapstructure:"initial_delay" yaml:"initial_delay" env:"INITIAL_DELAY" env-default:"1s" validate:"min=0"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" yaml:"backoff_multiplier" env:"BACKOFF_MULTIPLIER" env-default:"2" validate:"gte=1"`
	MaxDelay          time.Duration `mapstructure:"max_delay" yaml:"max_delay" env:"MAX_DELAY" env-default:"10s" validate:"min=0"`
	LogRetries        bool          `mapstructure:"log_retries" yaml:"log_retries" env:"LOG_RETRIES" env-default:"true"`
}

// LogConfig selects the logging engine.
type LogConfig struct {
	Engine string `mapstructure:"engine" yaml:"engine" env:"ENGINE" env-default:"slog" validate:"oneof=slog zap zerolog logrus"`
	Level  string `mapstructure:"level" yaml:"level" env:"LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	File   string `mapstructure:"file" yaml:"file" env:"FILE"`
}

// SlackConfig configures the result notifier.
type SlackConfig struct {
	WebhookURL       string   `mapstructure:"webhook_url" yaml:"webhook_url" env:"WEBHOOK_URL" validate:"omitempty,url"`
	Channel          string   `mapstructure:"channel" yaml:"channel" env:"CHANNEL" env-default:"#test-results"`
	NotifyOnSuccess  bool     `mapstructure:"notify_on_success" yaml:"notify_on_success" env:"NOTIFY_ON_SUCCESS"`
	NotifyOnFailure  bool     `mapstructure:"notify_on_failure" yaml:"notify_on_failure" env:"NOTIFY_ON_FAILURE" env-default:"true"`
	MentionOnFailure []string `mapstructure:"mention_on_failure" yaml:"mention_on_failure" env:"MENTION_ON_FAILURE"`
	Environment      string   `mapstructure:"environment" yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
}

// RedisConfig points at the run summary cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr" env:"ADDR"`
	Password string        `mapstructure:"password" yaml:"password" env:"PASSWORD"`
	DB       int           `mapstructure:"db" yaml:"db" env:"DB" validate:"min=0"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" env:"TTL" env-default:"168h"`
}

// PostgresConfig points at the results database.
type PostgresConfig struct {
	DSN         string   `mapstructure:"dsn" yaml:"dsn" env:"DSN"`
	ReplicaDSNs []string `mapstructure:"replica_dsns" yaml:"replica_dsns" env:"REPLICA_DSNS"`
	MaxPoolSize int32    `mapstructure:"max_pool_size" yaml:"max_pool_size" env:"MAX_POOL_SIZE" env-default:"10" validate:"min=1"`
}

// KafkaConfig configures the result event stream.
type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers" yaml:"brokers" env:"BROKERS"`
	Topic    string   `mapstructure:"topic" yaml:"topic" env:"TOPIC" env-default:"e2e.results"`
	DLQTopic string   `mapstructure:"dlq_topic" yaml:"dlq_topic" env:"DLQ_TOPIC" env-default:"e2e.results.dlq"`
	GroupID  string   `mapstructure:"group_id" yaml:"group_id" env:"GROUP_ID" env-default:"e2e-aggregator"`
}

// RabbitMQConfig configures the run notification bus.
type RabbitMQConfig struct {
	URL      string `mapstructure:"url" yaml:"url" env:"URL" validate:"omitempty,url"`
	Exchange string `mapstructure:"exchange" yaml:"exchange" env:"EXCHANGE" env-default:"e2e.runs"`
}

// DashboardConfig configures the results HTTP server.
type DashboardConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" env:"ADDR" env-default:":8080"`
}

// BaseURLWithoutSlash returns BaseURL with one trailing slash removed.
func (s Suite) BaseURLWithoutSlash() string {
	return strings.TrimSuffix(s.BaseURL, "/")
}

// EffectiveRetries resolves the -1 sentinel: 2 test retries on CI, none locally.
func (s Suite) EffectiveRetries() int {
	if s.Retries >= 0 {
		return s.Retries
	}
	if s.CI {
		return _ciRetries
	}
	return 0
}

// EffectiveWorkers resolves 0: 2 workers on CI, runner default (0) locally.
func (s Suite) EffectiveWorkers() int {
	if s.Workers > 0 || !s.CI {
		return s.Workers
	}
	return _ciWorkers
}

// Strategy converts the retry section into a retry.Strategy. opts are applied last.
func (r RetryConfig) Strategy(opts ...retry.Option) retry.Strategy {
	base := []retry.Option{
		retry.MaxRetries(r.MaxRetries),
		retry.InitialDelay(r.InitialDelay),
		retry.BackoffMultiplier(r.BackoffMultiplier),
		retry.MaxDelay(r.MaxDelay),
		retry.LogRetries(r.LogRetries),
	}
	return retry.New(append(base, opts...)...)
}

// Logger builds the logger described by the log section.
func (l LogConfig) Logger(appName, env string) (logger.Logger, error) {
	level, err := logger.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := []logger.Option{logger.WithLevel(level)}
	if l.File != "" {
		opts = append(opts, logger.WithRotation(l.File, 100, 7, 30))
	}
	return logger.InitLogger(logger.Engine(l.Engine), appName, env, opts...)
}

// Validate checks the validate tags of s.
func (s *Suite) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, FormatValidationError(err))
	}
	return nil
}

// FormatValidationError renders validator errors as "Field=value (tag)" joined by "; ".
func FormatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		msgs := make([]string, 0, len(validationErrs))
		for _, ve := range validationErrs {
			msgs = append(msgs, fmt.Sprintf("%s=%v (%s)", ve.Namespace(), ve.Value(), ve.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}
