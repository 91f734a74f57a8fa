// Package config загружает конфигурацию тестового прогона (Suite) через Viper
// или cleanenv (см. подпакет cleanenv-port).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix используется, если Load вызван с пустым префиксом.
const DefaultEnvPrefix = "E2E"

// Config оборачивает экземпляр Viper с зарегистрированными значениями Suite по умолчанию.
type Config struct {
	v *viper.Viper
}

// New создает Config; все ключи Suite сразу получают значения по умолчанию,
// поэтому переменные окружения работают и без файла конфигурации.
func New() *Config {
	v := viper.New()
	setSuiteDefaults(v)
	return &Config{v: v}
}

// Load читает .env (если передан), переменные окружения с префиксом и файл конфигурации (если передан).
// Флаги pflag.CommandLine привязываются последними и имеют наивысший приоритет.
func (c *Config) Load(configFilePath, envFilePath, envPrefix string) error {
	const op = "config.Load"

	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return fmt.Errorf("%s: load .env file %s: %w", op, envFilePath, err)
		}
	}

	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()
	// CI и BASE_URL выставляются раннерами без префикса.
	if err := c.v.BindEnv("ci", envPrefix+"_CI", "CI"); err != nil {
		return fmt.Errorf("%s: bind env: %w", op, err)
	}
	if err := c.v.BindEnv("base_url", envPrefix+"_BASE_URL", "BASE_URL"); err != nil {
		return fmt.Errorf("%s: bind env: %w", op, err)
	}

	if configFilePath != "" {
		c.v.SetConfigFile(configFilePath)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("%s: read config %s: %w", op, configFilePath, err)
		}
	}

	if err := c.v.BindPFlags(pflag.CommandLine); err != nil {
		return fmt.Errorf("%s: bind flags: %w", op, err)
	}
	return nil
}

// DefineFlag объявляет флаг (короткий и длинный) и привязывает его к ключу конфигурации.
func (c *Config) DefineFlag(short, long, configKey string, defaultValue any, usage string) error {
	switch v := defaultValue.(type) {
	case string:
		pflag.StringP(long, short, v, usage)
	case int:
		pflag.IntP(long, short, v, usage)
	case bool:
		pflag.BoolP(long, short, v, usage)
	case float64:
		pflag.Float64P(long, short, v, usage)
	case []string:
		pflag.StringSliceP(long, short, v, usage)
	case time.Duration:
		pflag.DurationP(long, short, v, usage)
	default:
		return fmt.Errorf("config.DefineFlag: unsupported flag type %T", defaultValue)
	}
	return c.v.BindPFlag(configKey, pflag.Lookup(long))
}

// ParseFlags парсит объявленные флаги.
func (c *Config) ParseFlags() {
	pflag.Parse()
}

// Suite распаковывает конфигурацию в Suite и проверяет теги validate.
func (c *Config) Suite() (Suite, error) {
	var s Suite
	if err := c.v.Unmarshal(&s); err != nil {
		return Suite{}, fmt.Errorf("config.Suite: unmarshal: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Suite{}, err
	}
	return s, nil
}

// GetString получает строковое значение по ключу.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt получает целочисленное значение по ключу.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool получает логическое значение по ключу.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetDuration получает продолжительность по ключу.
func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

// GetStringSlice получает срез строк по ключу.
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// SetDefault устанавливает значение по умолчанию для ключа.
func (c *Config) SetDefault(key string, value any) {
	c.v.SetDefault(key, value)
}

// Load это сокращение для New().Load(...) и Suite().
func Load(configFilePath, envFilePath, envPrefix string) (Suite, error) {
	c := New()
	if err := c.Load(configFilePath, envFilePath, envPrefix); err != nil {
		return Suite{}, err
	}
	return c.Suite()
}

func setSuiteDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("ci", false)
	v.SetDefault("retries", -1)
	v.SetDefault("workers", 0)
	v.SetDefault("headless", true)

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay", time.Second)
	v.SetDefault("retry.backoff_multiplier", 2.0)
	v.SetDefault("retry.max_delay", 10*time.Second)
	v.SetDefault("retry.log_retries", true)

	v.SetDefault("log.engine", "slog")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.channel", "#test-results")
	v.SetDefault("slack.notify_on_success", false)
	v.SetDefault("slack.notify_on_failure", true)
	v.SetDefault("slack.mention_on_failure", []string{})
	v.SetDefault("slack.environment", "development")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 7*24*time.Hour)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.replica_dsns", []string{})
	v.SetDefault("postgres.max_pool_size", 10)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "e2e.results")
	v.SetDefault("kafka.dlq_topic", "e2e.results.dlq")
	v.SetDefault("kafka.group_id", "e2e-aggregator")

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "e2e.runs")

	v.SetDefault("dashboard.addr", ":8080")
}
