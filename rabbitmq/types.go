package rabbitmq

import (
	"context"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/e2ekit/config"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/retry"
)

// ClientConfig — конфигурация клиента RabbitMQ.
type ClientConfig struct {
	URL            string
	ConnectionName string // для идентификации в RabbitMQ UI
	ConnectTimeout time.Duration
	Heartbeat      time.Duration
	ReconnectRetry retry.Strategy
	PublishRetry   retry.Strategy
	ConsumeRetry   retry.Strategy
	Logger         logger.Logger
}

// ClientConfigFromSuite строит ClientConfig из секции rabbitmq и стратегии повторов набора.
func ClientConfigFromSuite(cfg config.RabbitMQConfig, strategy retry.Strategy, log logger.Logger) ClientConfig {
	return ClientConfig{
		URL:            cfg.URL,
		ConnectionName: "e2ekit",
		ReconnectRetry: strategy,
		PublishRetry:   strategy.With(retry.MaxRetries(2)),
		ConsumeRetry:   strategy,
		Logger:         log,
	}
}

// PublishOption — функциональная опция для публикации.
type PublishOption func(*amqp091.Publishing)

// WithExpiration задает TTL сообщения.
func WithExpiration(d time.Duration) PublishOption {
	return func(p *amqp091.Publishing) {
		if d > 0 {
			p.Expiration = d.Truncate(time.Millisecond).String()
		}
	}
}

// WithHeaders добавляет заголовки AMQP.
func WithHeaders(headers amqp091.Table) PublishOption {
	return func(p *amqp091.Publishing) {
		p.Headers = headers
	}
}

// MessageHandler обрабатывает сообщение. Ошибка → NACK, nil → ACK.
type MessageHandler func(context.Context, amqp091.Delivery) error

// ConsumerConfig — конфигурация потребителя.
type ConsumerConfig struct {
	Queue         string
	ConsumerTag   string
	AutoAck       bool
	Ack           AckConfig
	Nack          NackConfig
	Args          amqp091.Table
	Workers       int
	PrefetchCount int
}

type AckConfig struct {
	Multiple bool
}

type NackConfig struct {
	Multiple bool
	Requeue  bool
}
