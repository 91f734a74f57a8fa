package rabbitmq

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/e2ekit/results"
	"github.com/wb-go/e2ekit/retry"
)

// Routing keys of run summaries.
const (
	RoutingKeyPassed = "run.passed"
	RoutingKeyFailed = "run.failed"
)

// Publisher публикует сообщения в один exchange.
type Publisher struct {
	client      *RabbitClient
	exchange    string
	contentType string
}

// NewPublisher конструктор Publisher.
func NewPublisher(client *RabbitClient, exchange, contentType string) *Publisher {
	return &Publisher{
		client:      client,
		exchange:    exchange,
		contentType: contentType,
	}
}

// GetExchangeName возвращает имя обменника.
func (p *Publisher) GetExchangeName() string {
	return p.exchange
}

// Publish отправляет body с routingKey, повторяя попытки по PublishRetry клиента.
// Каждая попытка открывает свой канал: после разрыва соединения старый канал непригоден.
func (p *Publisher) Publish(
	ctx context.Context,
	body []byte,
	routingKey string,
	opts ...PublishOption,
) error {
	return retry.Do(ctx, p.client.config.PublishRetry, func() error {
		ch, err := p.client.GetChannel()
		if err != nil {
			return err
		}
		defer func() {
			_ = ch.Close()
		}()

		pub := amqp091.Publishing{
			ContentType:  p.contentType,
			DeliveryMode: amqp091.Persistent,
			Body:         body,
		}
		for _, opt := range opts {
			opt(&pub)
		}

		return ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, pub)
	})
}

// SummaryRoutingKey выбирает routing key по исходу прогона.
func SummaryRoutingKey(s results.Summary) string {
	if s.HasFailures() {
		return RoutingKeyFailed
	}
	return RoutingKeyPassed
}

// PublishSummary публикует сводку прогона в JSON; run_id уходит и в заголовки.
func (p *Publisher) PublishSummary(ctx context.Context, s results.Summary, opts ...PublishOption) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("rabbitmq.PublishSummary: marshal: %w", err)
	}
	opts = append([]PublishOption{WithHeaders(amqp091.Table{"run_id": s.RunID})}, opts...)
	if err := p.Publish(ctx, body, SummaryRoutingKey(s), opts...); err != nil {
		return fmt.Errorf("rabbitmq.PublishSummary: %w", err)
	}
	return nil
}

// DecodeSummary разбирает тело сообщения со сводкой.
func DecodeSummary(d amqp091.Delivery) (results.Summary, error) {
	var s results.Summary
	if err := json.Unmarshal(d.Body, &s); err != nil {
		return results.Summary{}, fmt.Errorf("%w: %w", ErrMalformedSummary, err)
	}
	if s.RunID == "" {
		return results.Summary{}, fmt.Errorf("%w: run_id is empty", ErrMalformedSummary)
	}
	return s, nil
}

// SummaryHandler превращает fn в MessageHandler, разбирающий сводку.
func SummaryHandler(fn func(context.Context, results.Summary) error) MessageHandler {
	return func(ctx context.Context, d amqp091.Delivery) error {
		s, err := DecodeSummary(d)
		if err != nil {
			return err
		}
		return fn(ctx, s)
	}
}
