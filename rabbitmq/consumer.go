package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/retry"
)

// Consumer читает очередь несколькими воркерами и подтверждает сообщения по результату обработчика.
type Consumer struct {
	client  *RabbitClient
	config  ConsumerConfig
	handler MessageHandler
	log     logger.Logger
}

func NewConsumer(client *RabbitClient, cfg ConsumerConfig, handler MessageHandler) *Consumer {
	if cfg.ConsumerTag == "" {
		cfg.ConsumerTag = "consumer"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Consumer{
		client:  client,
		config:  cfg,
		handler: handler,
		log:     client.log.With("queue", cfg.Queue, "consumer_tag", cfg.ConsumerTag),
	}
}

// Start потребляет очередь до отмены ctx или закрытия клиента.
// Потеря канала перезапускает потребление по ConsumeRetry; после исчерпания попыток серия начинается заново.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("consumer started", "workers", c.config.Workers)
	strategy := c.client.config.ConsumeRetry.With(retry.ShouldRetry(func(err error) bool {
		return !errors.Is(err, ErrClientClosed) && ctx.Err() == nil
	}))
	for {
		err := retry.Do(ctx, strategy, func() error { return c.consumeOnce(ctx) })
		if ctx.Err() != nil || c.client.Context().Err() != nil || errors.Is(err, ErrClientClosed) {
			c.log.Info("consumer stopped")
			return nil
		}
		c.log.Error("consume attempts exhausted, restarting", "error", err.Error())
		if !sleep(ctx, strategy.MaxDelay) {
			return nil
		}
	}
}

func (c *Consumer) consumeOnce(ctx context.Context) error {
	ch, err := c.client.GetChannel()
	if err != nil {
		return err
	}
	defer func() {
		_ = ch.Close()
	}()

	if c.config.PrefetchCount > 0 {
		if err := ch.Qos(c.config.PrefetchCount, 0, false); err != nil {
			return err
		}
	}

	msgs, err := ch.Consume(
		c.config.Queue,
		c.config.ConsumerTag,
		c.config.AutoAck,
		false,
		false,
		false,
		c.config.Args,
	)
	if err != nil {
		return err
	}

	return c.serve(ctx, msgs)
}

// serve раздает сообщения воркерам и возвращается, когда канал доставки закрыт,
// ctx отменен или клиент закрыт.
func (c *Consumer) serve(ctx context.Context, msgs <-chan amqp091.Delivery) error {
	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		result  error
	)
	setResult := func(err error) {
		errOnce.Do(func() { result = err })
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for range c.config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					setResult(ctx.Err())
					return
				case <-c.client.Context().Done():
					setResult(ErrClientClosed)
					cancel()
					return
				case msg, ok := <-msgs:
					if !ok {
						setResult(ErrChannelClosedUnexpectedly)
						cancel()
						return
					}
					c.handle(ctx, msg)
				}
			}
		}()
	}

	wg.Wait()
	if result == nil {
		result = ErrChannelClosedUnexpectedly
	}
	return result
}

func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	err := c.handler(ctx, msg)
	if c.config.AutoAck {
		if err != nil {
			c.log.Error("handler failed", "delivery_tag", msg.DeliveryTag, "error", err.Error())
		}
		return
	}

	if err != nil {
		requeue := c.config.Nack.Requeue && !errors.Is(err, ErrMalformedSummary)
		c.log.Warn("handler failed, nack", "delivery_tag", msg.DeliveryTag, "requeue", requeue, "error", err.Error())
		if nackErr := msg.Nack(c.config.Nack.Multiple, requeue); nackErr != nil {
			c.log.Error("nack failed", "error", nackErr.Error())
		}
		return
	}
	if ackErr := msg.Ack(c.config.Ack.Multiple); ackErr != nil {
		c.log.Error("ack failed", "error", ackErr.Error())
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
