// Package rabbitmq рассылает сводки прогонов через RabbitMQ (github.com/rabbitmq/amqp091-go)
// и переподключается к брокеру по стратегии retry.
package rabbitmq

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/retry"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultHeartbeat      = 10 * time.Second
)

// RabbitClient основная структура клиента.
type RabbitClient struct {
	config ClientConfig
	log    logger.Logger
	conn   *amqp091.Connection
	mu     sync.RWMutex
	notify chan *amqp091.Error
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// NewClient создаёт клиента и выполняет первичное подключение с повторами по ReconnectRetry.
func NewClient(cfg ClientConfig) (*RabbitClient, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.Heartbeat == 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewSlogAdapter("e2ekit", "")
	}
	log = log.With("component", "rabbitmq")
	cfg.ReconnectRetry.Logger = log
	cfg.PublishRetry.Logger = log
	cfg.ConsumeRetry.Logger = log

	ctx, cancel := context.WithCancel(context.Background())

	client := &RabbitClient{
		config: cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := retry.Do(ctx, cfg.ReconnectRetry, client.connect); err != nil {
		cancel()
		return nil, fmt.Errorf("rabbitmq.NewClient: initial connect: %w", err)
	}

	return client, nil
}

// connect открывает новое соединение, заменяет текущее и запускает наблюдение за ним.
func (c *RabbitClient) connect() error {
	dialer := &net.Dialer{
		Timeout:   c.config.ConnectTimeout,
		KeepAlive: c.config.Heartbeat,
	}

	amqpConf := amqp091.Config{
		Heartbeat:  c.config.Heartbeat,
		Dial:       func(network, addr string) (net.Conn, error) { return dialer.Dial(network, addr) },
		Locale:     "en_US",
		Properties: amqp091.Table{"connection_name": c.config.ConnectionName},
	}

	conn, err := amqp091.DialConfig(c.config.URL, amqpConf)
	if err != nil {
		return err
	}

	notify := make(chan *amqp091.Error, 1)
	conn.NotifyClose(notify)

	c.mu.Lock()
	oldConn := c.conn
	c.conn = conn
	c.notify = notify
	c.mu.Unlock()

	if oldConn != nil {
		_ = oldConn.Close()
	}

	go c.watchConnection(notify)

	return nil
}

// watchConnection запускает переподключение при неожиданном закрытии соединения.
func (c *RabbitClient) watchConnection(notify <-chan *amqp091.Error) {
	select {
	case <-c.ctx.Done():
		return
	case err := <-notify:
		if err != nil && !c.closed.Load() {
			c.log.Warn("connection lost, reconnecting", "error", err.Error())
			go c.reconnectLoop()
		}
	}
}

// reconnectLoop повторяет серии попыток ReconnectRetry, пока не подключится или клиент не закроют.
func (c *RabbitClient) reconnectLoop() {
	for !c.closed.Load() {
		err := retry.Do(c.ctx, c.config.ReconnectRetry, c.connect)
		if err == nil {
			c.log.Info("reconnected")
			return
		}
		if c.ctx.Err() != nil {
			return
		}
		c.log.Error("reconnect attempts exhausted, starting over", "error", err.Error())
	}
}

// GetChannel возвращает новый AMQP-канал.
func (c *RabbitClient) GetChannel() (*amqp091.Channel, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, ErrChannelLost
	}

	return conn.Channel()
}

// Close отменяет контекст клиента и закрывает соединение. Повторный вызов ничего не делает.
func (c *RabbitClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Context возвращает контекст клиента; он отменяется в Close.
func (c *RabbitClient) Context() context.Context {
	return c.ctx
}

// DeclareExchange объявляет exchange на временном канале.
func (c *RabbitClient) DeclareExchange(name, kind string, durable, autoDelete,
	internal bool, args amqp091.Table) error {
	ch, err := c.GetChannel()
	if err != nil {
		return err
	}
	defer func() {
		_ = ch.Close()
	}()

	return ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, false, args)
}

// DeclareQueue объявляет очередь и привязывает её к exchange.
func (c *RabbitClient) DeclareQueue(
	queueName, exchangeName, routingKey string,
	queueDurable, queueAutoDelete bool,
	queueArgs amqp091.Table,
) error {
	ch, err := c.GetChannel()
	if err != nil {
		return err
	}
	defer func() {
		_ = ch.Close()
	}()

	if _, err = ch.QueueDeclare(queueName, queueDurable, queueAutoDelete, false, false, queueArgs); err != nil {
		return err
	}

	return ch.QueueBind(queueName, routingKey, exchangeName, false, nil)
}
