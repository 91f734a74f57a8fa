package kafkav2

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/e2ekit/logger"
)

// Consumer wraps kafka.Reader in a consumer group. Offsets are committed explicitly.
type Consumer struct {
	reader *kafka.Reader
	log    logger.Logger
}

// NewConsumer creates a consumer of topic in groupID.
func NewConsumer(brokers []string, topic, groupID string, log logger.Logger) *Consumer {
	log = log.With("topic", topic, "group_id", groupID)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		Logger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Debug("consumer info", "message", fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error("consumer error", "error", fmt.Sprintf(msg, args...))
		}),
	})

	return &Consumer{
		reader: reader,
		log:    log,
	}
}

// Fetch blocks until the next message is available or ctx is done.
func (c *Consumer) Fetch(ctx context.Context) (kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafkav2.Consumer.Fetch: %w", err)
	}
	return msg, nil
}

// Commit acknowledges msg. Call it only after msg is fully handled.
func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafkav2.Consumer.Commit: %w", err)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
