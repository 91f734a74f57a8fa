// Package kafkav2 streams per-test results through Kafka: a producer used by the
// reporter, and a consumer/processor pair used by aggregators, with retries and DLQ fallback.
package kafkav2

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/results"
)

// RunIDHeader carries the run ID of a result event.
const RunIDHeader = "run_id"

// Producer wraps kafka.Writer. Writes wait for all in-sync replicas.
type Producer struct {
	writer *kafka.Writer
	log    logger.Logger
}

// NewProducer creates a producer for topic.
func NewProducer(brokers []string, topic string, log logger.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Logger: kafka.LoggerFunc(func(msg string, args ...any) {
				log.Debug("producer info", "message", fmt.Sprintf(msg, args...))
			}),
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
				log.Error("producer error", "error", fmt.Sprintf(msg, args...))
			}),
		},
		log: log,
	}
}

// Send publishes a single message.
func (p *Producer) Send(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("kafkav2.Producer.Send: %w", err)
	}
	return nil
}

// PublishResult sends one test result keyed by runID, so results of a run keep their order.
func (p *Producer) PublishResult(ctx context.Context, runID string, result results.TestResult) error {
	msg, err := EncodeResult(runID, result)
	if err != nil {
		return err
	}
	return p.Send(ctx, msg.Key, msg.Value, msg.Headers...)
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
