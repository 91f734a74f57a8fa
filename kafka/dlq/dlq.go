// Package dlq publishes result events that could not be processed to a dead letter topic.
package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/wb-go/e2ekit/logger"
)

// Publisher sends one message to the dead letter topic.
type Publisher interface {
	Send(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// Record is the JSON body written to the dead letter topic.
// Data holds the original value; encoding/json-compatible marshaling stores it as base64.
type Record struct {
	OriginalTopic string    `json:"original_topic"`
	Partition     int       `json:"partition"`
	Offset        int64     `json:"offset"`
	Error         string    `json:"error"`
	Attempts      int       `json:"attempts"`
	FailedAt      time.Time `json:"failed_at"`
	Data          []byte    `json:"data_base64"`
}

// DLQ captures failed messages for later inspection.
type DLQ struct {
	producer Publisher
	logger   logger.Logger
	now      func() time.Time
}

// New creates a DLQ writing through producer, which must target the dead letter topic.
func New(producer Publisher, log logger.Logger) *DLQ {
	return &DLQ{producer: producer, logger: log, now: time.Now}
}

// PublishError wraps msg, the processing error and the attempt count into a Record
// and sends it keyed by the original message key. Original headers are preserved.
func (d *DLQ) PublishError(ctx context.Context, msg kafka.Message, err error, attempts int) error {
	const op = "dlq.PublishError"

	rec := Record{
		OriginalTopic: msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Error:         err.Error(),
		Attempts:      attempts,
		FailedAt:      d.now().UTC(),
		Data:          msg.Value,
	}

	val, errMarshal := json.Marshal(rec)
	if errMarshal != nil {
		return fmt.Errorf("%s: marshal: %w", op, errMarshal)
	}

	if errSend := d.producer.Send(ctx, msg.Key, val, msg.Headers...); errSend != nil {
		return fmt.Errorf("%s: send to kafka: %w", op, errSend)
	}

	d.logger.LogAttrs(ctx, logger.WarnLevel, "message moved to dlq",
		logger.String("topic", msg.Topic),
		logger.Int64("offset", msg.Offset),
		logger.Int("attempts", attempts),
		logger.Err(err),
	)
	return nil
}
