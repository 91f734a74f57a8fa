package kafkav2

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/wb-go/e2ekit/helpers"
	"github.com/wb-go/e2ekit/results"
)

// ErrMalformedEvent marks messages that can never be processed. They skip retries.
var ErrMalformedEvent = errors.New("malformed result event")

// ResultEvent is the payload of a result message.
type ResultEvent struct {
	RunID  string             `json:"run_id"`
	Result results.TestResult `json:"result"`
}

// EncodeResult builds the message PublishResult sends.
func EncodeResult(runID string, result results.TestResult) (kafka.Message, error) {
	value, err := json.Marshal(ResultEvent{RunID: runID, Result: result})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafkav2.EncodeResult: %w", err)
	}
	return kafka.Message{
		Key:     []byte(runID),
		Value:   value,
		Headers: []kafka.Header{{Key: RunIDHeader, Value: []byte(runID)}},
	}, nil
}

// DecodeResult parses a result message. Errors wrap ErrMalformedEvent.
func DecodeResult(msg kafka.Message) (ResultEvent, error) {
	var ev ResultEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ResultEvent{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	runID, err := helpers.ParseRunID(ev.RunID)
	if err != nil {
		return ResultEvent{}, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	ev.RunID = runID
	if ev.Result.Title == "" || ev.Result.Status == "" {
		return ResultEvent{}, fmt.Errorf("%w: title and status are required", ErrMalformedEvent)
	}
	return ev, nil
}

// ResultHandler adapts fn to a Handler that decodes each message first.
func ResultHandler(fn func(ctx context.Context, ev ResultEvent) error) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		ev, err := DecodeResult(msg)
		if err != nil {
			return err
		}
		return fn(ctx, ev)
	}
}
