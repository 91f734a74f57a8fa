package dlq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/wb-go/e2ekit/logger"
)

type fakePublisher struct {
	key, value []byte
	headers    []kafka.Header
	err        error
}

func (f *fakePublisher) Send(_ context.Context, key, value []byte, headers ...kafka.Header) error {
	f.key, f.value, f.headers = key, value, headers
	return f.err
}

func TestPublishError(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, logger.NewSlogAdapter("e2ekit", "test", logger.WithoutStdout()))
	d.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	msg := kafka.Message{
		Topic:   "e2e.results",
		Offset:  42,
		Key:     []byte("run-1"),
		Value:   []byte(`{"title":"login"}`),
		Headers: []kafka.Header{{Key: "run_id", Value: []byte("run-1")}},
	}
	require.NoError(t, d.PublishError(context.Background(), msg, errors.New("db down"), 3))

	assert.Equal(t, []byte("run-1"), pub.key)
	assert.Equal(t, msg.Headers, pub.headers)

	body := string(pub.value)
	assert.Equal(t, "e2e.results", gjson.Get(body, "original_topic").String())
	assert.Equal(t, int64(42), gjson.Get(body, "offset").Int())
	assert.Equal(t, "db down", gjson.Get(body, "error").String())
	assert.Equal(t, int64(3), gjson.Get(body, "attempts").Int())
	assert.Equal(t, "2026-01-02T03:04:05Z", gjson.Get(body, "failed_at").String())
	assert.Equal(t, "eyJ0aXRsZSI6ImxvZ2luIn0=", gjson.Get(body, "data_base64").String())
}

func TestPublishError_SendFails(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	d := New(pub, logger.NewSlogAdapter("e2ekit", "test", logger.WithoutStdout()))

	err := d.PublishError(context.Background(), kafka.Message{}, errors.New("x"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dlq.PublishError: send to kafka: broker gone")
}
