package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/e2ekit/logger"
	"github.com/wb-go/e2ekit/results"
)

type ackRecord struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	mu   sync.Mutex
	recs []ackRecord
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, ackRecord{tag: tag, ack: true})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, ackRecord{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAcknowledger) byTag() map[uint64]ackRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uint64]ackRecord, len(f.recs))
	for _, r := range f.recs {
		out[r.tag] = r
	}
	return out
}

func testClient(ctx context.Context) *RabbitClient {
	return &RabbitClient{
		log: logger.NewSlogAdapter("e2ekit", "test", logger.WithoutStdout()),
		ctx: ctx,
	}
}

func TestConsumer_ServeAcksAndNacks(t *testing.T) {
	ack := &fakeAcknowledger{}
	var mu sync.Mutex
	var seen []string

	handler := SummaryHandler(func(_ context.Context, s results.Summary) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.RunID)
		if s.RunID == "broken" {
			return errors.New("db down")
		}
		return nil
	})

	c := NewConsumer(testClient(context.Background()), ConsumerConfig{
		Queue:   "e2e.summaries",
		Workers: 2,
		Nack:    NackConfig{Requeue: true},
	}, handler)

	msgs := make(chan amqp091.Delivery, 3)
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`{"run_id":"ok","total":3}`)}
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`{"run_id":"broken"}`)}
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte(`not json`)}
	close(msgs)

	err := c.serve(context.Background(), msgs)
	assert.ErrorIs(t, err, ErrChannelClosedUnexpectedly)

	recs := ack.byTag()
	require.Len(t, recs, 3)
	assert.True(t, recs[1].ack)
	assert.False(t, recs[2].ack)
	assert.True(t, recs[2].requeue)
	assert.False(t, recs[3].ack)
	assert.False(t, recs[3].requeue, "malformed messages are not requeued")

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"ok", "broken"}, seen)
}

func TestConsumer_ServeStopsOnCancel(t *testing.T) {
	c := NewConsumer(testClient(context.Background()), ConsumerConfig{Queue: "q"},
		func(context.Context, amqp091.Delivery) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan amqp091.Delivery)
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := c.serve(ctx, msgs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumer_ServeStopsOnClientClose(t *testing.T) {
	clientCtx, closeClient := context.WithCancel(context.Background())
	closeClient()
	c := NewConsumer(testClient(clientCtx), ConsumerConfig{Queue: "q"},
		func(context.Context, amqp091.Delivery) error { return nil })

	err := c.serve(context.Background(), make(chan amqp091.Delivery))
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestSummaryRoutingKey(t *testing.T) {
	assert.Equal(t, RoutingKeyPassed, SummaryRoutingKey(results.Summary{Total: 2, Passed: 2}))
	assert.Equal(t, RoutingKeyFailed, SummaryRoutingKey(results.Summary{Total: 2, Passed: 1, Failed: 1}))
}

func TestDecodeSummary(t *testing.T) {
	s, err := DecodeSummary(amqp091.Delivery{Body: []byte(`{"run_id":"r1","total":4,"failed":1}`)})
	require.NoError(t, err)
	assert.Equal(t, "r1", s.RunID)
	assert.Equal(t, 4, s.Total)

	_, err = DecodeSummary(amqp091.Delivery{Body: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrMalformedSummary)
}

func TestNewClient_MissingURL(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.ErrorIs(t, err, ErrMissingURL)
}
