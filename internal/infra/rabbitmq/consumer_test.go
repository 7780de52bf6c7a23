package rabbitmq

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"go.uber.org/zap"
)

func TestCalculateBackoff(t *testing.T) {
	c := &Consumer{baseDelay: time.Second}

	assert.Equal(t, time.Second, c.calculateBackoff(0))
	assert.Equal(t, time.Second, c.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, c.calculateBackoff(2))
	assert.Equal(t, 8*time.Second, c.calculateBackoff(4))
	assert.Equal(t, maxBackoff, c.calculateBackoff(10))
	assert.Equal(t, maxBackoff, c.calculateBackoff(200))
}

func TestAttemptFromHeaders(t *testing.T) {
	assert.Equal(t, 1, attemptFromHeaders(amqp.Delivery{}))
	assert.Equal(t, 2, attemptFromHeaders(amqp.Delivery{Redelivered: true}))
	assert.Equal(t, 3, attemptFromHeaders(amqp.Delivery{
		Headers: amqp.Table{"x-death": []interface{}{amqp.Table{}, amqp.Table{}}},
	}))
}

func TestCandidateRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	rmqContainer, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	defer rmqContainer.Terminate(context.Background())

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	topology := Topology{
		Exchange:       "fiapx.fingerprints",
		CandidateQueue: "fingerprint.candidates",
		StatusQueue:    "fingerprint.status",
		DLQ:            "fingerprint.candidates.dlq",
	}

	conn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer conn.Close()

	pub, err := NewPublisher(conn, topology)
	require.NoError(t, err)
	require.NoError(t, NewCandidatePublisher(pub).PublishCandidate(ctx, []byte(`{"url":"https://www.youtube.com/watch?v=r"}`)))

	received := make(chan []byte, 1)
	consumer, err := NewConsumer(ConsumerConfig{
		URL:         rmqURL,
		Topology:    topology,
		Prefetch:    1,
		WorkerCount: 1,
	}, func(_ context.Context, body []byte) error {
		received <- body
		return nil
	}, zap.NewNop())
	require.NoError(t, err)
	defer consumer.Close()

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Start(runCtx) }()

	select {
	case body := <-received:
		assert.JSONEq(t, `{"url":"https://www.youtube.com/watch?v=r"}`, string(body))
	case <-time.After(30 * time.Second):
		t.Fatal("candidate was not consumed")
	}

	stop()
	require.NoError(t, <-done)
}
