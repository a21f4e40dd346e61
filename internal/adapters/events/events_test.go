package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/adapters/cache"
	"github.com/bhavishyjain/SevaAI/internal/adapters/memory"
	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/bhavishyjain/SevaAI/internal/ports"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingPublisher struct {
	mu       sync.Mutex
	failNext map[string]bool
	sent     []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext[eventType] {
		delete(p.failNext, eventType)
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, eventType)
	return nil
}

func enqueue(t *testing.T, outbox ports.OutboxRepository, eventType string) {
	t.Helper()
	require.NoError(t, outbox.Enqueue(context.Background(), ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: "CMP-1",
		Payload:      []byte(`{}`),
		OccurredAt:   time.Now().UTC(),
	}))
}

func TestOutboxWorkerRetriesFailedRows(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositories()
	enqueue(t, repos.Outbox, "ticket.created")
	enqueue(t, repos.Outbox, "ticket.assigned")

	pub := &recordingPublisher{failNext: map[string]bool{"ticket.assigned": true}}
	w := NewOutboxWorker(testLogger(), repos.Outbox, pub, time.Second, 10)

	n, err := w.processOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := repos.Outbox.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ticket.assigned", pending[0].EventType)
	assert.Equal(t, 1, pending[0].RetryCount)
	require.NotNil(t, pending[0].LastError)

	n, err = w.processOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"ticket.created", "ticket.assigned"}, pub.sent)

	pending, err = repos.Outbox.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxWorkerStopsOnCancel(t *testing.T) {
	repos := memory.NewRepositories()
	w := NewOutboxWorker(testLogger(), repos.Outbox, &recordingPublisher{}, 10*time.Millisecond, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

type sliceConsumer struct {
	batches [][]Message
}

func (c *sliceConsumer) Poll(_ context.Context, _ int) ([]Message, error) {
	if len(c.batches) == 0 {
		return nil, nil
	}
	next := c.batches[0]
	c.batches = c.batches[1:]
	return next, nil
}

type countingHandler struct {
	calls   int
	failure error
}

func (h *countingHandler) HandleComplaintClassified(_ context.Context, _ []byte) (domain.Ticket, bool, error) {
	h.calls++
	if h.failure != nil {
		err := h.failure
		h.failure = nil
		return domain.Ticket{}, false, err
	}
	return domain.Ticket{TicketID: "CMP-20250101-0001"}, true, nil
}

func classified(eventID string) Message {
	return Message{
		Topic:   TopicComplaintClassified,
		Payload: []byte(`{"event_id":"` + eventID + `","data":{"classification":{"type":"newComplaint"}}}`),
	}
}

func TestConsumerWorkerDeduplicatesByEventID(t *testing.T) {
	handler := &countingHandler{}
	consumer := &sliceConsumer{batches: [][]Message{
		{classified("e-1"), classified("e-1"), classified("e-2")},
		{{Topic: "other.topic", Payload: []byte(`{}`)}},
	}}
	w := NewConsumerWorker(testLogger(), consumer, handler, cache.NewMemoryCache(), time.Second)

	require.NoError(t, w.processOnce(context.Background()))
	require.NoError(t, w.processOnce(context.Background()))
	assert.Equal(t, 2, handler.calls)
}

func TestConsumerWorkerRetriesAfterHandlerFailure(t *testing.T) {
	handler := &countingHandler{failure: domain.ErrStorageUnavailable}
	consumer := &sliceConsumer{batches: [][]Message{
		{classified("e-1")},
		{classified("e-1")},
	}}
	w := NewConsumerWorker(testLogger(), consumer, handler, cache.NewMemoryCache(), time.Second)

	require.NoError(t, w.processOnce(context.Background()))
	require.NoError(t, w.processOnce(context.Background()))
	assert.Equal(t, 2, handler.calls)
}

func TestConsumerWorkerWithoutDedupProcessesEverything(t *testing.T) {
	handler := &countingHandler{}
	consumer := &sliceConsumer{batches: [][]Message{{classified("e-1"), classified("e-1")}}}
	w := NewConsumerWorker(testLogger(), consumer, handler, nil, time.Second)

	require.NoError(t, w.processOnce(context.Background()))
	assert.Equal(t, 2, handler.calls)
}

func TestKafkaPublisherTopicMapping(t *testing.T) {
	p, err := NewKafkaPublisher([]string{"localhost:9092"}, map[string]string{"ticket.created": "dispatch.tickets"})
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, "dispatch.tickets", p.topicFor("ticket.created"))
	assert.Equal(t, "ticket.assigned", p.topicFor("ticket.assigned"))

	_, err = NewKafkaPublisher(nil, nil)
	assert.Error(t, err)
}

func TestKafkaConsumerValidation(t *testing.T) {
	_, err := NewKafkaConsumer(nil, "g", []string{"t"})
	assert.Error(t, err)
	_, err = NewKafkaConsumer([]string{"b"}, "", []string{"t"})
	assert.Error(t, err)
	_, err = NewKafkaConsumer([]string{"b"}, "g", nil)
	assert.Error(t, err)
}

func TestConsumerWorkerDeduplicatesByHeaderEventID(t *testing.T) {
	handler := &countingHandler{}
	bare := func() Message {
		return Message{
			Topic:   TopicComplaintClassified,
			Payload: []byte(`{"type":"newComplaint","department":"road","refinedText":"pothole"}`),
			EventID: "hdr-1",
		}
	}
	consumer := &sliceConsumer{batches: [][]Message{{bare(), bare()}}}
	w := NewConsumerWorker(testLogger(), consumer, handler, cache.NewMemoryCache(), time.Second)

	require.NoError(t, w.processOnce(context.Background()))
	assert.Equal(t, 1, handler.calls)
}

func TestConsumerWorkerWithoutConsumerIsIdle(t *testing.T) {
	handler := &countingHandler{}
	w := NewConsumerWorker(testLogger(), nil, handler, nil, time.Second)

	require.NoError(t, w.processOnce(context.Background()))
	assert.Zero(t, handler.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.processOnce(ctx), context.Canceled)
}

func TestFromKafkaReadsEventIDHeader(t *testing.T) {
	msg := fromKafka(kafka.Message{
		Topic:     TopicComplaintClassified,
		Partition: 2,
		Offset:    41,
		Key:       []byte("k"),
		Value:     []byte(`{}`),
		Headers:   []kafka.Header{{Key: "trace", Value: []byte("x")}, {Key: "event_id", Value: []byte("e-9")}},
	})
	assert.Equal(t, "e-9", msg.EventID)
	assert.Equal(t, 2, msg.Partition)
	assert.Equal(t, int64(41), msg.Offset)
	assert.Equal(t, "k", msg.Key)
}

func TestLogPublisherLogsDispatchFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, "ticket.assigned",
		[]byte(`{"event_id":"e-1","data":{"ticket_id":"CMP-1","worker_id":"w-1"}}`), "CMP-1"))
	require.NoError(t, p.Publish(ctx, "worker.metrics_updated",
		[]byte(`{"event_id":"e-2","data":{"worker_id":"w-1","ticket_id":"CMP-1"}}`), "w-1"))
	require.NoError(t, p.Publish(ctx, "ticket.priority_escalated",
		[]byte(`{"event_id":"e-3","data":{"location":"Main Square","priority":"High","ticket_ids":["CMP-1","CMP-2"]}}`), "Main Square"))
	require.NoError(t, p.Publish(ctx, "ticket.created", []byte(`not json`), "CMP-3"))

	var lines []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 4)
	assert.Equal(t, "CMP-1", lines[0]["ticket_id"])
	assert.Equal(t, "w-1", lines[0]["worker_id"])
	assert.Equal(t, "w-1", lines[1]["worker_id"])
	assert.Equal(t, "Main Square", lines[2]["location"])
	assert.EqualValues(t, 2, lines[2]["tickets"])
	assert.Equal(t, "WARN", lines[3]["level"])
	assert.Equal(t, "CMP-3", lines[3]["partition_key"])
}
