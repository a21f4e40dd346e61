package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/bhavishyjain/SevaAI/internal/ports"
)

const TopicComplaintClassified = "complaint.classified"

// Message is one classifier record. EventID is the event_id header, used
// for dedup when the payload is not an envelope.
type Message struct {
	Topic     string
	Key       string
	Payload   []byte
	EventID   string
	Partition int
	Offset    int64
}

type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
}

// ClassificationHandler turns classifier output into tickets.
type ClassificationHandler interface {
	HandleComplaintClassified(ctx context.Context, payload []byte) (domain.Ticket, bool, error)
}

// ConsumerWorker polls the consumer and dispatches messages by topic.
// Messages that carry an event id are processed at most once per dedupTTL
// when a cache is configured. A nil consumer makes the worker idle.
type ConsumerWorker struct {
	logger   *slog.Logger
	consumer Consumer
	handler  ClassificationHandler
	dedup    ports.Cache
	dedupTTL time.Duration
	interval time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler ClassificationHandler, dedup ports.Cache, interval time.Duration) *ConsumerWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ConsumerWorker{
		logger:   logger,
		consumer: consumer,
		handler:  handler,
		dedup:    dedup,
		dedupTTL: 7 * 24 * time.Hour,
		interval: interval,
	}
}

// WithDedupTTL sets how long a processed event id is remembered.
func (w *ConsumerWorker) WithDedupTTL(ttl time.Duration) *ConsumerWorker {
	if ttl > 0 {
		w.dedupTTL = ttl
	}
	return w
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "consumer iteration failed",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ConsumerWorker) processOnce(ctx context.Context) error {
	if w.consumer == nil {
		return ctx.Err()
	}
	msgs, err := w.consumer.Poll(ctx, 50)
	for _, msg := range msgs {
		w.handle(ctx, msg)
	}
	return err
}

func (w *ConsumerWorker) handle(ctx context.Context, msg Message) {
	switch msg.Topic {
	case TopicComplaintClassified:
		eventID := envelopeEventID(msg.Payload)
		if eventID == "" {
			eventID = msg.EventID
		}
		if w.seen(ctx, eventID) {
			w.logger.DebugContext(ctx, "duplicate classification skipped",
				"module", "events.consumer_worker",
				"operation", "handle_complaint_classified",
				"event_id", eventID,
			)
			return
		}
		ticket, created, err := w.handler.HandleComplaintClassified(ctx, msg.Payload)
		if err != nil {
			w.forget(ctx, eventID)
			w.logger.WarnContext(ctx, "failed to handle complaint.classified",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle_complaint_classified",
				"outcome", "failure",
				"event_id", eventID,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			return
		}
		if created {
			w.logger.InfoContext(ctx, "ticket created from classification",
				"module", "events.consumer_worker",
				"layer", "adapter",
				"operation", "handle_complaint_classified",
				"outcome", "success",
				"ticket_id", ticket.TicketID,
			)
		}
	default:
		w.logger.DebugContext(ctx, "ignoring message", "topic", msg.Topic)
	}
}

func (w *ConsumerWorker) seen(ctx context.Context, eventID string) bool {
	if w.dedup == nil || eventID == "" {
		return false
	}
	n, err := w.dedup.IncrWithTTL(ctx, dedupKey(eventID), w.dedupTTL)
	if err != nil {
		return false
	}
	return n > 1
}

func (w *ConsumerWorker) forget(ctx context.Context, eventID string) {
	if w.dedup == nil || eventID == "" {
		return
	}
	_ = w.dedup.Delete(context.WithoutCancel(ctx), dedupKey(eventID))
}

func dedupKey(eventID string) string {
	return "events:dedup:" + eventID
}

func envelopeEventID(payload []byte) string {
	var env struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return ""
	}
	return env.EventID
}
