package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// dispatchEnvelope is the subset of an outbox envelope worth a log line.
type dispatchEnvelope struct {
	EventID    string `json:"event_id"`
	OccurredAt string `json:"occurred_at"`
	Data       struct {
		TicketID  string   `json:"ticket_id"`
		WorkerID  string   `json:"worker_id"`
		Location  string   `json:"location"`
		Status    string   `json:"status"`
		Priority  string   `json:"priority"`
		TicketIDs []string `json:"ticket_ids"`
	} `json:"data"`
}

// LogPublisher writes dispatch events to the log instead of a broker. It
// serves single-process deployments where nothing consumes ticket or worker
// events downstream.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	attrs := []any{
		"module", "events.log_publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_type", eventType,
	}
	var env dispatchEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		attrs = append(attrs, "partition_key", partitionKey, "payload_bytes", len(payload))
		p.logger.WarnContext(ctx, "dispatch event with unreadable payload", attrs...)
		return nil
	}
	attrs = append(attrs, "event_id", env.EventID, "occurred_at", env.OccurredAt)
	switch {
	case strings.HasPrefix(eventType, "worker."):
		attrs = append(attrs, "worker_id", firstNonEmpty(env.Data.WorkerID, partitionKey), "ticket_id", env.Data.TicketID)
	case env.Data.Location != "" && len(env.Data.TicketIDs) > 0:
		attrs = append(attrs, "location", env.Data.Location, "priority", env.Data.Priority, "tickets", len(env.Data.TicketIDs))
	default:
		attrs = append(attrs, "ticket_id", firstNonEmpty(env.Data.TicketID, partitionKey))
		if env.Data.WorkerID != "" {
			attrs = append(attrs, "worker_id", env.Data.WorkerID)
		}
		if env.Data.Status != "" {
			attrs = append(attrs, "status", env.Data.Status)
		}
	}
	p.logger.InfoContext(ctx, "dispatch event", attrs...)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
