package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/bhavishyjain/SevaAI/internal/ports"
	"github.com/google/uuid"
)

const (
	EventTicketCreated           = "ticket.created"
	EventTicketStatusChanged     = "ticket.status_changed"
	EventTicketAssigned          = "ticket.assigned"
	EventTicketPriorityEscalated = "ticket.priority_escalated"
	EventWorkerMetricsUpdated    = "worker.metrics_updated"
)

var errUnchanged = errors.New("unchanged")

// enqueueEvent records a domain event after the owning write has landed. A
// failed enqueue is logged and does not undo the committed mutation.
func (s *Service) enqueueEvent(ctx context.Context, eventType, partitionKey, partitionKeyPath string, data any) {
	if s.outbox == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	occurredAt := s.now()
	eventID := uuid.New()
	payload, err := json.Marshal(map[string]any{
		"event_id":           eventID.String(),
		"event_type":         eventType,
		"occurred_at":        occurredAt.Format(time.RFC3339),
		"source_service":     s.cfg.ServiceName,
		"schema_version":     "1.0",
		"partition_key_path": partitionKeyPath,
		"partition_key":      partitionKey,
		"data":               data,
	})
	if err == nil {
		err = s.outbox.Enqueue(ctx, ports.OutboxEvent{
			EventID:          eventID,
			EventType:        eventType,
			PartitionKey:     partitionKey,
			PartitionKeyPath: partitionKeyPath,
			Payload:          payload,
			OccurredAt:       occurredAt,
			SchemaVersion:    "1.0",
		})
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "outbox enqueue failed",
			"module", "application",
			"layer", "service",
			"operation", "enqueue_event",
			"outcome", "failure",
			"event_type", eventType,
			"partition_key", partitionKey,
			"error", err,
		)
	}
}

// updateTicket reloads the ticket and applies mutate until the versioned
// write lands. mutate may return errUnchanged to skip the write.
func (s *Service) updateTicket(ctx context.Context, ticketID string, mutate func(*domain.Ticket) error) (domain.Ticket, bool, error) {
	for attempt := 0; attempt < s.cfg.CASRetryAttempts; attempt++ {
		current, err := s.tickets.Get(ctx, ticketID)
		if err != nil {
			return domain.Ticket{}, false, err
		}
		next := current.Clone()
		if err := mutate(&next); err != nil {
			if errors.Is(err, errUnchanged) {
				return current, false, nil
			}
			return current, false, err
		}
		if err := ctx.Err(); err != nil {
			return current, false, err
		}
		updated, err := s.tickets.Update(ctx, next, current.Version)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return domain.Ticket{}, false, err
		}
		return updated, true, nil
	}
	return domain.Ticket{}, false, fmt.Errorf("%w: ticket %s changed concurrently", domain.ErrConflict, ticketID)
}

func (s *Service) updateWorker(ctx context.Context, workerID string, mutate func(*domain.Worker) error) (domain.Worker, bool, error) {
	for attempt := 0; attempt < s.cfg.CASRetryAttempts; attempt++ {
		current, err := s.workers.Get(ctx, workerID)
		if err != nil {
			return domain.Worker{}, false, err
		}
		next := current.Clone()
		if err := mutate(&next); err != nil {
			if errors.Is(err, errUnchanged) {
				return current, false, nil
			}
			return current, false, err
		}
		if err := ctx.Err(); err != nil {
			return current, false, err
		}
		updated, err := s.workers.Update(ctx, next, current.Version)
		if errors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return domain.Worker{}, false, err
		}
		return updated, true, nil
	}
	return domain.Worker{}, false, fmt.Errorf("%w: worker %s changed concurrently", domain.ErrConflict, workerID)
}

// lockWorker serializes writers of one worker record. Callers that also
// hold a ticket lock must take it first.
func (s *Service) lockWorker(ctx context.Context, workerID string) (func(), error) {
	return s.workerLocks.Lock(ctx, "worker:"+workerID)
}

func (s *Service) lockTicket(ctx context.Context, ticketID string) (func(), error) {
	return s.ticketLocks.Lock(ctx, "ticket:"+ticketID)
}

func requireActor(actor Actor) error {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

func requireOperator(actor Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	switch actor.Role {
	case RoleAdmin, RoleHead, RoleSystem:
		return nil
	default:
		return domain.ErrForbidden
	}
}

func requireAdmin(actor Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.Role != RoleAdmin && actor.Role != RoleSystem {
		return domain.ErrForbidden
	}
	return nil
}

func nowPtr(t time.Time) *time.Time {
	return &t
}

const timeLayout = time.RFC3339
