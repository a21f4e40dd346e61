package ports

import (
	"context"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/google/uuid"
)

// TicketRepository is a keyed store with a version-guarded update. Update
// returns domain.ErrVersionConflict when the stored version differs from
// expectedVersion and bumps Version on success.
type TicketRepository interface {
	Create(ctx context.Context, ticket domain.Ticket) error
	Get(ctx context.Context, ticketID string) (domain.Ticket, error)
	Update(ctx context.Context, ticket domain.Ticket, expectedVersion int64) (domain.Ticket, error)
	List(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error)
	UpdatePriorityByLocation(ctx context.Context, location string, priority domain.Priority, now time.Time) ([]string, error)
}

type WorkerRepository interface {
	Create(ctx context.Context, worker domain.Worker) error
	Get(ctx context.Context, workerID string) (domain.Worker, error)
	GetByUsername(ctx context.Context, username string) (domain.Worker, error)
	Update(ctx context.Context, worker domain.Worker, expectedVersion int64) (domain.Worker, error)
	List(ctx context.Context, filter domain.WorkerFilter) ([]domain.Worker, error)
}

type OutboxEvent struct {
	EventID          uuid.UUID
	EventType        string
	PartitionKey     string
	PartitionKeyPath string
	Payload          []byte
	OccurredAt       time.Time
	SchemaVersion    string
}

type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	PublishedAt  *time.Time
	LastError    *string
	LastErrorAt  *time.Time
	FirstSeenAt  time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}
