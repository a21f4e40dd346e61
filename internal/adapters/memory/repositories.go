package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/bhavishyjain/SevaAI/internal/ports"
	"github.com/google/uuid"
)

type Repositories struct {
	Tickets *TicketRepository
	Workers *WorkerRepository
	Outbox  *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Tickets: &TicketRepository{rows: map[string]domain.Ticket{}},
		Workers: &WorkerRepository{rows: map[string]domain.Worker{}},
		Outbox:  &OutboxRepository{},
	}
}

type TicketRepository struct {
	mu   sync.RWMutex
	rows map[string]domain.Ticket
}

func (r *TicketRepository) Create(_ context.Context, ticket domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[ticket.TicketID]; ok {
		return domain.ErrConflict
	}
	if ticket.Version <= 0 {
		ticket.Version = 1
	}
	r.rows[ticket.TicketID] = ticket.Clone()
	return nil
}

func (r *TicketRepository) Get(_ context.Context, ticketID string) (domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.rows[strings.TrimSpace(ticketID)]
	if !ok {
		return domain.Ticket{}, domain.ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *TicketRepository) Update(_ context.Context, ticket domain.Ticket, expectedVersion int64) (domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rows[ticket.TicketID]
	if !ok {
		return domain.Ticket{}, domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domain.Ticket{}, domain.ErrVersionConflict
	}
	ticket.Version = expectedVersion + 1
	r.rows[ticket.TicketID] = ticket.Clone()
	return ticket.Clone(), nil
}

func (r *TicketRepository) List(_ context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	items := make([]domain.Ticket, 0, len(r.rows))
	for _, ticket := range r.rows {
		if matchTicket(ticket, filter) {
			items = append(items, ticket.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if filter.NewestFirst {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (r *TicketRepository) UpdatePriorityByLocation(_ context.Context, location string, priority domain.Priority, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated []string
	for id, ticket := range r.rows {
		if ticket.Location != location || ticket.Priority == priority {
			continue
		}
		ticket.Priority = priority
		ticket.UpdatedAt = now
		ticket.Version++
		r.rows[id] = ticket
		updated = append(updated, id)
	}
	sort.Strings(updated)
	return updated, nil
}

func matchTicket(t domain.Ticket, f domain.TicketFilter) bool {
	if f.Department != "" && t.Department != f.Department {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.WorkerID != "" && t.AssignedWorkerID != f.WorkerID {
		return false
	}
	if f.ReporterID != "" && t.ReporterID != f.ReporterID {
		return false
	}
	if f.Location != "" && t.Location != f.Location {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !t.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	if f.UpdatedFrom != nil && t.UpdatedAt.Before(*f.UpdatedFrom) {
		return false
	}
	return true
}

type WorkerRepository struct {
	mu   sync.RWMutex
	rows map[string]domain.Worker
}

func (r *WorkerRepository) Create(_ context.Context, worker domain.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[worker.WorkerID]; ok {
		return domain.ErrConflict
	}
	for _, existing := range r.rows {
		if strings.EqualFold(existing.Username, worker.Username) {
			return domain.ErrConflict
		}
	}
	if worker.Version <= 0 {
		worker.Version = 1
	}
	r.rows[worker.WorkerID] = worker.Clone()
	return nil
}

func (r *WorkerRepository) Get(_ context.Context, workerID string) (domain.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	worker, ok := r.rows[strings.TrimSpace(workerID)]
	if !ok {
		return domain.Worker{}, domain.ErrNotFound
	}
	return worker.Clone(), nil
}

func (r *WorkerRepository) GetByUsername(_ context.Context, username string) (domain.Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, worker := range r.rows {
		if strings.EqualFold(worker.Username, strings.TrimSpace(username)) {
			return worker.Clone(), nil
		}
	}
	return domain.Worker{}, domain.ErrNotFound
}

func (r *WorkerRepository) Update(_ context.Context, worker domain.Worker, expectedVersion int64) (domain.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.rows[worker.WorkerID]
	if !ok {
		return domain.Worker{}, domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domain.Worker{}, domain.ErrVersionConflict
	}
	worker.Version = expectedVersion + 1
	r.rows[worker.WorkerID] = worker.Clone()
	return worker.Clone(), nil
}

func (r *WorkerRepository) List(_ context.Context, filter domain.WorkerFilter) ([]domain.Worker, error) {
	r.mu.RLock()
	items := make([]domain.Worker, 0, len(r.rows))
	for _, worker := range r.rows {
		if filter.Department != "" && worker.Department != filter.Department {
			continue
		}
		if filter.WorkStatus != "" && worker.WorkStatus != filter.WorkStatus {
			continue
		}
		if filter.ActiveOnly && !worker.IsActive {
			continue
		}
		items = append(items, worker.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

type OutboxRepository struct {
	mu   sync.Mutex
	rows []ports.OutboxRecord
}

func (r *OutboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      append([]byte(nil), event.Payload...),
		FirstSeenAt:  event.OccurredAt,
	})
	return nil
}

func (r *OutboxRepository) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, rec := range r.rows {
		if rec.PublishedAt != nil {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].OutboxID == outboxID {
			t := at
			r.rows[i].PublishedAt = &t
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].OutboxID == outboxID {
			msg, t := errMsg, at
			r.rows[i].RetryCount++
			r.rows[i].LastError = &msg
			r.rows[i].LastErrorAt = &t
			return nil
		}
	}
	return domain.ErrNotFound
}

// EventTypes lists every enqueued event type in order. Used by tests.
func (r *OutboxRepository) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rows))
	for _, rec := range r.rows {
		out = append(out, rec.EventType)
	}
	return out
}
