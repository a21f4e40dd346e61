package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bhavishyjain/SevaAI/internal/domain"
)

type ticketAssignedEventData struct {
	TicketID       string   `json:"ticket_id"`
	WorkerID       string   `json:"worker_id"`
	AssignedBy     string   `json:"assigned_by"`
	Department     string   `json:"department"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	AssignedAt     string   `json:"assigned_at"`
}

// Assign binds a pending ticket to a worker. With no worker named the best
// ranked eligible worker is used. The worker slot is reserved first and
// released again if the ticket write does not land and this call took it.
func (s *Service) Assign(ctx context.Context, actor Actor, input AssignInput) (domain.Ticket, error) {
	if err := requireOperator(actor); err != nil {
		return domain.Ticket{}, err
	}
	ticketID := strings.TrimSpace(input.TicketID)
	if ticketID == "" {
		return domain.Ticket{}, fmt.Errorf("%w: ticket id is required", domain.ErrInvalidInput)
	}
	if err := domain.ValidateEstimatedHours(input.EstimatedHours); err != nil {
		return domain.Ticket{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Ticket{}, err
	}

	unlock, err := s.lockTicket(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	defer unlock()

	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if err := checkAssignable(ticket); err != nil {
		return domain.Ticket{}, err
	}

	var (
		worker domain.Worker
		added  bool
	)
	if workerID := strings.TrimSpace(input.WorkerID); workerID != "" {
		worker, added, err = s.reserveNamed(ctx, workerID, ticket)
	} else {
		worker, added, err = s.reserveBest(ctx, ticket)
	}
	if err != nil {
		return domain.Ticket{}, err
	}

	updated, _, err := s.updateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if err := checkAssignable(*t); err != nil {
			return err
		}
		now := s.now()
		t.Status = domain.StatusAssigned
		t.AssignedWorkerID = worker.WorkerID
		t.AssignedBy = actor.SubjectID
		t.AssignedAt = nowPtr(now)
		t.EstimatedHours = input.EstimatedHours
		t.UpdatedAt = now
		note := strings.TrimSpace(input.Note)
		if note == "" {
			note = "assigned to " + worker.Username
		}
		t.History = append(t.History, domain.HistoryEntry{
			Status:    domain.StatusAssigned,
			ActorID:   actor.SubjectID,
			Timestamp: now,
			Note:      note,
		})
		return nil
	})
	if err != nil {
		if added {
			s.compensateReservation(ctx, worker.WorkerID, ticketID)
		}
		return domain.Ticket{}, err
	}

	s.logger.InfoContext(ctx, "ticket assigned",
		"module", "application",
		"layer", "service",
		"operation", "assign",
		"outcome", "success",
		"ticket_id", updated.TicketID,
		"worker_id", worker.WorkerID,
		"request_id", actor.RequestID,
	)
	s.enqueueEvent(ctx, EventTicketAssigned, updated.TicketID, "data.ticket_id", ticketAssignedEventData{
		TicketID:       updated.TicketID,
		WorkerID:       worker.WorkerID,
		AssignedBy:     actor.SubjectID,
		Department:     string(updated.Department),
		EstimatedHours: updated.EstimatedHours,
		AssignedAt:     updated.UpdatedAt.Format(timeLayout),
	})
	return updated, nil
}

// SelectWorker returns the best ranked eligible worker for department.
func (s *Service) SelectWorker(ctx context.Context, department domain.Department) (domain.Worker, error) {
	ranked, err := s.rankedEligible(ctx, department)
	if err != nil {
		return domain.Worker{}, err
	}
	if len(ranked) == 0 {
		return domain.Worker{}, fmt.Errorf("%w: department %s", domain.ErrNoEligibleWorker, department)
	}
	return ranked[0], nil
}

// AvailableWorkers lists eligible workers of a department in selection order.
func (s *Service) AvailableWorkers(ctx context.Context, actor Actor, department string) ([]domain.Worker, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	dept, err := domain.ParseDepartment(department)
	if err != nil {
		return nil, err
	}
	return s.rankedEligible(ctx, dept)
}

func (s *Service) rankedEligible(ctx context.Context, department domain.Department) ([]domain.Worker, error) {
	candidates, err := s.workers.List(ctx, domain.WorkerFilter{
		Department: department,
		WorkStatus: domain.WorkStatusAvailable,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, err
	}
	eligible := candidates[:0]
	for _, w := range candidates {
		if w.EligibleWithCapacity(department, s.cfg.MaxActiveTickets) {
			eligible = append(eligible, w)
		}
	}
	rankWorkers(eligible)
	return eligible, nil
}

// rankWorkers orders by active count ascending, rating descending, then
// longest idle first. Workers never seen active count as idle longest.
func rankWorkers(workers []domain.Worker) {
	sort.SliceStable(workers, func(i, j int) bool {
		a, b := workers[i], workers[j]
		if a.ActiveCount() != b.ActiveCount() {
			return a.ActiveCount() < b.ActiveCount()
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		switch {
		case a.LastActiveAt == nil && b.LastActiveAt != nil:
			return true
		case a.LastActiveAt != nil && b.LastActiveAt == nil:
			return false
		case a.LastActiveAt != nil && !a.LastActiveAt.Equal(*b.LastActiveAt):
			return a.LastActiveAt.Before(*b.LastActiveAt)
		}
		return a.WorkerID < b.WorkerID
	})
}

func checkAssignable(t domain.Ticket) error {
	if t.Status.IsActive() {
		return fmt.Errorf("%w: ticket %s is %s", domain.ErrAlreadyAssigned, t.TicketID, t.Status)
	}
	return domain.ValidateTransition(t.Status, domain.StatusAssigned)
}

// reserveNamed validates an explicitly requested worker and takes one of its
// slots. added is false when the worker already held the ticket, in which
// case the slot belongs to whoever put it there.
func (s *Service) reserveNamed(ctx context.Context, workerID string, ticket domain.Ticket) (domain.Worker, bool, error) {
	unlock, err := s.lockWorker(ctx, workerID)
	if err != nil {
		return domain.Worker{}, false, err
	}
	defer unlock()

	return s.updateWorker(ctx, workerID, func(w *domain.Worker) error {
		if w.Department != ticket.Department {
			return fmt.Errorf("%w: worker %s is %s, ticket is %s", domain.ErrDepartmentMismatch, w.WorkerID, w.Department, ticket.Department)
		}
		if !w.IsActive || w.WorkStatus != domain.WorkStatusAvailable {
			return fmt.Errorf("%w: worker %s is not available", domain.ErrNoEligibleWorker, w.WorkerID)
		}
		if w.HasActiveTicket(ticket.TicketID) {
			return errUnchanged
		}
		if w.ActiveCount() >= s.cfg.MaxActiveTickets {
			return fmt.Errorf("%w: worker %s has %d active tickets", domain.ErrCapacityExceeded, w.WorkerID, w.ActiveCount())
		}
		w.AddActiveTicket(ticket.TicketID)
		w.UpdatedAt = s.now()
		return nil
	})
}

// reserveBest walks the ranking and takes the first worker whose slot can
// still be reserved once its lock is held.
func (s *Service) reserveBest(ctx context.Context, ticket domain.Ticket) (domain.Worker, bool, error) {
	ranked, err := s.rankedEligible(ctx, ticket.Department)
	if err != nil {
		return domain.Worker{}, false, err
	}
	for _, candidate := range ranked {
		worker, added, err := s.reserveNamed(ctx, candidate.WorkerID, ticket)
		if err == nil {
			return worker, added, nil
		}
		if errors.Is(err, domain.ErrCapacityExceeded) || errors.Is(err, domain.ErrNoEligibleWorker) || errors.Is(err, domain.ErrDepartmentMismatch) {
			continue
		}
		return domain.Worker{}, false, err
	}
	return domain.Worker{}, false, fmt.Errorf("%w: department %s", domain.ErrNoEligibleWorker, ticket.Department)
}

// reserveForOverride takes a slot without requiring the worker to be marked
// available. It reports whether the slot was newly taken.
func (s *Service) reserveForOverride(ctx context.Context, workerID string, ticket domain.Ticket) (bool, error) {
	unlock, err := s.lockWorker(ctx, workerID)
	if err != nil {
		return false, err
	}
	defer unlock()

	_, added, err := s.updateWorker(ctx, workerID, func(w *domain.Worker) error {
		if w.Department != ticket.Department {
			return fmt.Errorf("%w: worker %s is %s, ticket is %s", domain.ErrDepartmentMismatch, w.WorkerID, w.Department, ticket.Department)
		}
		if !w.IsActive {
			return fmt.Errorf("%w: worker %s is deactivated", domain.ErrNoEligibleWorker, w.WorkerID)
		}
		if w.HasActiveTicket(ticket.TicketID) {
			return errUnchanged
		}
		if w.ActiveCount() >= s.cfg.MaxActiveTickets {
			return fmt.Errorf("%w: worker %s has %d active tickets", domain.ErrCapacityExceeded, w.WorkerID, w.ActiveCount())
		}
		w.AddActiveTicket(ticket.TicketID)
		w.UpdatedAt = s.now()
		return nil
	})
	return added, err
}

// compensateReservation hands back a slot taken for a ticket write that did
// not land. It runs even if the caller's context is done. A ticket that
// another writer has meanwhile bound to the same worker keeps the slot.
func (s *Service) compensateReservation(ctx context.Context, workerID, ticketID string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.rollbackReservation(ctx, workerID, ticketID); err != nil {
		s.logger.ErrorContext(ctx, "failed to release reserved worker slot",
			"module", "application",
			"layer", "service",
			"operation", "compensate_reservation",
			"outcome", "failure",
			"worker_id", workerID,
			"ticket_id", ticketID,
			"error", err,
		)
	}
}

func (s *Service) rollbackReservation(ctx context.Context, workerID, ticketID string) error {
	unlock, err := s.lockWorker(ctx, workerID)
	if err != nil {
		return err
	}
	defer unlock()

	_, _, err = s.updateWorker(ctx, workerID, func(w *domain.Worker) error {
		ticket, err := s.tickets.Get(ctx, ticketID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err == nil && ticket.Status.IsActive() && ticket.AssignedWorkerID == workerID {
			return errUnchanged
		}
		if !w.RemoveActiveTicket(ticketID) {
			return errUnchanged
		}
		w.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return fmt.Errorf("release ticket %s from worker %s: %w", ticketID, workerID, err)
	}
	return nil
}
