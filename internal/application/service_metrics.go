package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bhavishyjain/SevaAI/internal/domain"
)

type workerMetricsEventData struct {
	WorkerID               string  `json:"worker_id"`
	TicketID               string  `json:"ticket_id"`
	CompletionHours        float64 `json:"completion_hours"`
	TotalCompleted         int     `json:"total_completed"`
	AverageCompletionHours float64 `json:"average_completion_hours"`
	CurrentWindowCompleted int     `json:"current_window_completed"`
}

// settleResolved folds a resolved ticket into its worker's metrics and
// frees the slot. Membership in the active set guards the update, so a
// second call for the same ticket changes nothing.
func (s *Service) settleResolved(ctx context.Context, ticket domain.Ticket) error {
	if ticket.AssignedWorkerID == "" {
		return nil
	}
	var hours float64
	if ticket.ActualHours != nil {
		hours = *ticket.ActualHours
	} else {
		hours = domain.CompletionHours(ticket.AssignedAt, ticket.CreatedAt, s.now())
	}
	ctx = context.WithoutCancel(ctx)

	unlock, err := s.lockWorker(ctx, ticket.AssignedWorkerID)
	if err != nil {
		return err
	}
	defer unlock()

	worker, changed, err := s.updateWorker(ctx, ticket.AssignedWorkerID, func(w *domain.Worker) error {
		if !w.RemoveActiveTicket(ticket.TicketID) {
			return errUnchanged
		}
		now := s.now()
		w.Metrics = w.Metrics.RecordCompletion(hours)
		w.LastActiveAt = nowPtr(now)
		w.UpdatedAt = now
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("ticket %s resolved but worker %s is missing: %w", ticket.TicketID, ticket.AssignedWorkerID, err)
	}
	if err != nil {
		return fmt.Errorf("ticket %s resolved but worker metrics update failed: %w", ticket.TicketID, err)
	}
	if changed {
		s.enqueueEvent(ctx, EventWorkerMetricsUpdated, worker.WorkerID, "data.worker_id", workerMetricsEventData{
			WorkerID:               worker.WorkerID,
			TicketID:               ticket.TicketID,
			CompletionHours:        hours,
			TotalCompleted:         worker.Metrics.TotalCompleted,
			AverageCompletionHours: worker.Metrics.AverageCompletionHours,
			CurrentWindowCompleted: worker.Metrics.CurrentWindowCompleted,
		})
	}
	return nil
}

// releaseWorker drops ticketID from the worker's active set without
// touching metrics. Releasing a ticket that is not held is a no-op.
func (s *Service) releaseWorker(ctx context.Context, workerID, ticketID string) error {
	if workerID == "" {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	unlock, err := s.lockWorker(ctx, workerID)
	if err != nil {
		return err
	}
	defer unlock()

	_, _, err = s.updateWorker(ctx, workerID, func(w *domain.Worker) error {
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

// ResetWindowCounters zeroes currentWindowCompleted for every worker. It
// keeps going past individual failures and reports them together.
func (s *Service) ResetWindowCounters(ctx context.Context) (int, error) {
	workers, err := s.workers.List(ctx, domain.WorkerFilter{})
	if err != nil {
		return 0, err
	}
	reset := 0
	var errs []error
	for _, w := range workers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		changed, err := s.resetWorkerWindow(ctx, w.WorkerID)
		if err != nil {
			errs = append(errs, fmt.Errorf("worker %s: %w", w.WorkerID, err))
			continue
		}
		if changed {
			reset++
		}
	}
	return reset, errors.Join(errs...)
}

func (s *Service) resetWorkerWindow(ctx context.Context, workerID string) (bool, error) {
	unlock, err := s.lockWorker(ctx, workerID)
	if err != nil {
		return false, err
	}
	defer unlock()

	_, changed, err := s.updateWorker(ctx, workerID, func(w *domain.Worker) error {
		if w.Metrics.CurrentWindowCompleted == 0 {
			return errUnchanged
		}
		w.Metrics.CurrentWindowCompleted = 0
		w.UpdatedAt = s.now()
		return nil
	})
	return changed, err
}
