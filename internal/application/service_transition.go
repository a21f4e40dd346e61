package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bhavishyjain/SevaAI/internal/domain"
)

type statusChangedEventData struct {
	TicketID   string `json:"ticket_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ActorID    string `json:"actor_id,omitempty"`
	WorkerID   string `json:"worker_id,omitempty"`
	Override   bool   `json:"override,omitempty"`
	ChangedAt  string `json:"changed_at"`
}

// Transition applies one step of the status table. Entering assigned is
// only possible through Assign. Resolving an already resolved ticket
// returns ErrAlreadyResolved after making sure the worker side was settled.
func (s *Service) Transition(ctx context.Context, actor Actor, input TransitionInput) (domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return domain.Ticket{}, err
	}
	ticketID := strings.TrimSpace(input.TicketID)
	if ticketID == "" {
		return domain.Ticket{}, fmt.Errorf("%w: ticket id is required", domain.ErrInvalidInput)
	}
	target, err := domain.ParseTicketStatus(input.Status)
	if err != nil {
		return domain.Ticket{}, err
	}
	if target == domain.StatusAssigned {
		return domain.Ticket{}, fmt.Errorf("%w: tickets enter assigned through assignment", domain.ErrInvalidTransition)
	}
	if err := ctx.Err(); err != nil {
		return domain.Ticket{}, err
	}

	unlock, err := s.lockTicket(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	defer unlock()

	var from domain.TicketStatus
	updated, _, err := s.updateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		from = t.Status
		if target == domain.StatusResolved && (t.Status == domain.StatusResolved || t.Status == domain.StatusClosed) {
			return domain.ErrAlreadyResolved
		}
		if err := authorizeTransition(actor, *t); err != nil {
			return err
		}
		if err := domain.ValidateTransition(t.Status, target); err != nil {
			return err
		}
		now := s.now()
		t.Status = target
		t.UpdatedAt = now
		t.History = append(t.History, domain.HistoryEntry{
			Status:    target,
			ActorID:   actor.SubjectID,
			Timestamp: now,
			Note:      strings.TrimSpace(input.Note),
		})
		if notes := strings.TrimSpace(input.WorkerNotes); notes != "" {
			t.WorkerNotes = notes
		}
		if target == domain.StatusResolved {
			hours := domain.CompletionHours(t.AssignedAt, t.CreatedAt, now)
			t.ResolvedAt = nowPtr(now)
			t.ActualHours = &hours
		}
		return nil
	})
	if errors.Is(err, domain.ErrAlreadyResolved) {
		if settleErr := s.settleResolved(ctx, updated); settleErr != nil {
			return domain.Ticket{}, settleErr
		}
		return domain.Ticket{}, err
	}
	if err != nil {
		return domain.Ticket{}, err
	}

	switch {
	case target == domain.StatusResolved:
		if err := s.settleResolved(ctx, updated); err != nil {
			return domain.Ticket{}, err
		}
	case target == domain.StatusRejected && from.IsActive():
		if err := s.releaseWorker(ctx, updated.AssignedWorkerID, updated.TicketID); err != nil {
			return domain.Ticket{}, err
		}
	}

	s.enqueueEvent(ctx, EventTicketStatusChanged, updated.TicketID, "data.ticket_id", statusChangedEventData{
		TicketID:   updated.TicketID,
		FromStatus: string(from),
		ToStatus:   string(target),
		ActorID:    actor.SubjectID,
		WorkerID:   updated.AssignedWorkerID,
		ChangedAt:  updated.UpdatedAt.Format(timeLayout),
	})
	return updated, nil
}

// Override sets an arbitrary status outside the transition table. It is
// restricted to admins, requires a note and is flagged in history.
func (s *Service) Override(ctx context.Context, actor Actor, input OverrideInput) (domain.Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Ticket{}, err
	}
	ticketID := strings.TrimSpace(input.TicketID)
	if ticketID == "" {
		return domain.Ticket{}, fmt.Errorf("%w: ticket id is required", domain.ErrInvalidInput)
	}
	note := strings.TrimSpace(input.Note)
	if note == "" {
		return domain.Ticket{}, fmt.Errorf("%w: override requires a note", domain.ErrInvalidInput)
	}
	target, err := domain.ParseTicketStatus(input.Status)
	if err != nil {
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

	current, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if current.Status == target {
		return domain.Ticket{}, fmt.Errorf("%w: ticket is already %s", domain.ErrInvalidTransition, target)
	}

	prevWorker := ""
	if current.Status.IsActive() {
		prevWorker = current.AssignedWorkerID
	}
	nextWorker := ""
	if target.IsActive() {
		nextWorker = strings.TrimSpace(input.WorkerID)
		if nextWorker == "" {
			nextWorker = current.AssignedWorkerID
		}
		if nextWorker == "" {
			return domain.Ticket{}, fmt.Errorf("%w: override into %s requires a worker", domain.ErrInvalidInput, target)
		}
	}

	reserved := false
	if nextWorker != "" && nextWorker != prevWorker {
		if reserved, err = s.reserveForOverride(ctx, nextWorker, current); err != nil {
			return domain.Ticket{}, err
		}
	}

	from := current.Status
	updated, _, err := s.updateTicket(ctx, ticketID, func(t *domain.Ticket) error {
		if t.Status != from {
			return fmt.Errorf("%w: ticket %s changed during override", domain.ErrConflict, t.TicketID)
		}
		now := s.now()
		t.Status = target
		t.UpdatedAt = now
		t.History = append(t.History, domain.HistoryEntry{
			Status:    target,
			ActorID:   actor.SubjectID,
			Timestamp: now,
			Note:      note,
			Override:  true,
		})
		if target != domain.StatusResolved && target != domain.StatusClosed {
			t.ResolvedAt = nil
			t.ActualHours = nil
		}
		switch {
		case target == domain.StatusPending:
			t.AssignedWorkerID = ""
			t.AssignedBy = ""
			t.AssignedAt = nil
		case target.IsActive() && nextWorker != t.AssignedWorkerID:
			t.AssignedWorkerID = nextWorker
			t.AssignedBy = actor.SubjectID
			t.AssignedAt = nowPtr(now)
		case target == domain.StatusResolved && t.ResolvedAt == nil:
			hours := domain.CompletionHours(t.AssignedAt, t.CreatedAt, now)
			t.ResolvedAt = nowPtr(now)
			t.ActualHours = &hours
		}
		return nil
	})
	if err != nil {
		if reserved {
			s.compensateReservation(ctx, nextWorker, ticketID)
		}
		return domain.Ticket{}, err
	}

	if prevWorker != "" && prevWorker != nextWorker {
		if target == domain.StatusResolved {
			err = s.settleResolved(ctx, updated)
		} else {
			err = s.releaseWorker(ctx, prevWorker, updated.TicketID)
		}
		if err != nil {
			return domain.Ticket{}, err
		}
	}

	s.logger.WarnContext(ctx, "ticket status overridden",
		"module", "application",
		"layer", "service",
		"operation", "override",
		"outcome", "success",
		"ticket_id", updated.TicketID,
		"from_status", string(from),
		"to_status", string(target),
		"actor_id", actor.SubjectID,
		"request_id", actor.RequestID,
	)
	s.enqueueEvent(ctx, EventTicketStatusChanged, updated.TicketID, "data.ticket_id", statusChangedEventData{
		TicketID:   updated.TicketID,
		FromStatus: string(from),
		ToStatus:   string(target),
		ActorID:    actor.SubjectID,
		WorkerID:   updated.AssignedWorkerID,
		Override:   true,
		ChangedAt:  updated.UpdatedAt.Format(timeLayout),
	})
	return updated, nil
}

// authorizeTransition lets operators move any ticket and workers move only
// the tickets bound to them.
func authorizeTransition(actor Actor, t domain.Ticket) error {
	switch actor.Role {
	case RoleAdmin, RoleHead, RoleSystem:
		return nil
	case RoleWorker:
		if t.AssignedWorkerID != "" && t.AssignedWorkerID == actor.SubjectID {
			return nil
		}
	}
	return domain.ErrForbidden
}
