package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/google/uuid"
)

const defaultWorkerRating = 4.5

func (s *Service) CreateWorker(ctx context.Context, actor Actor, input CreateWorkerInput) (domain.Worker, error) {
	if err := requireOperator(actor); err != nil {
		return domain.Worker{}, err
	}
	username := strings.TrimSpace(input.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return domain.Worker{}, err
	}
	dept, err := domain.ParseDepartment(input.Department)
	if err != nil {
		return domain.Worker{}, err
	}
	rating := defaultWorkerRating
	if input.Rating != nil {
		if err := domain.ValidateRating(*input.Rating); err != nil {
			return domain.Worker{}, err
		}
		rating = *input.Rating
	}
	if err := domain.ValidateContact(&domain.ContactInfo{Email: input.Email, Phone: input.Phone}); err != nil {
		return domain.Worker{}, err
	}

	now := s.now()
	worker := domain.Worker{
		WorkerID:        uuid.NewString(),
		Username:        username,
		FullName:        strings.TrimSpace(input.FullName),
		Email:           strings.TrimSpace(input.Email),
		Phone:           strings.TrimSpace(input.Phone),
		Department:      dept,
		Specializations: cleanList(input.Specializations),
		WorkStatus:      domain.WorkStatusAvailable,
		IsActive:        true,
		Rating:          rating,
		ActiveTicketIDs: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	if err := s.workers.Create(ctx, worker); err != nil {
		return domain.Worker{}, err
	}
	s.logger.InfoContext(ctx, "worker created",
		"module", "application",
		"layer", "service",
		"operation", "create_worker",
		"outcome", "success",
		"worker_id", worker.WorkerID,
		"department", string(dept),
		"request_id", actor.RequestID,
	)
	return worker, nil
}

// UpdateWorker edits profile fields. Moving a worker to another department
// is refused while it still holds active tickets.
func (s *Service) UpdateWorker(ctx context.Context, actor Actor, input UpdateWorkerInput) (domain.Worker, error) {
	if err := requireOperator(actor); err != nil {
		return domain.Worker{}, err
	}
	workerID := strings.TrimSpace(input.WorkerID)
	var dept *domain.Department
	if input.Department != nil {
		d, err := domain.ParseDepartment(*input.Department)
		if err != nil {
			return domain.Worker{}, err
		}
		dept = &d
	}
	if input.Rating != nil {
		if err := domain.ValidateRating(*input.Rating); err != nil {
			return domain.Worker{}, err
		}
	}
	contact := domain.ContactInfo{}
	if input.Email != nil {
		contact.Email = strings.TrimSpace(*input.Email)
	}
	if input.Phone != nil {
		contact.Phone = strings.TrimSpace(*input.Phone)
	}
	if err := domain.ValidateContact(&contact); err != nil {
		return domain.Worker{}, err
	}

	unlock, err := s.lockWorker(ctx, workerID)
	if err != nil {
		return domain.Worker{}, err
	}
	defer unlock()

	worker, _, err := s.updateWorker(ctx, workerID, func(w *domain.Worker) error {
		if dept != nil && *dept != w.Department {
			if w.ActiveCount() > 0 {
				return fmt.Errorf("%w: worker %s still holds %d active tickets", domain.ErrConflict, w.WorkerID, w.ActiveCount())
			}
			w.Department = *dept
		}
		if input.FullName != nil {
			w.FullName = strings.TrimSpace(*input.FullName)
		}
		if input.Email != nil {
			w.Email = contact.Email
		}
		if input.Phone != nil {
			w.Phone = contact.Phone
		}
		if input.Specializations != nil {
			w.Specializations = cleanList(*input.Specializations)
		}
		if input.Rating != nil {
			w.Rating = *input.Rating
		}
		w.UpdatedAt = s.now()
		return nil
	})
	return worker, err
}

// UpdateWorkerStatus may be called by the worker itself or an operator. It
// also marks the worker as seen.
func (s *Service) UpdateWorkerStatus(ctx context.Context, actor Actor, workerID, status string) (domain.Worker, error) {
	if err := requireActor(actor); err != nil {
		return domain.Worker{}, err
	}
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		workerID = actor.SubjectID
	}
	if actor.SubjectID != workerID {
		if err := requireOperator(actor); err != nil {
			return domain.Worker{}, err
		}
	}
	ws, err := domain.ParseWorkStatus(status)
	if err != nil {
		return domain.Worker{}, err
	}

	unlock, err := s.lockWorker(ctx, workerID)
	if err != nil {
		return domain.Worker{}, err
	}
	defer unlock()

	worker, _, err := s.updateWorker(ctx, workerID, func(w *domain.Worker) error {
		if !w.IsActive {
			return fmt.Errorf("%w: worker %s is deactivated", domain.ErrInvalidInput, w.WorkerID)
		}
		now := s.now()
		w.WorkStatus = ws
		w.LastActiveAt = nowPtr(now)
		w.UpdatedAt = now
		return nil
	})
	return worker, err
}

// DeactivateWorker takes a worker out of rotation. It is refused while the
// worker still holds active tickets.
func (s *Service) DeactivateWorker(ctx context.Context, actor Actor, workerID string) (domain.Worker, error) {
	if err := requireOperator(actor); err != nil {
		return domain.Worker{}, err
	}
	workerID = strings.TrimSpace(workerID)

	unlock, err := s.lockWorker(ctx, workerID)
	if err != nil {
		return domain.Worker{}, err
	}
	defer unlock()

	worker, _, err := s.updateWorker(ctx, workerID, func(w *domain.Worker) error {
		if !w.IsActive {
			return errUnchanged
		}
		if w.ActiveCount() > 0 {
			return fmt.Errorf("%w: worker %s still holds %d active tickets", domain.ErrConflict, w.WorkerID, w.ActiveCount())
		}
		w.IsActive = false
		w.WorkStatus = domain.WorkStatusOffline
		w.UpdatedAt = s.now()
		return nil
	})
	return worker, err
}

func (s *Service) GetWorker(ctx context.Context, actor Actor, workerID string) (domain.Worker, error) {
	if err := requireActor(actor); err != nil {
		return domain.Worker{}, err
	}
	workerID = strings.TrimSpace(workerID)
	if actor.SubjectID != workerID {
		if err := requireOperator(actor); err != nil {
			return domain.Worker{}, err
		}
	}
	return s.workers.Get(ctx, workerID)
}

func (s *Service) ListWorkers(ctx context.Context, actor Actor, input ListWorkersInput) ([]domain.Worker, error) {
	if err := requireOperator(actor); err != nil {
		return nil, err
	}
	filter := domain.WorkerFilter{ActiveOnly: input.ActiveOnly}
	if raw := strings.TrimSpace(input.Department); raw != "" && !strings.EqualFold(raw, "all") {
		dept, err := domain.ParseDepartment(raw)
		if err != nil {
			return nil, err
		}
		filter.Department = dept
	}
	if raw := strings.TrimSpace(input.WorkStatus); raw != "" {
		ws, err := domain.ParseWorkStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.WorkStatus = ws
	}
	return s.workers.List(ctx, filter)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
