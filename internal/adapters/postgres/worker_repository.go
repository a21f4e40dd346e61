package postgres

import (
	"context"
	"strings"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"gorm.io/gorm"
)

type WorkerRepository struct {
	db *gorm.DB
}

func (r *WorkerRepository) Create(ctx context.Context, worker domain.Worker) error {
	model, err := toWorkerModel(worker)
	if err != nil {
		return err
	}
	model.Version = 1
	return mapError(r.db.WithContext(ctx).Create(&model).Error)
}

func (r *WorkerRepository) Get(ctx context.Context, workerID string) (domain.Worker, error) {
	var model workerModel
	if err := r.db.WithContext(ctx).Where("worker_id = ?", workerID).Take(&model).Error; err != nil {
		return domain.Worker{}, mapError(err)
	}
	return toDomainWorker(model)
}

func (r *WorkerRepository) GetByUsername(ctx context.Context, username string) (domain.Worker, error) {
	var model workerModel
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		Take(&model).Error
	if err != nil {
		return domain.Worker{}, mapError(err)
	}
	return toDomainWorker(model)
}

func (r *WorkerRepository) Update(ctx context.Context, worker domain.Worker, expectedVersion int64) (domain.Worker, error) {
	model, err := toWorkerModel(worker)
	if err != nil {
		return domain.Worker{}, err
	}
	result := r.db.WithContext(ctx).Model(&workerModel{}).
		Where("worker_id = ? AND version = ?", worker.WorkerID, expectedVersion).
		Updates(map[string]any{
			"username":                 model.Username,
			"full_name":                model.FullName,
			"email":                    model.Email,
			"phone":                    model.Phone,
			"department":               model.Department,
			"specializations":          model.Specializations,
			"work_status":              model.WorkStatus,
			"is_active":                model.IsActive,
			"rating":                   model.Rating,
			"last_active_at":           model.LastActiveAt,
			"active_ticket_ids":        model.ActiveTicketIDs,
			"total_completed":          model.TotalCompleted,
			"average_completion_hours": model.AverageCompletionHours,
			"current_window_completed": model.CurrentWindowCompleted,
			"updated_at":               model.UpdatedAt,
			"version":                  expectedVersion + 1,
		})
	if result.Error != nil {
		return domain.Worker{}, mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.Get(ctx, worker.WorkerID); err != nil {
			return domain.Worker{}, err
		}
		return domain.Worker{}, domain.ErrVersionConflict
	}
	out := worker.Clone()
	out.Version = expectedVersion + 1
	return out, nil
}

func (r *WorkerRepository) List(ctx context.Context, filter domain.WorkerFilter) ([]domain.Worker, error) {
	query := r.db.WithContext(ctx).Model(&workerModel{})
	if filter.Department != "" {
		query = query.Where("department = ?", string(filter.Department))
	}
	if filter.WorkStatus != "" {
		query = query.Where("work_status = ?", string(filter.WorkStatus))
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	var models []workerModel
	if err := query.Order("worker_id ASC").Find(&models).Error; err != nil {
		return nil, mapError(err)
	}
	out := make([]domain.Worker, 0, len(models))
	for _, m := range models {
		w, err := toDomainWorker(m)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}
