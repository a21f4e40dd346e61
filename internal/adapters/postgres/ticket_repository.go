package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"gorm.io/gorm"
)

type TicketRepository struct {
	db *gorm.DB
}

func (r *TicketRepository) Create(ctx context.Context, ticket domain.Ticket) error {
	model := toTicketModel(ticket)
	model.Version = 1
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if len(ticket.History) == 0 {
			return nil
		}
		history := toHistoryModels(ticket.TicketID, ticket.History, 0)
		return tx.Create(&history).Error
	})
	return mapError(err)
}

func (r *TicketRepository) Get(ctx context.Context, ticketID string) (domain.Ticket, error) {
	return r.get(r.db.WithContext(ctx), ticketID)
}

func (r *TicketRepository) get(db *gorm.DB, ticketID string) (domain.Ticket, error) {
	var model ticketModel
	if err := db.Where("ticket_id = ?", ticketID).Take(&model).Error; err != nil {
		return domain.Ticket{}, mapError(err)
	}
	var history []ticketHistoryModel
	if err := db.Where("ticket_id = ?", ticketID).Order("seq ASC").Find(&history).Error; err != nil {
		return domain.Ticket{}, mapError(err)
	}
	return toDomainTicket(model, history), nil
}

// Update writes the ticket when the stored version equals expectedVersion.
// History is append-only: entries beyond those already stored are inserted
// and earlier ones are never rewritten.
func (r *TicketRepository) Update(ctx context.Context, ticket domain.Ticket, expectedVersion int64) (domain.Ticket, error) {
	model := toTicketModel(ticket)
	var out domain.Ticket
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ticketModel{}).
			Where("ticket_id = ? AND version = ?", ticket.TicketID, expectedVersion).
			Updates(ticketColumns(model, expectedVersion+1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&ticketModel{}).Where("ticket_id = ?", ticket.TicketID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrVersionConflict
		}
		var stored int64
		if err := tx.Model(&ticketHistoryModel{}).Where("ticket_id = ?", ticket.TicketID).Count(&stored).Error; err != nil {
			return err
		}
		if int(stored) > len(ticket.History) {
			return fmt.Errorf("%w: history for %s would shrink", domain.ErrConflict, ticket.TicketID)
		}
		if appended := ticket.History[stored:]; len(appended) > 0 {
			rows := toHistoryModels(ticket.TicketID, appended, int(stored))
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		updated, err := r.get(tx, ticket.TicketID)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Ticket{}, mapError(err)
	}
	return out, nil
}

func (r *TicketRepository) List(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	query := r.db.WithContext(ctx).Model(&ticketModel{})
	if filter.Department != "" {
		query = query.Where("department = ?", string(filter.Department))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.WorkerID != "" {
		query = query.Where("assigned_worker_id = ?", filter.WorkerID)
	}
	if filter.ReporterID != "" {
		query = query.Where("reporter_id = ?", filter.ReporterID)
	}
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", *filter.CreatedTo)
	}
	if filter.UpdatedFrom != nil {
		query = query.Where("updated_at >= ?", *filter.UpdatedFrom)
	}
	if filter.NewestFirst {
		query = query.Order("created_at DESC").Order("ticket_id DESC")
	} else {
		query = query.Order("created_at ASC").Order("ticket_id ASC")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []ticketModel
	if err := query.Find(&models).Error; err != nil {
		return nil, mapError(err)
	}
	if len(models) == 0 {
		return []domain.Ticket{}, nil
	}
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.TicketID)
	}
	var history []ticketHistoryModel
	if err := r.db.WithContext(ctx).
		Where("ticket_id IN ?", ids).
		Order("ticket_id ASC").Order("seq ASC").
		Find(&history).Error; err != nil {
		return nil, mapError(err)
	}
	byTicket := make(map[string][]ticketHistoryModel, len(models))
	for _, h := range history {
		byTicket[h.TicketID] = append(byTicket[h.TicketID], h)
	}
	out := make([]domain.Ticket, 0, len(models))
	for _, m := range models {
		out = append(out, toDomainTicket(m, byTicket[m.TicketID]))
	}
	return out, nil
}

// UpdatePriorityByLocation sets priority on every ticket whose location
// matches exactly and returns the ids that actually changed.
func (r *TicketRepository) UpdatePriorityByLocation(ctx context.Context, location string, priority domain.Priority, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Raw(
		`UPDATE tickets
		    SET priority = ?, updated_at = ?, version = version + 1
		  WHERE location = ? AND priority <> ?
		RETURNING ticket_id`,
		string(priority), now, location, string(priority),
	).Scan(&ids).Error
	if err != nil {
		return nil, mapError(err)
	}
	sort.Strings(ids)
	return ids, nil
}

func ticketColumns(m ticketModel, version int64) map[string]any {
	return map[string]any{
		"reporter_id":        m.ReporterID,
		"refined_text":       m.RefinedText,
		"department":         m.Department,
		"priority":           m.Priority,
		"status":             m.Status,
		"latitude":           m.Latitude,
		"longitude":          m.Longitude,
		"location":           m.Location,
		"contact_name":       m.ContactName,
		"contact_phone":      m.ContactPhone,
		"contact_email":      m.ContactEmail,
		"assigned_worker_id": m.AssignedWorkerID,
		"assigned_by":        m.AssignedBy,
		"assigned_at":        m.AssignedAt,
		"estimated_hours":    m.EstimatedHours,
		"actual_hours":       m.ActualHours,
		"resolved_at":        m.ResolvedAt,
		"worker_notes":       m.WorkerNotes,
		"updated_at":         m.UpdatedAt,
		"version":            version,
	}
}
