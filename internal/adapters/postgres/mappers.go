package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/google/uuid"
)

func toTicketModel(t domain.Ticket) ticketModel {
	m := ticketModel{
		TicketID:         t.TicketID,
		ReporterID:       t.ReporterID,
		Source:           string(t.Source),
		RawText:          t.RawText,
		RefinedText:      t.RefinedText,
		Department:       string(t.Department),
		Priority:         string(t.Priority),
		Status:           string(t.Status),
		Location:         t.Location,
		AssignedWorkerID: t.AssignedWorkerID,
		AssignedBy:       t.AssignedBy,
		AssignedAt:       t.AssignedAt,
		EstimatedHours:   t.EstimatedHours,
		ActualHours:      t.ActualHours,
		ResolvedAt:       t.ResolvedAt,
		WorkerNotes:      t.WorkerNotes,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		Version:          t.Version,
	}
	if t.Coordinates != nil {
		lat, lng := t.Coordinates.Lat, t.Coordinates.Lng
		m.Latitude, m.Longitude = &lat, &lng
	}
	if t.Contact != nil {
		m.ContactName = stringPtr(t.Contact.Name)
		m.ContactPhone = stringPtr(t.Contact.Phone)
		m.ContactEmail = stringPtr(t.Contact.Email)
	}
	return m
}

func toDomainTicket(m ticketModel, history []ticketHistoryModel) domain.Ticket {
	t := domain.Ticket{
		TicketID:         m.TicketID,
		ReporterID:       m.ReporterID,
		Source:           domain.TicketSource(m.Source),
		RawText:          m.RawText,
		RefinedText:      m.RefinedText,
		Department:       domain.Department(m.Department),
		Priority:         domain.Priority(m.Priority),
		Status:           domain.TicketStatus(m.Status),
		Location:         m.Location,
		AssignedWorkerID: m.AssignedWorkerID,
		AssignedBy:       m.AssignedBy,
		AssignedAt:       utcPtr(m.AssignedAt),
		EstimatedHours:   m.EstimatedHours,
		ActualHours:      m.ActualHours,
		ResolvedAt:       utcPtr(m.ResolvedAt),
		WorkerNotes:      m.WorkerNotes,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
		Version:          m.Version,
		History:          make([]domain.HistoryEntry, 0, len(history)),
	}
	if m.Latitude != nil && m.Longitude != nil {
		t.Coordinates = &domain.Coordinates{Lat: *m.Latitude, Lng: *m.Longitude}
	}
	if m.ContactName != nil || m.ContactPhone != nil || m.ContactEmail != nil {
		t.Contact = &domain.ContactInfo{
			Name:  deref(m.ContactName),
			Phone: deref(m.ContactPhone),
			Email: deref(m.ContactEmail),
		}
	}
	for _, h := range history {
		t.History = append(t.History, domain.HistoryEntry{
			Status:    domain.TicketStatus(h.Status),
			ActorID:   h.ActorID,
			Timestamp: h.CreatedAt.UTC(),
			Note:      h.Note,
			Override:  h.Override,
		})
	}
	return t
}

func toHistoryModels(ticketID string, entries []domain.HistoryEntry, offset int) []ticketHistoryModel {
	out := make([]ticketHistoryModel, 0, len(entries))
	for i, e := range entries {
		out = append(out, ticketHistoryModel{
			HistoryID: uuid.New(),
			TicketID:  ticketID,
			Seq:       offset + i,
			Status:    string(e.Status),
			ActorID:   e.ActorID,
			Note:      e.Note,
			Override:  e.Override,
			CreatedAt: e.Timestamp,
		})
	}
	return out
}

func toWorkerModel(w domain.Worker) (workerModel, error) {
	specs, err := encodeStrings(w.Specializations)
	if err != nil {
		return workerModel{}, err
	}
	active, err := encodeStrings(w.ActiveTicketIDs)
	if err != nil {
		return workerModel{}, err
	}
	return workerModel{
		WorkerID:               w.WorkerID,
		Username:               w.Username,
		FullName:               w.FullName,
		Email:                  w.Email,
		Phone:                  w.Phone,
		Department:             string(w.Department),
		Specializations:        specs,
		WorkStatus:             string(w.WorkStatus),
		IsActive:               w.IsActive,
		Rating:                 w.Rating,
		LastActiveAt:           w.LastActiveAt,
		ActiveTicketIDs:        active,
		TotalCompleted:         w.Metrics.TotalCompleted,
		AverageCompletionHours: w.Metrics.AverageCompletionHours,
		CurrentWindowCompleted: w.Metrics.CurrentWindowCompleted,
		CreatedAt:              w.CreatedAt,
		UpdatedAt:              w.UpdatedAt,
		Version:                w.Version,
	}, nil
}

func toDomainWorker(m workerModel) (domain.Worker, error) {
	specs, err := decodeStrings(m.Specializations)
	if err != nil {
		return domain.Worker{}, fmt.Errorf("decode specializations for %s: %w", m.WorkerID, err)
	}
	active, err := decodeStrings(m.ActiveTicketIDs)
	if err != nil {
		return domain.Worker{}, fmt.Errorf("decode active tickets for %s: %w", m.WorkerID, err)
	}
	return domain.Worker{
		WorkerID:        m.WorkerID,
		Username:        m.Username,
		FullName:        m.FullName,
		Email:           m.Email,
		Phone:           m.Phone,
		Department:      domain.Department(m.Department),
		Specializations: specs,
		WorkStatus:      domain.WorkStatus(m.WorkStatus),
		IsActive:        m.IsActive,
		Rating:          m.Rating,
		LastActiveAt:    utcPtr(m.LastActiveAt),
		ActiveTicketIDs: active,
		Metrics: domain.WorkerMetrics{
			TotalCompleted:         m.TotalCompleted,
			AverageCompletionHours: m.AverageCompletionHours,
			CurrentWindowCompleted: m.CurrentWindowCompleted,
		},
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
		Version:   m.Version,
	}, nil
}

func encodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeStrings(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func stringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func utcPtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	u := v.UTC()
	return &u
}
