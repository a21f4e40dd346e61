package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxActiveTickets bounds how many assigned/in-progress tickets a worker
// may own at once.
const MaxActiveTickets = 5

type WorkStatus string

const (
	WorkStatusAvailable WorkStatus = "available"
	WorkStatusBusy      WorkStatus = "busy"
	WorkStatusOnBreak   WorkStatus = "on-break"
	WorkStatusOffline   WorkStatus = "offline"
)

func ParseWorkStatus(raw string) (WorkStatus, error) {
	switch v := WorkStatus(strings.ToLower(strings.TrimSpace(raw))); v {
	case WorkStatusAvailable, WorkStatusBusy, WorkStatusOnBreak, WorkStatusOffline:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown work status %q", ErrInvalidInput, raw)
	}
}

type WorkerMetrics struct {
	TotalCompleted         int     `json:"total_completed"`
	AverageCompletionHours float64 `json:"average_completion_hours"`
	CurrentWindowCompleted int     `json:"current_window_completed"`
}

type Worker struct {
	WorkerID        string        `json:"worker_id"`
	Username        string        `json:"username"`
	FullName        string        `json:"full_name,omitempty"`
	Email           string        `json:"email,omitempty"`
	Phone           string        `json:"phone,omitempty"`
	Department      Department    `json:"department"`
	Specializations []string      `json:"specializations,omitempty"`
	WorkStatus      WorkStatus    `json:"work_status"`
	IsActive        bool          `json:"is_active"`
	Rating          float64       `json:"rating"`
	LastActiveAt    *time.Time    `json:"last_active_at,omitempty"`
	ActiveTicketIDs []string      `json:"active_ticket_ids"`
	Metrics         WorkerMetrics `json:"metrics"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Version         int64         `json:"version"`
}

func (w Worker) Clone() Worker {
	out := w
	out.ActiveTicketIDs = append([]string(nil), w.ActiveTicketIDs...)
	out.Specializations = append([]string(nil), w.Specializations...)
	out.LastActiveAt = cloneTime(w.LastActiveAt)
	return out
}

func (w Worker) ActiveCount() int {
	return len(w.ActiveTicketIDs)
}

func (w Worker) HasActiveTicket(ticketID string) bool {
	for _, id := range w.ActiveTicketIDs {
		if id == ticketID {
			return true
		}
	}
	return false
}

// AddActiveTicket appends ticketID to the active set. It reports false when
// the id is already present.
func (w *Worker) AddActiveTicket(ticketID string) bool {
	if w.HasActiveTicket(ticketID) {
		return false
	}
	w.ActiveTicketIDs = append(w.ActiveTicketIDs, ticketID)
	return true
}

// RemoveActiveTicket reports whether ticketID was present.
func (w *Worker) RemoveActiveTicket(ticketID string) bool {
	for i, id := range w.ActiveTicketIDs {
		if id == ticketID {
			w.ActiveTicketIDs = append(w.ActiveTicketIDs[:i:i], w.ActiveTicketIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Eligible is the assignment predicate for a ticket of the given department.
func (w Worker) Eligible(department Department) bool {
	return w.EligibleWithCapacity(department, MaxActiveTickets)
}

func (w Worker) EligibleWithCapacity(department Department, capacity int) bool {
	return w.Department == department &&
		w.WorkStatus == WorkStatusAvailable &&
		w.IsActive &&
		w.ActiveCount() < capacity
}

// RecentlyActive reports whether the worker counts as active for analytics
// at the given instant.
func (w Worker) RecentlyActive(now time.Time) bool {
	if w.WorkStatus == WorkStatusOffline || !w.IsActive {
		return false
	}
	return w.LastActiveAt == nil || !w.LastActiveAt.Before(now.Add(-7*24*time.Hour))
}

type WorkerFilter struct {
	Department Department
	WorkStatus WorkStatus
	ActiveOnly bool
}
