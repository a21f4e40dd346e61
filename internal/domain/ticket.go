package domain

import (
	"fmt"
	"strings"
	"time"
)

type Department string

const (
	DepartmentRoad        Department = "road"
	DepartmentWater       Department = "water"
	DepartmentElectricity Department = "electricity"
	DepartmentWaste       Department = "waste"
	DepartmentDrainage    Department = "drainage"
	DepartmentOther       Department = "other"
)

var departments = []Department{
	DepartmentRoad, DepartmentWater, DepartmentElectricity,
	DepartmentWaste, DepartmentDrainage, DepartmentOther,
}

func Departments() []Department {
	out := make([]Department, len(departments))
	copy(out, departments)
	return out
}

func ParseDepartment(raw string) (Department, error) {
	v := Department(strings.ToLower(strings.TrimSpace(raw)))
	for _, d := range departments {
		if d == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown department %q", ErrInvalidInput, raw)
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority accepts any casing; an empty value defaults to Medium.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return PriorityLow, nil
	case "medium", "":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, raw)
	}
}

type TicketStatus string

const (
	StatusPending    TicketStatus = "pending"
	StatusAssigned   TicketStatus = "assigned"
	StatusInProgress TicketStatus = "in-progress"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
	StatusRejected   TicketStatus = "rejected"
)

var statuses = []TicketStatus{
	StatusPending, StatusAssigned, StatusInProgress,
	StatusResolved, StatusClosed, StatusRejected,
}

func Statuses() []TicketStatus {
	out := make([]TicketStatus, len(statuses))
	copy(out, statuses)
	return out
}

func ParseTicketStatus(raw string) (TicketStatus, error) {
	v := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range statuses {
		if s == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unknown ticket status %q", ErrInvalidInput, raw)
}

// IsActive reports whether a ticket in this status counts against a
// worker's capacity.
func (s TicketStatus) IsActive() bool {
	return s == StatusAssigned || s == StatusInProgress
}

func (s TicketStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusClosed || s == StatusRejected
}

type TicketSource string

const (
	SourceClassifier TicketSource = "classifier"
	SourceForm       TicketSource = "form"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type ContactInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type HistoryEntry struct {
	Status    TicketStatus `json:"status"`
	ActorID   string       `json:"actor_id,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Note      string       `json:"note,omitempty"`
	Override  bool         `json:"override,omitempty"`
}

type Ticket struct {
	TicketID         string         `json:"ticket_id"`
	ReporterID       string         `json:"reporter_id,omitempty"`
	Source           TicketSource   `json:"source"`
	RawText          string         `json:"raw_text"`
	RefinedText      string         `json:"refined_text,omitempty"`
	Department       Department     `json:"department"`
	Priority         Priority       `json:"priority"`
	Status           TicketStatus   `json:"status"`
	Coordinates      *Coordinates   `json:"coordinates,omitempty"`
	Location         string         `json:"location,omitempty"`
	Contact          *ContactInfo   `json:"contact_info,omitempty"`
	AssignedWorkerID string         `json:"assigned_worker_id,omitempty"`
	AssignedBy       string         `json:"assigned_by,omitempty"`
	AssignedAt       *time.Time     `json:"assigned_at,omitempty"`
	EstimatedHours   *float64       `json:"estimated_hours,omitempty"`
	ActualHours      *float64       `json:"actual_hours,omitempty"`
	ResolvedAt       *time.Time     `json:"resolved_at,omitempty"`
	WorkerNotes      string         `json:"worker_notes,omitempty"`
	History          []HistoryEntry `json:"history"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Version          int64          `json:"version"`
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored record.
func (t Ticket) Clone() Ticket {
	out := t
	out.History = append([]HistoryEntry(nil), t.History...)
	if t.Coordinates != nil {
		c := *t.Coordinates
		out.Coordinates = &c
	}
	if t.Contact != nil {
		c := *t.Contact
		out.Contact = &c
	}
	out.AssignedAt = cloneTime(t.AssignedAt)
	out.ResolvedAt = cloneTime(t.ResolvedAt)
	out.EstimatedHours = cloneFloat(t.EstimatedHours)
	out.ActualHours = cloneFloat(t.ActualHours)
	return out
}

// LastHistoryStatus returns the status recorded by the newest history entry.
func (t Ticket) LastHistoryStatus() (TicketStatus, bool) {
	if len(t.History) == 0 {
		return "", false
	}
	return t.History[len(t.History)-1].Status, true
}

// TicketFilter selects tickets for listing. Zero values match everything;
// CreatedTo is exclusive and Limit <= 0 means no limit.
type TicketFilter struct {
	Department  Department
	Statuses    []TicketStatus
	WorkerID    string
	ReporterID  string
	Location    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	NewestFirst bool
	Limit       int
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
