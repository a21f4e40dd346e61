package application

import (
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
)

type Config struct {
	ServiceName       string
	TicketIDPrefix    string
	MaxActiveTickets  int
	IDRetryAttempts   int
	CASRetryAttempts  int
	AnalyticsCacheTTL time.Duration
	EscalationLease   time.Duration
	Location          *time.Location
}

const (
	RoleAdmin   = "admin"
	RoleHead    = "head"
	RoleWorker  = "worker"
	RoleCitizen = "citizen"
	RoleSystem  = "system"
)

type Actor struct {
	SubjectID string
	Role      string
	RequestID string
}

// SystemActor is used by background sweeps and the event consumer.
var SystemActor = Actor{SubjectID: "system", Role: RoleSystem}

type CreateTicketInput struct {
	RawText     string              `json:"raw_text"`
	RefinedText string              `json:"refined_text,omitempty"`
	Department  string              `json:"department"`
	Priority    string              `json:"priority,omitempty"`
	Location    string              `json:"location,omitempty"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
}

type SubmitTicketInput struct {
	CreateTicketInput
	Contact *domain.ContactInfo `json:"contact_info,omitempty"`
}

type ClassifiedComplaintInput struct {
	ReporterID     string                `json:"reporter_id,omitempty"`
	RawText        string                `json:"raw_text"`
	Coordinates    *domain.Coordinates   `json:"coordinates,omitempty"`
	Classification domain.Classification `json:"classification"`
}

type TransitionInput struct {
	TicketID    string `json:"-"`
	Status      string `json:"status"`
	Note        string `json:"note,omitempty"`
	WorkerNotes string `json:"worker_notes,omitempty"`
}

type OverrideInput struct {
	TicketID string `json:"-"`
	Status   string `json:"status"`
	WorkerID string `json:"worker_id,omitempty"`
	Note     string `json:"note"`
}

type AssignInput struct {
	TicketID       string   `json:"-"`
	WorkerID       string   `json:"worker_id,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	Note           string   `json:"note,omitempty"`
}

type ListTicketsInput struct {
	Department string
	Status     string
	WorkerID   string
	Location   string
	Limit      int
}

type CreateWorkerInput struct {
	Username        string   `json:"username"`
	FullName        string   `json:"full_name,omitempty"`
	Email           string   `json:"email,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	Department      string   `json:"department"`
	Specializations []string `json:"specializations,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
}

type UpdateWorkerInput struct {
	WorkerID        string    `json:"-"`
	FullName        *string   `json:"full_name,omitempty"`
	Email           *string   `json:"email,omitempty"`
	Phone           *string   `json:"phone,omitempty"`
	Department      *string   `json:"department,omitempty"`
	Specializations *[]string `json:"specializations,omitempty"`
	Rating          *float64  `json:"rating,omitempty"`
}

type ListWorkersInput struct {
	Department string
	WorkStatus string
	ActiveOnly bool
}

type StatsInput struct {
	Timeframe  string
	Department string
}

type PctChanges struct {
	TotalComplaints    float64 `json:"total_complaints"`
	ResolvedComplaints float64 `json:"resolved_complaints"`
	PendingComplaints  float64 `json:"pending_complaints"`
	ActiveWorkers      float64 `json:"active_workers"`
}

type Stats struct {
	Timeframe            domain.Timeframe `json:"timeframe"`
	Department           string           `json:"department"`
	TotalComplaints      int              `json:"total_complaints"`
	PendingComplaints    int              `json:"pending_complaints"`
	InProgressComplaints int              `json:"in_progress_complaints"`
	ResolvedComplaints   int              `json:"resolved_complaints"`
	TotalWorkers         int              `json:"total_workers"`
	ActiveWorkers        int              `json:"active_workers"`
	AvgResolutionHours   float64          `json:"avg_resolution_hours"`
	ByStatus             map[string]int   `json:"by_status"`
	ByDepartment         map[string]int   `json:"by_department"`
	ByPriority           map[string]int   `json:"by_priority"`
	PctChange            PctChanges       `json:"pct_change"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

type WorkerStat struct {
	WorkerID         string            `json:"worker_id"`
	Name             string            `json:"name"`
	Username         string            `json:"username"`
	Department       domain.Department `json:"department"`
	WorkStatus       domain.WorkStatus `json:"work_status"`
	ActiveCases      int               `json:"active_cases"`
	CompletedCases   int               `json:"completed_cases"`
	CompletedToday   int               `json:"completed_today"`
	Rating           float64           `json:"rating"`
	PerformanceScore int               `json:"performance_score"`
	IsAvailable      bool              `json:"is_available"`
	LastActiveAt     *time.Time        `json:"last_active_at,omitempty"`
}

type WorkerDashboard struct {
	Worker         domain.Worker   `json:"worker"`
	ActiveTickets  []domain.Ticket `json:"active_tickets"`
	CompletedToday []domain.Ticket `json:"completed_today"`
	TotalCompleted int             `json:"total_completed"`
	TotalAssigned  int             `json:"total_assigned"`
	WeekCompleted  int             `json:"week_completed"`
	ActiveCount    int             `json:"active_count"`
	CompletedCount int             `json:"completed_today_count"`
}

type EscalationResult struct {
	Date           string   `json:"date"`
	EventsMatched  int      `json:"events_matched"`
	TicketsUpdated []string `json:"tickets_updated"`
	EventsSkipped  int      `json:"events_skipped"`
}
