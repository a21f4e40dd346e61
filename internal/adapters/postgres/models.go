package postgres

import (
	"time"

	"github.com/google/uuid"
)

type ticketModel struct {
	TicketID         string     `gorm:"column:ticket_id;primaryKey"`
	ReporterID       string     `gorm:"column:reporter_id"`
	Source           string     `gorm:"column:source"`
	RawText          string     `gorm:"column:raw_text"`
	RefinedText      string     `gorm:"column:refined_text"`
	Department       string     `gorm:"column:department"`
	Priority         string     `gorm:"column:priority"`
	Status           string     `gorm:"column:status"`
	Latitude         *float64   `gorm:"column:latitude"`
	Longitude        *float64   `gorm:"column:longitude"`
	Location         string     `gorm:"column:location"`
	ContactName      *string    `gorm:"column:contact_name"`
	ContactPhone     *string    `gorm:"column:contact_phone"`
	ContactEmail     *string    `gorm:"column:contact_email"`
	AssignedWorkerID string     `gorm:"column:assigned_worker_id"`
	AssignedBy       string     `gorm:"column:assigned_by"`
	AssignedAt       *time.Time `gorm:"column:assigned_at"`
	EstimatedHours   *float64   `gorm:"column:estimated_hours"`
	ActualHours      *float64   `gorm:"column:actual_hours"`
	ResolvedAt       *time.Time `gorm:"column:resolved_at"`
	WorkerNotes      string     `gorm:"column:worker_notes"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
	Version          int64      `gorm:"column:version"`
}

func (ticketModel) TableName() string { return "tickets" }

type ticketHistoryModel struct {
	HistoryID uuid.UUID `gorm:"column:history_id;type:uuid;primaryKey"`
	TicketID  string    `gorm:"column:ticket_id"`
	Seq       int       `gorm:"column:seq"`
	Status    string    `gorm:"column:status"`
	ActorID   string    `gorm:"column:actor_id"`
	Note      string    `gorm:"column:note"`
	Override  bool      `gorm:"column:override"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (ticketHistoryModel) TableName() string { return "ticket_history" }

type workerModel struct {
	WorkerID               string     `gorm:"column:worker_id;primaryKey"`
	Username               string     `gorm:"column:username"`
	FullName               string     `gorm:"column:full_name"`
	Email                  string     `gorm:"column:email"`
	Phone                  string     `gorm:"column:phone"`
	Department             string     `gorm:"column:department"`
	Specializations        string     `gorm:"column:specializations"`
	WorkStatus             string     `gorm:"column:work_status"`
	IsActive               bool       `gorm:"column:is_active"`
	Rating                 float64    `gorm:"column:rating"`
	LastActiveAt           *time.Time `gorm:"column:last_active_at"`
	ActiveTicketIDs        string     `gorm:"column:active_ticket_ids"`
	TotalCompleted         int        `gorm:"column:total_completed"`
	AverageCompletionHours float64    `gorm:"column:average_completion_hours"`
	CurrentWindowCompleted int        `gorm:"column:current_window_completed"`
	CreatedAt              time.Time  `gorm:"column:created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at"`
	Version                int64      `gorm:"column:version"`
}

func (workerModel) TableName() string { return "workers" }

type outboxModel struct {
	OutboxID         uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType        string     `gorm:"column:event_type"`
	PartitionKey     string     `gorm:"column:partition_key"`
	PartitionKeyPath string     `gorm:"column:partition_key_path"`
	Payload          string     `gorm:"column:payload"`
	SchemaVersion    string     `gorm:"column:schema_version"`
	RetryCount       int        `gorm:"column:retry_count"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
	LastError        *string    `gorm:"column:last_error"`
	LastErrorAt      *time.Time `gorm:"column:last_error_at"`
	FirstSeenAt      time.Time  `gorm:"column:first_seen_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
}

func (outboxModel) TableName() string { return "dispatch_outbox" }
