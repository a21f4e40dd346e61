package application

import (
	"log/slog"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/bhavishyjain/SevaAI/internal/lock"
	"github.com/bhavishyjain/SevaAI/internal/ports"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	cfg         Config
	logger      *slog.Logger
	tickets     ports.TicketRepository
	workers     ports.WorkerRepository
	outbox      ports.OutboxRepository
	cache       ports.Cache
	calendar    ports.CalendarSource
	ticketLocks *lock.KeyedMutex
	workerLocks *lock.KeyedMutex
	statsGroup  singleflight.Group
	nowFn       func() time.Time
}

type Dependencies struct {
	Config   Config
	Logger   *slog.Logger
	Tickets  ports.TicketRepository
	Workers  ports.WorkerRepository
	Outbox   ports.OutboxRepository
	Cache    ports.Cache
	Calendar ports.CalendarSource
	Clock    func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "seva-dispatch"
	}
	if cfg.TicketIDPrefix == "" {
		cfg.TicketIDPrefix = domain.DefaultTicketPrefix
	}
	if cfg.MaxActiveTickets <= 0 {
		cfg.MaxActiveTickets = domain.MaxActiveTickets
	}
	if cfg.IDRetryAttempts <= 0 {
		cfg.IDRetryAttempts = 5
	}
	if cfg.CASRetryAttempts <= 0 {
		cfg.CASRetryAttempts = 5
	}
	if cfg.AnalyticsCacheTTL < 0 {
		cfg.AnalyticsCacheTTL = 0
	}
	if cfg.EscalationLease <= 0 {
		cfg.EscalationLease = 24 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := deps.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		cfg:         cfg,
		logger:      logger,
		tickets:     deps.Tickets,
		workers:     deps.Workers,
		outbox:      deps.Outbox,
		cache:       deps.Cache,
		calendar:    deps.Calendar,
		ticketLocks: lock.NewKeyedMutex(),
		workerLocks: lock.NewKeyedMutex(),
		nowFn:       nowFn,
	}
}

func (s *Service) now() time.Time {
	return s.nowFn().UTC()
}

// dayStart is midnight of t's calendar day in the configured location.
func (s *Service) dayStart(t time.Time) time.Time {
	local := t.In(s.cfg.Location)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Location)
}

// weekStart is midnight of the most recent Sunday in the configured location.
func (s *Service) weekStart(t time.Time) time.Time {
	day := s.dayStart(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}
