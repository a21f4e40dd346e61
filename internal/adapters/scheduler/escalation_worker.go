package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/application"
	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/bhavishyjain/SevaAI/internal/ports"
)

const resetLeaseTTL = 8 * 24 * time.Hour

type Sweeper interface {
	SweepEscalations(ctx context.Context) (application.EscalationResult, error)
	ResetWindowCounters(ctx context.Context) (int, error)
}

// EscalationWorker runs the calendar sweep on a fixed interval and resets
// the weekly completion window once per week in loc. The per-week lease
// lives in the shared cache, so restarts and extra replicas do not reset
// twice or skip a week.
type EscalationWorker struct {
	logger   *slog.Logger
	sweeper  Sweeper
	leases   ports.Cache
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
	lastWeek time.Time
}

func NewEscalationWorker(logger *slog.Logger, sweeper Sweeper, leases ports.Cache, interval time.Duration, loc *time.Location, now func() time.Time) *EscalationWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &EscalationWorker{
		logger: logger, sweeper: sweeper, leases: leases, interval: interval, loc: loc, now: now,
	}
}

func (w *EscalationWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if err := w.processOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "scheduler iteration failed",
				"module", "scheduler.escalation_worker",
				"layer", "adapter",
				"operation", "process_once",
				"outcome", "failure",
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *EscalationWorker) processOnce(ctx context.Context) error {
	var errs []error
	if week := WeekStart(w.now(), w.loc); week.After(w.lastWeek) {
		if err := w.resetWindow(ctx, week); err != nil {
			errs = append(errs, err)
		} else {
			w.lastWeek = week
		}
	}
	if _, err := w.sweeper.SweepEscalations(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// resetWindow zeroes the window counters unless some process already did
// so for week. A failed reset gives the lease back for the next tick.
func (w *EscalationWorker) resetWindow(ctx context.Context, week time.Time) error {
	key := "window:reset:" + week.Format(domain.CalendarDateLayout)
	if w.leases != nil {
		n, err := w.leases.IncrWithTTL(ctx, key, resetLeaseTTL)
		if err != nil {
			return err
		}
		if n > 1 {
			return nil
		}
	}
	reset, err := w.sweeper.ResetWindowCounters(ctx)
	if err != nil {
		if w.leases != nil {
			_ = w.leases.Delete(context.WithoutCancel(ctx), key)
		}
		return err
	}
	w.logger.InfoContext(ctx, "weekly completion window reset",
		"module", "scheduler.escalation_worker",
		"layer", "adapter",
		"operation", "reset_window",
		"outcome", "success",
		"week_start", week.Format(domain.CalendarDateLayout),
		"workers_reset", reset,
	)
	return nil
}

// WeekStart is midnight of the Sunday on or before t in loc.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, -int(day.Weekday()))
}
