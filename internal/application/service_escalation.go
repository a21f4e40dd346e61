package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
)

type priorityEscalatedEventData struct {
	EventName string   `json:"event_name"`
	Date      string   `json:"date"`
	Location  string   `json:"location"`
	Priority  string   `json:"priority"`
	TicketIDs []string `json:"ticket_ids"`
}

// SweepEscalations raises the priority of tickets at locations named by
// calendar events dated today. A failing event does not stop the others.
// When a cache is configured each event is applied by the first successful
// sweep of its day; events added to the calendar later in the day are still
// picked up by the next sweep.
func (s *Service) SweepEscalations(ctx context.Context) (EscalationResult, error) {
	now := s.now()
	date := now.In(s.cfg.Location).Format(domain.CalendarDateLayout)
	result := EscalationResult{Date: date, TicketsUpdated: []string{}}
	if s.calendar == nil {
		return result, nil
	}
	events, err := s.calendar.Events(ctx)
	if err != nil {
		return result, fmt.Errorf("load calendar: %w", err)
	}

	var errs []error
	for _, ev := range events {
		if !ev.OccursOn(now.In(s.cfg.Location)) {
			continue
		}
		result.EventsMatched++
		leaseKey := "escalation:lease:" + date + ":" + ev.Name
		if !s.takeEscalationLease(ctx, leaseKey) {
			result.EventsSkipped++
			continue
		}
		ids, err := s.escalateEvent(ctx, ev, now)
		result.TicketsUpdated = append(result.TicketsUpdated, ids...)
		if err != nil {
			if s.cache != nil {
				_ = s.cache.Delete(context.WithoutCancel(ctx), leaseKey)
			}
			errs = append(errs, fmt.Errorf("event %q: %w", ev.Name, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.ErrorContext(ctx, "escalation sweep finished with errors",
			"module", "application",
			"layer", "service",
			"operation", "sweep_escalations",
			"outcome", "partial",
			"date", date,
			"events_matched", result.EventsMatched,
			"events_skipped", result.EventsSkipped,
			"tickets_updated", len(result.TicketsUpdated),
			"error", err,
		)
		return result, err
	}
	s.logger.InfoContext(ctx, "escalation sweep finished",
		"module", "application",
		"layer", "service",
		"operation", "sweep_escalations",
		"outcome", "success",
		"date", date,
		"events_matched", result.EventsMatched,
		"events_skipped", result.EventsSkipped,
		"tickets_updated", len(result.TicketsUpdated),
	)
	return result, nil
}

// takeEscalationLease reports whether this sweep should apply the event
// behind key. Without a cache, or when the cache fails, every sweep applies
// it; UpdatePriorityByLocation leaves already escalated tickets alone.
func (s *Service) takeEscalationLease(ctx context.Context, key string) bool {
	if s.cache == nil {
		return true
	}
	n, err := s.cache.IncrWithTTL(ctx, key, s.cfg.EscalationLease)
	if err != nil {
		s.logger.WarnContext(ctx, "escalation lease unavailable, sweeping anyway",
			"module", "application",
			"layer", "service",
			"operation", "sweep_escalations",
			"outcome", "degraded",
			"error", err,
		)
		return true
	}
	return n == 1
}

func (s *Service) escalateEvent(ctx context.Context, ev domain.CalendarEvent, now time.Time) ([]string, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	priority, err := domain.ParsePriority(string(ev.Priority))
	if err != nil {
		return nil, err
	}
	var updated []string
	var errs []error
	for _, location := range ev.Locations {
		if location == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		ids, err := s.tickets.UpdatePriorityByLocation(ctx, location, priority, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("location %q: %w", location, err))
			continue
		}
		if len(ids) == 0 {
			continue
		}
		updated = append(updated, ids...)
		s.enqueueEvent(ctx, EventTicketPriorityEscalated, location, "data.location", priorityEscalatedEventData{
			EventName: ev.Name,
			Date:      ev.Date,
			Location:  location,
			Priority:  string(priority),
			TicketIDs: ids,
		})
	}
	return updated, errors.Join(errs...)
}
