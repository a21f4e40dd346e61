package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bhavishyjain/SevaAI/internal/domain"
)

const maxRawTextLength = 5000

type ticketCreatedEventData struct {
	TicketID   string `json:"ticket_id"`
	Department string `json:"department"`
	Priority   string `json:"priority"`
	Source     string `json:"source"`
	Location   string `json:"location,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func (s *Service) CreateTicket(ctx context.Context, actor Actor, input CreateTicketInput) (domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return domain.Ticket{}, err
	}
	draft, err := buildDraft(input)
	if err != nil {
		return domain.Ticket{}, err
	}
	draft.ReporterID = strings.TrimSpace(actor.SubjectID)
	draft.Source = domain.SourceForm
	return s.createTicket(ctx, draft, actor.SubjectID, "complaint submitted")
}

// SubmitTicket accepts a form submission. Anonymous reporters must leave
// contact details.
func (s *Service) SubmitTicket(ctx context.Context, actor Actor, input SubmitTicketInput) (domain.Ticket, error) {
	draft, err := buildDraft(input.CreateTicketInput)
	if err != nil {
		return domain.Ticket{}, err
	}
	if err := domain.ValidateContact(input.Contact); err != nil {
		return domain.Ticket{}, err
	}
	reporter := strings.TrimSpace(actor.SubjectID)
	if reporter == "" && (input.Contact == nil || (input.Contact.Phone == "" && input.Contact.Email == "")) {
		return domain.Ticket{}, fmt.Errorf("%w: anonymous submissions require a contact phone or email", domain.ErrInvalidInput)
	}
	if input.Contact != nil {
		c := *input.Contact
		draft.Contact = &c
	}
	draft.ReporterID = reporter
	draft.Source = domain.SourceForm
	note := "complaint submitted via form"
	if reporter == "" {
		note = "anonymous complaint submitted via form"
	}
	return s.createTicket(ctx, draft, reporter, note)
}

// CreateFromClassification turns a newComplaint classifier result into a
// pending ticket.
func (s *Service) CreateFromClassification(ctx context.Context, actor Actor, input ClassifiedComplaintInput) (domain.Ticket, error) {
	c := input.Classification
	if c.Type != domain.ClassificationNewComplaint {
		return domain.Ticket{}, fmt.Errorf("%w: classification type %q does not create tickets", domain.ErrInvalidInput, c.Type)
	}
	draft, err := buildDraft(CreateTicketInput{
		RawText:     input.RawText,
		RefinedText: c.RefinedText,
		Department:  c.Department,
		Priority:    c.Priority,
		Location:    c.LocationName,
		Coordinates: input.Coordinates,
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	reporter := strings.TrimSpace(input.ReporterID)
	if reporter == "" {
		reporter = strings.TrimSpace(actor.SubjectID)
	}
	draft.ReporterID = reporter
	draft.Source = domain.SourceClassifier
	return s.createTicket(ctx, draft, actor.SubjectID, "complaint classified")
}

func (s *Service) GetTicket(ctx context.Context, actor Actor, ticketID string) (domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return domain.Ticket{}, err
	}
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return domain.Ticket{}, fmt.Errorf("%w: ticket id is required", domain.ErrInvalidInput)
	}
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	switch actor.Role {
	case RoleAdmin, RoleHead, RoleSystem:
	case RoleWorker:
		if ticket.AssignedWorkerID != actor.SubjectID {
			return domain.Ticket{}, domain.ErrForbidden
		}
	default:
		if ticket.ReporterID != actor.SubjectID {
			return domain.Ticket{}, domain.ErrForbidden
		}
	}
	return ticket, nil
}

// ListTickets scopes workers to their own tickets and citizens to their own
// reports.
func (s *Service) ListTickets(ctx context.Context, actor Actor, input ListTicketsInput) ([]domain.Ticket, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	filter := domain.TicketFilter{
		WorkerID:    strings.TrimSpace(input.WorkerID),
		Location:    strings.TrimSpace(input.Location),
		NewestFirst: true,
		Limit:       input.Limit,
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if raw := strings.TrimSpace(input.Department); raw != "" && raw != "all" {
		dept, err := domain.ParseDepartment(raw)
		if err != nil {
			return nil, err
		}
		filter.Department = dept
	}
	if raw := strings.TrimSpace(input.Status); raw != "" && raw != "all" {
		status, err := domain.ParseTicketStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Statuses = []domain.TicketStatus{status}
	}
	switch actor.Role {
	case RoleAdmin, RoleHead, RoleSystem:
		return s.tickets.List(ctx, filter)
	case RoleWorker:
		filter.WorkerID = actor.SubjectID
		return s.tickets.List(ctx, filter)
	default:
		filter.ReporterID = actor.SubjectID
		return s.tickets.List(ctx, filter)
	}
}

func buildDraft(input CreateTicketInput) (domain.Ticket, error) {
	raw := strings.TrimSpace(input.RawText)
	if raw == "" {
		return domain.Ticket{}, fmt.Errorf("%w: raw_text is required", domain.ErrInvalidInput)
	}
	if len(raw) > maxRawTextLength {
		return domain.Ticket{}, fmt.Errorf("%w: raw_text exceeds %d characters", domain.ErrInvalidInput, maxRawTextLength)
	}
	dept, err := domain.ParseDepartment(input.Department)
	if err != nil {
		return domain.Ticket{}, err
	}
	priority, err := domain.ParsePriority(input.Priority)
	if err != nil {
		return domain.Ticket{}, err
	}
	if err := domain.ValidateCoordinates(input.Coordinates); err != nil {
		return domain.Ticket{}, err
	}
	draft := domain.Ticket{
		RawText:     raw,
		RefinedText: strings.TrimSpace(input.RefinedText),
		Department:  dept,
		Priority:    priority,
		Location:    strings.TrimSpace(input.Location),
	}
	if input.Coordinates != nil {
		c := *input.Coordinates
		draft.Coordinates = &c
	}
	return draft, nil
}

// createTicket stores the draft as pending. A duplicate id is regenerated
// up to IDRetryAttempts times.
func (s *Service) createTicket(ctx context.Context, draft domain.Ticket, actorID, note string) (domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return domain.Ticket{}, err
	}
	now := s.now()
	draft.Status = domain.StatusPending
	draft.CreatedAt = now
	draft.UpdatedAt = now
	draft.Version = 1
	draft.History = []domain.HistoryEntry{{
		Status:    domain.StatusPending,
		ActorID:   strings.TrimSpace(actorID),
		Timestamp: now,
		Note:      note,
	}}

	var lastErr error
	for attempt := 0; attempt < s.cfg.IDRetryAttempts; attempt++ {
		draft.TicketID = domain.NewTicketID(s.cfg.TicketIDPrefix, now)
		err := s.tickets.Create(ctx, draft)
		if err == nil {
			s.enqueueEvent(ctx, EventTicketCreated, draft.TicketID, "data.ticket_id", ticketCreatedEventData{
				TicketID:   draft.TicketID,
				Department: string(draft.Department),
				Priority:   string(draft.Priority),
				Source:     string(draft.Source),
				Location:   draft.Location,
				CreatedAt:  now.Format(timeLayout),
			})
			return draft, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return domain.Ticket{}, err
		}
		lastErr = err
		s.logger.WarnContext(ctx, "ticket id collision, regenerating",
			"module", "application",
			"layer", "service",
			"operation", "create_ticket",
			"outcome", "retry",
			"ticket_id", draft.TicketID,
		)
	}
	return domain.Ticket{}, fmt.Errorf("ticket id generation exhausted after %d attempts: %w", s.cfg.IDRetryAttempts, lastErr)
}
