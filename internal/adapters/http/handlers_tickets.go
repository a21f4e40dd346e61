package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bhavishyjain/SevaAI/internal/application"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body")
		return false
	}
	return true
}

func (h *Handler) submitTicket(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req application.SubmitTicketInput
	if !decodeJSON(w, r, &req) {
		return
	}
	ticket, err := h.service.SubmitTicket(r.Context(), actor, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, ticket)
}

func (h *Handler) createTicket(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req application.CreateTicketInput
	if !decodeJSON(w, r, &req) {
		return
	}
	ticket, err := h.service.CreateTicket(r.Context(), actor, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, ticket)
}

func (h *Handler) createFromClassification(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req application.ClassifiedComplaintInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ReporterID == "" {
		req.ReporterID = actor.SubjectID
	}
	ticket, err := h.service.CreateFromClassification(r.Context(), actor, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, ticket)
}

func (h *Handler) getTicket(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	ticket, err := h.service.GetTicket(r.Context(), actor, chi.URLParam(r, "ticket_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, ticket)
}

func (h *Handler) listTickets(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	tickets, err := h.service.ListTickets(r.Context(), actor, application.ListTicketsInput{
		Department: q.Get("department"),
		Status:     q.Get("status"),
		WorkerID:   q.Get("worker_id"),
		Location:   q.Get("location"),
		Limit:      limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

func (h *Handler) recentTickets(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	tickets, err := h.service.RecentTickets(r.Context(), actor, r.URL.Query().Get("department"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, tickets)
}

func (h *Handler) transitionTicket(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req application.TransitionInput
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TicketID = chi.URLParam(r, "ticket_id")
	ticket, err := h.service.Transition(r.Context(), actor, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, ticket)
}

func (h *Handler) assignTicket(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req application.AssignInput
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	req.TicketID = chi.URLParam(r, "ticket_id")
	ticket, err := h.service.Assign(r.Context(), actor, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, ticket)
}

func (h *Handler) overrideTicket(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req application.OverrideInput
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TicketID = chi.URLParam(r, "ticket_id")
	ticket, err := h.service.Override(r.Context(), actor, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, ticket)
}
