package http

import (
	"net/http"
	"strconv"

	"github.com/bhavishyjain/SevaAI/internal/application"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) createWorker(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req application.CreateWorkerInput
	if !decodeJSON(w, r, &req) {
		return
	}
	worker, err := h.service.CreateWorker(r.Context(), actor, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, worker)
}

func (h *Handler) listWorkers(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	q := r.URL.Query()
	activeOnly, _ := strconv.ParseBool(q.Get("active_only"))
	workers, err := h.service.ListWorkers(r.Context(), actor, application.ListWorkersInput{
		Department: q.Get("department"),
		WorkStatus: q.Get("work_status"),
		ActiveOnly: activeOnly,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"workers": workers,
		"count":   len(workers),
	})
}

func (h *Handler) availableWorkers(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	workers, err := h.service.AvailableWorkers(r.Context(), actor, r.URL.Query().Get("department"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, workers)
}

func (h *Handler) workerStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	q := r.URL.Query()
	availableOnly, _ := strconv.ParseBool(q.Get("available_only"))
	stats, err := h.service.WorkerStats(r.Context(), actor, q.Get("department"), availableOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats)
}

func (h *Handler) getWorker(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	worker, err := h.service.GetWorker(r.Context(), actor, chi.URLParam(r, "worker_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, worker)
}

func (h *Handler) updateWorker(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var req application.UpdateWorkerInput
	if !decodeJSON(w, r, &req) {
		return
	}
	req.WorkerID = chi.URLParam(r, "worker_id")
	worker, err := h.service.UpdateWorker(r.Context(), actor, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, worker)
}

func (h *Handler) updateWorkerStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	var body struct {
		WorkStatus string `json:"work_status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	worker, err := h.service.UpdateWorkerStatus(r.Context(), actor, chi.URLParam(r, "worker_id"), body.WorkStatus)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, worker)
}

func (h *Handler) deactivateWorker(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	worker, err := h.service.DeactivateWorker(r.Context(), actor, chi.URLParam(r, "worker_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, worker)
}

func (h *Handler) workerDashboard(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	dashboard, err := h.service.WorkerDashboard(r.Context(), actor, chi.URLParam(r, "worker_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, dashboard)
}
