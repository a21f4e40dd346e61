package http

import (
	"net/http"

	"github.com/bhavishyjain/SevaAI/internal/application"
)

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	q := r.URL.Query()
	stats, err := h.service.Stats(r.Context(), actor, application.StatsInput{
		Timeframe:  q.Get("timeframe"),
		Department: q.Get("department"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats)
}

func (h *Handler) sweepEscalations(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	if actor.Role != application.RoleAdmin {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
		return
	}
	result, err := h.service.SweepEscalations(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "manual escalation sweep incomplete",
			"module", "http",
			"layer", "adapter",
			"operation", "sweep_escalations",
			"outcome", "partial",
			"request_id", actor.RequestID,
			"error", err,
		)
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"status":  "partial",
			"data":    result,
			"message": err.Error(),
		})
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (h *Handler) resetWindowCounters(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFromContext(r.Context())
	if actor.Role != application.RoleAdmin {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "admin role required")
		return
	}
	n, err := h.service.ResetWindowCounters(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"workers_reset": n})
}
