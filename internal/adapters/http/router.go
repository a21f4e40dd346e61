package http

import (
	"log/slog"
	"net/http"

	"github.com/bhavishyjain/SevaAI/internal/application"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *application.Service
	logger  *slog.Logger
}

func NewHandler(service *application.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(handler.logger))
	r.Use(loggingMiddleware(handler.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ready") })

	r.Route("/v1", func(r chi.Router) {
		r.Use(actorMiddleware)

		r.Post("/tickets/submit", handler.submitTicket)

		r.Group(func(r chi.Router) {
			r.Use(requireActorMiddleware)

			r.Route("/tickets", func(r chi.Router) {
				r.Post("/", handler.createTicket)
				r.Get("/", handler.listTickets)
				r.Post("/classified", handler.createFromClassification)
				r.Get("/recent", handler.recentTickets)
				r.Get("/{ticket_id}", handler.getTicket)
				r.Post("/{ticket_id}/status", handler.transitionTicket)
				r.Post("/{ticket_id}/assign", handler.assignTicket)
				r.Post("/{ticket_id}/override", handler.overrideTicket)
			})

			r.Route("/workers", func(r chi.Router) {
				r.Post("/", handler.createWorker)
				r.Get("/", handler.listWorkers)
				r.Get("/available", handler.availableWorkers)
				r.Get("/stats", handler.workerStats)
				r.Get("/{worker_id}", handler.getWorker)
				r.Patch("/{worker_id}", handler.updateWorker)
				r.Put("/{worker_id}/status", handler.updateWorkerStatus)
				r.Delete("/{worker_id}", handler.deactivateWorker)
				r.Get("/{worker_id}/dashboard", handler.workerDashboard)
			})

			r.Get("/analytics/stats", handler.stats)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/escalations/sweep", handler.sweepEscalations)
				r.Post("/workers/reset-window", handler.resetWindowCounters)
			})
		})
	})
	return r
}
