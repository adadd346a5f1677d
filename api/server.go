/*
server.go - HTTP router and middleware configuration

ROUTER: chi, with the standard middleware stack (Logger, Recoverer,
RequestID) and CORS for the branch dashboard frontend.

ROUTE GROUPS:
  /api/branches/{branchID}/*   Availability, reservations, intake, search
  /api/transfers/*             Reservation lifecycle transitions
  /api/admin/*                 Manual sweep trigger
  /api/health                  Liveness

SECURITY NOTE:
  Authentication/authorization is owned by the surrounding platform; this
  core mounts behind its gateway.
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/branches/{branchID}", func(r chi.Router) {
			r.Post("/availability/{itemID}", h.GetAvailability)
			r.Post("/availability/batch", h.GetAvailabilityBatch)
			r.Post("/reservations", h.CreateReservation)
			r.Post("/lots", h.AddLot)
			r.Get("/aid-items/search", h.SearchAidItems)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Put("/{transferID}/status", h.SetTransferStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
		})
	})

	return r
}
