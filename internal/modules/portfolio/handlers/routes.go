package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/accounts", h.HandleRegister) // Public: create account with starting balance

	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)           // Balance, positions, analytics
		r.Get("/analytics", h.HandleGetAnalytics) // Analytics only
	})
}
