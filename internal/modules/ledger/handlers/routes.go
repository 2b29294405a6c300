package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/trades", func(r chi.Router) {
		r.Get("/", h.HandleGetTrades)
		r.Post("/", h.HandleExecuteTrade)
		r.Get("/summary", h.HandleGetTradesSummary)
		r.Get("/{id}", h.HandleGetTradeByID)
	})
}
