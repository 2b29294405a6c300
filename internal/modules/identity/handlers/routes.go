package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers session routes. The registry middleware must
// already be installed on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.HandleLogin)
		r.Delete("/", h.HandleLogout)
		r.Get("/me", h.HandleCurrent)
	})
}
