// Package handlers provides the HTTP handler for the news feed.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/stonks/internal/clients/newsapi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// NewsService returns the current headlines
type NewsService interface {
	Latest(ctx context.Context) []newsapi.Article
}

// Handler handles news HTTP requests
type Handler struct {
	service NewsService
	log     zerolog.Logger
}

// NewHandler creates a new news handler
func NewHandler(service NewsService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "news").Logger(),
	}
}

// RegisterRoutes registers the news route
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/news", h.HandleGetNews)
}

// HandleGetNews handles GET /api/news
func (h *Handler) HandleGetNews(w http.ResponseWriter, r *http.Request) {
	articles := h.service.Latest(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": articles,
		"metadata": map[string]interface{}{
			"count":     len(articles),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
