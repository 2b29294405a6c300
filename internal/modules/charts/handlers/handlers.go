// Package handlers provides HTTP handlers for chart data.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/modules/charts"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ChartService is the subset of charts.Service the handlers use
type ChartService interface {
	GetSymbolChart(ctx context.Context, symbol string, points int, rangeStr string) (*charts.Chart, error)
	GetSparklines(ctx context.Context, bucket time.Duration) (map[string][]charts.ChartDataPoint, error)
}

// Handler handles chart HTTP requests
type Handler struct {
	service ChartService
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service ChartService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// HandleGetSparklines handles GET /api/charts/sparklines?bucket=1m
func (h *Handler) HandleGetSparklines(w http.ResponseWriter, r *http.Request) {
	bucket := time.Minute
	if raw := r.URL.Query().Get("bucket"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "bucket must be a positive duration")
			return
		}
		bucket = parsed
	}

	lines, err := h.service.GetSparklines(r.Context(), bucket)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get sparklines")
		h.writeError(w, http.StatusInternalServerError, "failed to get sparklines")
		return
	}

	h.writeJSON(w, http.StatusOK, lines)
}

// HandleGetSymbolChart handles GET /api/charts/{symbol}?points=N&range=1D
func (h *Handler) HandleGetSymbolChart(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	points := 0
	if raw := r.URL.Query().Get("points"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "points must be a positive integer")
			return
		}
		points = parsed
	}

	chart, err := h.service.GetSymbolChart(r.Context(), symbol, points, r.URL.Query().Get("range"))
	switch {
	case errors.Is(err, domain.ErrUnknownSymbol):
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, charts.ErrInvalidRange):
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get chart")
		h.writeError(w, http.StatusInternalServerError, "failed to get chart")
		return
	}

	h.writeJSON(w, http.StatusOK, chart)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
