// Package handlers provides HTTP handlers for the live price table.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/modules/prices"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// LiveTable is the live price table served by the handlers
type LiveTable interface {
	domain.PriceReader
	Entries() []domain.PriceEntry
}

// HistoryReader reads recorded price history
type HistoryReader interface {
	GetHistory(ctx context.Context, symbol string, limit int) ([]prices.HistoryPoint, error)
}

// Handler handles price HTTP requests
type Handler struct {
	table   LiveTable
	history HistoryReader
	log     zerolog.Logger
}

// NewHandler creates a new price handler
func NewHandler(table LiveTable, history HistoryReader, log zerolog.Logger) *Handler {
	return &Handler{
		table:   table,
		history: history,
		log:     log.With().Str("handler", "prices").Logger(),
	}
}

// HandleGetPrices handles GET /api/prices
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	entries := h.table.Entries()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": entries,
		"metadata": map[string]interface{}{
			"count":     len(entries),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetPrice handles GET /api/prices/{symbol}
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	price, ok := h.table.Get(symbol)
	if !ok {
		h.writeError(w, http.StatusNotFound, domain.ErrUnknownSymbol.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": domain.PriceEntry{Symbol: symbol, Price: price},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetHistory handles GET /api/prices/{symbol}/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if _, ok := h.table.Get(symbol); !ok {
		h.writeError(w, http.StatusNotFound, domain.ErrUnknownSymbol.Error())
		return
	}

	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > 1000 {
			parsed = 1000
		}
		limit = parsed
	}

	points, err := h.history.GetHistory(r.Context(), symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to query price history")
		h.writeError(w, http.StatusInternalServerError, "failed to query price history")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": points,
		"metadata": map[string]interface{}{
			"symbol":    symbol,
			"count":     len(points),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
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
