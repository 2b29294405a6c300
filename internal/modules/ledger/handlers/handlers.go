// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Executor applies transactions
type Executor interface {
	Execute(ctx context.Context, userID string, intent domain.TransactionIntent) (*ledger.ExecuteResult, error)
}

// TradeReader reads the trade journal
type TradeReader interface {
	ListByUser(ctx context.Context, userID string, symbol string, limit int) ([]ledger.Trade, error)
	GetByID(ctx context.Context, userID, id string) (ledger.Trade, error)
	Summary(ctx context.Context, userID string) (ledger.TradeSummary, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	executor Executor
	trades   TradeReader
	identity domain.IdentityProvider
	log      zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(
	executor Executor,
	trades TradeReader,
	identity domain.IdentityProvider,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		executor: executor,
		trades:   trades,
		identity: identity,
		log:      log.With().Str("handler", "ledger").Logger(),
	}
}

type tradeRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
}

// HandleExecuteTrade handles POST /api/trades
func (h *Handler) HandleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.CurrentIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	side, err := domain.ParseSide(req.Side)
	if err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.executor.Execute(r.Context(), userID, domain.TransactionIntent{
		Symbol:   req.Symbol,
		Side:     side,
		Quantity: req.Quantity,
	})
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("user_id", userID).Msg("Trade failed")
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandleGetTrades handles GET /api/trades
func (h *Handler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.CurrentIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit := 100 // default
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	trades, err := h.trades.ListByUser(r.Context(), userID, r.URL.Query().Get("symbol"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query trades")
		h.writeError(w, http.StatusInternalServerError, "failed to query trades")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	}))
}

// HandleGetTradeByID handles GET /api/trades/{id}
func (h *Handler) HandleGetTradeByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.CurrentIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	trade, err := h.trades.GetByID(r.Context(), userID, chi.URLParam(r, "id"))
	if errors.Is(err, ledger.ErrTradeNotFound) {
		h.writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query trade")
		h.writeError(w, http.StatusInternalServerError, "failed to query trade")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(trade))
}

// HandleGetTradesSummary handles GET /api/trades/summary
func (h *Handler) HandleGetTradesSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.identity.CurrentIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	summary, err := h.trades.Summary(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query trades summary")
		h.writeError(w, http.StatusInternalServerError, "failed to query trades summary")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(summary))
}

func statusForError(err error) int {
	switch {
	case domain.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
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
