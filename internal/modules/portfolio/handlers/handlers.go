// Package handlers provides HTTP handlers for accounts and portfolio analytics.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// PortfolioService is the subset of portfolio.Service the handlers use
type PortfolioService interface {
	Register(ctx context.Context, userID string) (domain.Account, error)
	Summary(ctx context.Context, userID string) (*portfolio.Summary, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service  PortfolioService
	identity domain.IdentityProvider
	log      zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service PortfolioService, identity domain.IdentityProvider, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		identity: identity,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleRegister handles POST /api/accounts
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.service.Register(r.Context(), req.UserID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user_id":  account.UserID,
		"balance":  account.Balance,
		"holdings": account.Holdings,
		"display": map[string]string{
			"balance": portfolio.FormatMoney(account.Balance),
		},
	})
}

// HandleGetPortfolio returns the caller's balance, positions and analytics
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summary(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// HandleGetAnalytics returns only the derived analytics
func (h *Handler) HandleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summary(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":        summary.UserID,
		"total_invested": summary.Analytics.TotalInvested,
		"holding_splits": summary.Analytics.HoldingSplits,
		"total_value":    summary.Analytics.TotalValue,
		"computed_at":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) (*portfolio.Summary, bool) {
	userID, ok := h.identity.CurrentIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	return summary, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, portfolio.ErrInvalidUserID):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrAccountExists):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error().Err(err).Msg("Portfolio request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
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
