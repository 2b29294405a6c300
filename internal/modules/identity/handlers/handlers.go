// Package handlers provides HTTP handlers for login and logout.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/modules/identity"
	"github.com/rs/zerolog"
)

// AccountLookup checks that an account exists before a session is opened
type AccountLookup interface {
	Get(ctx context.Context, userID string) (domain.Account, error)
}

// Handler handles session HTTP requests
type Handler struct {
	registry *identity.Registry
	accounts AccountLookup
	log      zerolog.Logger
}

// NewHandler creates a new session handler
func NewHandler(registry *identity.Registry, accounts AccountLookup, log zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		accounts: accounts,
		log:      log.With().Str("handler", "sessions").Logger(),
	}
}

// HandleLogin handles POST /api/sessions
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "user_id is required")
		return
	}

	if _, err := h.accounts.Get(r.Context(), userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrStoreUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to look up account")
			h.writeError(w, http.StatusInternalServerError, "failed to look up account")
		}
		return
	}

	session := h.registry.Open(userID)
	h.writeJSON(w, http.StatusCreated, session)
}

// HandleLogout handles DELETE /api/sessions
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	h.registry.Close(session.Token)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCurrent handles GET /api/sessions/me
func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    session.UserID,
		"created_at": session.CreatedAt,
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
