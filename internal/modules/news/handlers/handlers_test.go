package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/stonks/internal/clients/newsapi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNews []newsapi.Article

func (s stubNews) Latest(ctx context.Context) []newsapi.Article { return s }

func TestHandleGetNews(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(stubNews{{Title: "Headline", Link: "https://example.com"}}, zerolog.Nop()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/news", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data     []newsapi.Article      `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Headline", body.Data[0].Title)
	assert.Equal(t, float64(1), body.Metadata["count"])
}

func TestHandleGetNews_Empty(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(stubNews{}, zerolog.Nop()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/news", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}
