package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/stonks/internal/config"
	"github.com/aristath/stonks/internal/di"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *di.Container) {
	t.Helper()

	cfg := &config.Config{
		DataDir:               t.TempDir(),
		TickInterval:          time.Hour,
		RandomnessTimeout:     time.Second,
		RandomnessSource:      config.RandomnessLocal,
		AccountStore:          config.AccountStoreMemory,
		StartingBalance:       decimal.NewFromInt(10000),
		Symbols:               config.DefaultSymbols(),
		NewsCacheTTL:          time.Minute,
		StoreRetryAttempts:    1,
		StoreRetryBaseDelay:   time.Millisecond,
		PriceHistoryRetention: time.Hour,
	}

	container, _, err := di.Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	srv := New(Config{Log: zerolog.Nop(), Port: 0, DevMode: true, Container: container})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		container.Close()
	})
	return ts, container
}

func do(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		resp := do(t, http.MethodGet, ts.URL+path, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		var body map[string]interface{}
		decode(t, resp, &body)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "stonks", body["service"])
	}
}

func TestServer_RegisterLoginTradeFlow(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/accounts", "", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/accounts", "", map[string]string{"user_id": "alice"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/sessions", "", map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	decode(t, resp, &session)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "alice", session.UserID)

	// Anonymous callers cannot read a portfolio
	resp = do(t, http.MethodGet, ts.URL+"/api/portfolio", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/trades", session.Token, map[string]interface{}{
		"symbol":   "SigmaStock",
		"side":     "BUY",
		"quantity": 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/trades", session.Token, map[string]interface{}{
		"symbol":   "SigmaStock",
		"side":     "SELL",
		"quantity": 50,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/portfolio", session.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		UserID    string          `json:"user_id"`
		Balance   decimal.Decimal `json:"balance"`
		Positions []struct {
			Symbol   string `json:"symbol"`
			Quantity int64  `json:"quantity"`
		} `json:"positions"`
	}
	decode(t, resp, &summary)
	assert.Equal(t, "alice", summary.UserID)
	assert.True(t, decimal.NewFromInt(9500).Equal(summary.Balance), summary.Balance.String())
	require.Len(t, summary.Positions, 1)
	assert.Equal(t, "SigmaStock", summary.Positions[0].Symbol)
	assert.Equal(t, int64(5), summary.Positions[0].Quantity)

	resp = do(t, http.MethodDelete, ts.URL+"/api/sessions", session.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/portfolio", session.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_ManualReconcileUpdatesPrices(t *testing.T) {
	ts, container := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/system/reconcile", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report struct {
		Prices map[string]decimal.Decimal `json:"prices"`
	}
	decode(t, resp, &report)

	snapshot := container.PriceTable.Snapshot()
	require.Len(t, report.Prices, len(snapshot))
	for symbol, price := range snapshot {
		assert.True(t, price.Equal(report.Prices[symbol]), symbol)
	}

	durable, err := container.PriceRepo.GetAll(context.Background())
	require.NoError(t, err)
	for symbol, price := range snapshot {
		assert.True(t, price.Equal(durable[symbol]), symbol)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/system/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status SystemStatusResponse
	decode(t, resp, &status)
	assert.Equal(t, int64(1), status.Reconcile.Ticks)
	assert.Len(t, status.Databases, 4)
}

func TestServer_EventStreamRequiresSession(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/events/stream", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/events/stream?token=bogus", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
