package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/stonks/internal/database"
	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/reconcile"
	"github.com/aristath/stonks/internal/scheduler"
	testutil "github.com/aristath/stonks/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoop struct {
	status  reconcile.Status
	tickErr error
	ticks   int
}

func (f *fakeLoop) Status() reconcile.Status { return f.status }

func (f *fakeLoop) Tick(ctx context.Context) (*reconcile.Report, error) {
	f.ticks++
	if f.tickErr != nil {
		return nil, f.tickErr
	}
	return &reconcile.Report{At: time.Now()}, nil
}

type fakeSessions struct{ users []string }

func (f fakeSessions) Count() int { return len(f.users) }
func (f fakeSessions) ActiveUsers() []string { return f.users }

type fakeJobs struct {
	ran []string
	err error
}

func (f *fakeJobs) JobNames() []string { return []string{"prune_price_history", "reconcile_prices"} }

func (f *fakeJobs) RunByName(name string) error {
	if name == "missing" {
		return fmt.Errorf("%w: %s", scheduler.ErrUnknownJob, name)
	}
	f.ran = append(f.ran, name)
	return f.err
}

func newSystemRouter(loop ReconcileLoop, jobs JobRunner, dbs map[string]*database.DB) *chi.Mux {
	h := NewSystemHandlers(loop, fakeSessions{users: []string{"alice", "bob"}}, jobs, dbs, zerolog.Nop())
	h.stats = func() (float64, float64) { return 12.5, 40 }

	router := chi.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func serveSystem(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "prices")
	defer cleanup()

	loop := &fakeLoop{status: reconcile.Status{State: reconcile.StateIdle, Ticks: 7, Neutral: 1}}
	router := newSystemRouter(loop, &fakeJobs{}, map[string]*database.DB{"prices": db})

	w := serveSystem(router, http.MethodGet, "/system/status")
	require.Equal(t, http.StatusOK, w.Code)

	var response SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, int64(7), response.Reconcile.Ticks)
	assert.Equal(t, 2, response.Sessions)
	assert.Equal(t, 12.5, response.CPUPercent)
	assert.Equal(t, 40.0, response.RAMPercent)
	assert.Equal(t, []string{"prune_price_history", "reconcile_prices"}, response.Jobs)
	require.Len(t, response.Databases, 1)
	assert.Equal(t, "prices", response.Databases[0].Name)
	assert.True(t, response.Databases[0].Healthy)
}

func TestSystemHandlers_StatusDegradedWhenLoopClosed(t *testing.T) {
	loop := &fakeLoop{status: reconcile.Status{State: reconcile.StateClosed}}
	router := newSystemRouter(loop, &fakeJobs{}, nil)

	w := serveSystem(router, http.MethodGet, "/system/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestSystemHandlers_HandleTriggerReconcile(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"in flight", reconcile.ErrTickInFlight, http.StatusConflict},
		{"closed", reconcile.ErrClosed, http.StatusServiceUnavailable},
		{"store down", fmt.Errorf("failed to load prices: %w", domain.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := &fakeLoop{tickErr: tt.err}
			router := newSystemRouter(loop, &fakeJobs{}, nil)

			w := serveSystem(router, http.MethodPost, "/system/reconcile")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, 1, loop.ticks)
		})
	}
}

func TestSystemHandlers_HandleTriggerJob(t *testing.T) {
	jobs := &fakeJobs{}
	router := newSystemRouter(&fakeLoop{}, jobs, nil)

	w := serveSystem(router, http.MethodPost, "/system/jobs/prune_price_history")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"prune_price_history"}, jobs.ran)

	w = serveSystem(router, http.MethodPost, "/system/jobs/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	jobs.err = errors.New("disk full")
	w = serveSystem(router, http.MethodPost, "/system/jobs/prune_price_history")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "disk full")
}
