package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/stonks/internal/database"
	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/reconcile"
	"github.com/aristath/stonks/internal/scheduler"
)

// ReconcileLoop is the subset of reconcile.Loop the system handlers use
type ReconcileLoop interface {
	Status() reconcile.Status
	Tick(ctx context.Context) (*reconcile.Report, error)
}

// SessionCounter reports open sessions
type SessionCounter interface {
	Count() int
	ActiveUsers() []string
}

// JobRunner runs registered jobs by name
type JobRunner interface {
	JobNames() []string
	RunByName(name string) error
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string           `json:"status"` // healthy or degraded
	UptimeSeconds int64            `json:"uptime_seconds"`
	Reconcile     reconcile.Status `json:"reconcile"`
	Sessions      int              `json:"sessions"`
	ActiveUsers   int              `json:"active_users"`
	CPUPercent    float64          `json:"cpu_percent"`
	RAMPercent    float64          `json:"ram_percent"`
	Goroutines    int              `json:"goroutines"`
	Databases     []DBInfo         `json:"databases"`
	Jobs          []string         `json:"jobs"`
	LastChecked   string           `json:"last_checked"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
	Error   string  `json:"error,omitempty"`
}

// SystemHandlers serves operational status and manual triggers
type SystemHandlers struct {
	loop      ReconcileLoop
	sessions  SessionCounter
	jobs      JobRunner
	databases map[string]*database.DB
	startedAt time.Time
	stats     func() (float64, float64)
	log       zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	loop ReconcileLoop,
	sessions SessionCounter,
	jobs JobRunner,
	databases map[string]*database.DB,
	log zerolog.Logger,
) *SystemHandlers {
	h := &SystemHandlers{
		loop:      loop,
		sessions:  sessions,
		jobs:      jobs,
		databases: databases,
		startedAt: time.Now(),
		log:       log.With().Str("component", "system_handlers").Logger(),
	}
	h.stats = h.getSystemStats
	return h
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Post("/reconcile", h.HandleTriggerReconcile) // Run one tick now
		r.Post("/jobs/{name}", h.HandleTriggerJob)
	})
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.stats()
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Reconcile:     h.loop.Status(),
		Sessions:      h.sessions.Count(),
		ActiveUsers:   len(h.sessions.ActiveUsers()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Goroutines:    runtime.NumGoroutine(),
		Databases:     h.databaseInfo(r.Context()),
		Jobs:          h.jobs.JobNames(),
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	for _, db := range response.Databases {
		if !db.Healthy {
			response.Status = "degraded"
		}
	}
	if response.Reconcile.State == reconcile.StateClosed {
		response.Status = "degraded"
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerReconcile runs one reconciliation tick immediately
// POST /api/system/reconcile
func (h *SystemHandlers) HandleTriggerReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.loop.Tick(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrTickInFlight):
			h.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, reconcile.ErrClosed), errors.Is(err, domain.ErrStoreUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.log.Error().Err(err).Msg("Manual reconcile failed")
			h.writeError(w, http.StatusInternalServerError, "reconcile failed")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.jobs.RunByName(name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"job":     name,
		"message": "job completed",
	})
}

// databaseInfo reports size and health of every database, sorted by name
func (h *SystemHandlers) databaseInfo(ctx context.Context) []DBInfo {
	infos := make([]DBInfo, 0, len(h.databases))
	for name, db := range h.databases {
		info := DBInfo{Name: name, Path: db.Path(), Healthy: true}
		if stat, err := os.Stat(db.Path()); err == nil {
			info.SizeMB = float64(stat.Size()) / 1024 / 1024
		}

		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := db.QuickCheck(checkCtx); err != nil {
			info.Healthy = false
			info.Error = err.Error()
		}
		cancel()

		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// getSystemStats calculates CPU and RAM usage percentages.
// Samples CPU over 100ms so the status call stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	// Get memory statistics (instant, no blocking)
	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
