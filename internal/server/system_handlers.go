package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/pairlab/internal/database"
	"github.com/aristath/pairlab/internal/scheduler"
)

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	GoVersion     string  `json:"go_version"`
	Goroutines    int     `json:"goroutines"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	LastChecked   string  `json:"last_checked"`
}

// DBInfo describes one database file
type DBInfo struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	SizeMB  float64 `json:"size_mb"`
	Healthy bool    `json:"healthy"`
	Error   string  `json:"error,omitempty"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// JobInfo describes a scheduled job
type JobInfo struct {
	Name    string `json:"name"`
	NextRun string `json:"next_run,omitempty"`
}

// JobsStatusResponse represents scheduler status
type JobsStatusResponse struct {
	TotalJobs int       `json:"total_jobs"`
	Jobs      []JobInfo `json:"jobs"`
}

// SystemHandlers serves system monitoring and job trigger endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases map[string]*database.DB
	scheduler *scheduler.Scheduler
	startedAt time.Time
}

// NewSystemHandlers creates system handlers. Nil databases and a nil scheduler are tolerated.
func NewSystemHandlers(log zerolog.Logger, dataDir string, databases map[string]*database.DB, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		scheduler: sched,
		startedAt: time.Now(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleSystemStatus)
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/database-stats", h.HandleDatabaseStats)
		r.Get("/jobs", h.HandleJobsStatus)
		r.Post("/jobs/{name}", h.HandleTriggerJob)
	})
}

// HandleSystemStatus handles GET /api/health and GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	h.writeJSON(w, http.StatusOK, SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		GoVersion:     runtime.Version(),
		Goroutines:    runtime.NumGoroutine(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		LastChecked:   time.Now().Format(time.RFC3339),
	})
}

// HandleDatabaseStats handles GET /api/system/database-stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	response := DatabaseStatsResponse{
		Databases:   make([]DBInfo, 0, len(names)),
		LastChecked: time.Now().Format(time.RFC3339),
	}
	for _, name := range names {
		db := h.databases[name]
		if db == nil {
			continue
		}

		info := DBInfo{Name: name, Path: db.Path(), SizeMB: fileSizeMB(db.Path())}
		if err := db.HealthCheck(ctx); err != nil {
			info.Error = err.Error()
		} else {
			info.Healthy = true
		}
		response.TotalSizeMB += info.SizeMB
		response.Databases = append(response.Databases, info)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	response := JobsStatusResponse{Jobs: make([]JobInfo, 0)}
	if h.scheduler != nil {
		for _, name := range h.scheduler.Jobs() {
			info := JobInfo{Name: name}
			if next := h.scheduler.NextRun(name); !next.IsZero() {
				info.NextRun = next.Format(time.RFC3339)
			}
			response.Jobs = append(response.Jobs, info)
		}
	}
	response.TotalJobs = len(response.Jobs)

	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.scheduler == nil {
		http.Error(w, "Scheduler not running", http.StatusServiceUnavailable)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")
	err := h.scheduler.Trigger(name)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "success", "job": name})
}

// getSystemStats returns CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

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

// fileSizeMB sums a database file and its WAL sidecar
func fileSizeMB(path string) float64 {
	var total int64
	for _, p := range []string{path, path + "-wal"} {
		if info, err := os.Stat(filepath.Clean(p)); err == nil {
			total += info.Size()
		}
	}
	return float64(total) / 1024 / 1024
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
