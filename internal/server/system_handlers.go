package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/scheduler"
)

// Database is the subset of *database.DB the status endpoint reads.
type Database interface {
	Name() string
	GetStats() (*database.Stats, error)
	HealthCheck(ctx context.Context) error
}

// JobScheduler reports and triggers background jobs.
type JobScheduler interface {
	Jobs() []scheduler.JobStatus
	RunNow(job scheduler.Job) error
}

// Capabilities describes optional features of this deployment.
type Capabilities struct {
	Provider           string `json:"provider"`
	ProviderConfigured bool   `json:"provider_configured"`
	ForecastInput      bool   `json:"forecast_input"`
	BackupConfigured   bool   `json:"backup_configured"`
	ChartRendering     bool   `json:"chart_rendering"`
	IndustryPE         bool   `json:"industry_pe"`
	LedgerBackend      string `json:"ledger_backend"`
	Benchmark          string `json:"benchmark"`
}

// DBInfo is the status of one database
type DBInfo struct {
	Name      string  `json:"name"`
	Healthy   bool    `json:"healthy"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	Error     string  `json:"error,omitempty"`
}

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status        string                `json:"status"` // "healthy" or "degraded"
	Version       string                `json:"version"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	CPUPercent    float64               `json:"cpu_percent"`
	RAMPercent    float64               `json:"ram_percent"`
	DataDirMB     float64               `json:"data_dir_mb"`
	Databases     []DBInfo              `json:"databases"`
	Jobs          []scheduler.JobStatus `json:"jobs"`
	CheckedAt     string                `json:"checked_at"`
}

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log          zerolog.Logger
	dataDir      string
	startupTime  time.Time
	databases    []Database
	scheduler    JobScheduler
	capabilities Capabilities
	hostStats    func() (float64, float64)

	mu   sync.RWMutex
	jobs map[string]scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases []Database,
	sched JobScheduler,
	capabilities Capabilities,
) *SystemHandlers {
	h := &SystemHandlers{
		log:          log.With().Str("component", "system_handlers").Logger(),
		dataDir:      dataDir,
		startupTime:  time.Now(),
		databases:    databases,
		scheduler:    sched,
		capabilities: capabilities,
		jobs:         make(map[string]scheduler.Job),
	}
	h.hostStats = h.getSystemStats
	return h
}

// SetJobs registers job references for manual triggering.
// Called after jobs are registered in main.go
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, j := range jobs {
		h.jobs[j.Name()] = j
	}
}

// HandleSystemStatus returns host, database and job status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, ramPct := h.hostStats()

	resp := SystemStatusResponse{
		Status:        "healthy",
		Version:       Version,
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPct,
		RAMPercent:    ramPct,
		DataDirMB:     h.getDirSize(h.dataDir),
		Databases:     make([]DBInfo, 0, len(h.databases)),
		Jobs:          []scheduler.JobStatus{},
		CheckedAt:     time.Now().Format(time.RFC3339),
	}

	for _, db := range h.databases {
		info := DBInfo{Name: db.Name(), Healthy: true}
		if err := db.HealthCheck(r.Context()); err != nil {
			info.Healthy = false
			info.Error = err.Error()
			resp.Status = "degraded"
		}
		if stats, err := db.GetStats(); err == nil {
			info.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			info.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
		} else {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
		}
		resp.Databases = append(resp.Databases, info)
	}

	if h.scheduler != nil {
		resp.Jobs = h.scheduler.Jobs()
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleCapabilities reports which optional features are configured
func (h *SystemHandlers) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.capabilities)
}

// HandleJobsStatus lists registered jobs and their last outcome
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// HandleTriggerJob runs a registered job immediately
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	h.mu.RLock()
	job, ok := h.jobs[name]
	h.mu.RUnlock()

	if !ok || h.scheduler == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + name})
		return
	}

	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"job":    name,
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "job": name})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	if dirPath == "" {
		return 0
	}
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats returns CPU and RAM usage percentages. The CPU sample
// window is kept short so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
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
