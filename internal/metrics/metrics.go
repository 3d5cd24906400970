package metrics

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dirsweep/internal/sweep"
)

var (
	initOnce    sync.Once
	serverMutex sync.Mutex
	currentSrv  *http.Server

	// FilesDeletedTotal tracks total files deleted
	FilesDeletedTotal prometheus.Counter

	// DirsDeletedTotal tracks total empty directories deleted
	DirsDeletedTotal prometheus.Counter

	// BytesFreedTotal tracks total bytes freed across all sweeps
	BytesFreedTotal prometheus.Counter

	// ErrorsTotal tracks delete and access errors
	ErrorsTotal prometheus.Counter

	// SweepDuration tracks how long sweep passes take
	SweepDuration prometheus.Histogram

	// SweepLastRunTimestamp records Unix timestamp of the last sweep
	SweepLastRunTimestamp prometheus.Gauge
)

// Init initializes and registers all metrics with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		FilesDeletedTotal = NewCounter(
			"dirsweep_files_deleted_total",
			"Total number of stale files deleted.",
		)
		DirsDeletedTotal = NewCounter(
			"dirsweep_dirs_deleted_total",
			"Total number of empty directories deleted.",
		)
		BytesFreedTotal = NewCounter(
			"dirsweep_bytes_freed_total",
			"Total bytes freed by deleted files.",
		)
		ErrorsTotal = NewCounter(
			"dirsweep_errors_total",
			"Total delete and access errors during sweeps.",
		)
		SweepDuration = NewDurationHistogram(
			"dirsweep_sweep_duration_seconds",
			"Duration of sweep passes in seconds.",
		)
		SweepLastRunTimestamp = NewGauge(
			"dirsweep_last_run_timestamp",
			"Timestamp of the last sweep run (Unix epoch seconds).",
		)

		prometheus.MustRegister(FilesDeletedTotal)
		prometheus.MustRegister(DirsDeletedTotal)
		prometheus.MustRegister(BytesFreedTotal)
		prometheus.MustRegister(ErrorsTotal)
		prometheus.MustRegister(SweepDuration)
		prometheus.MustRegister(SweepLastRunTimestamp)

		SweepLastRunTimestamp.Set(0)
	})
}

// RecordSweepRun updates the last run timestamp to current time
func RecordSweepRun() {
	SweepLastRunTimestamp.Set(float64(time.Now().Unix()))
}

// RecordResult folds one sweep result into the counters
func RecordResult(res *sweep.Result, elapsed time.Duration) {
	FilesDeletedTotal.Add(float64(res.FilesDeleted))
	DirsDeletedTotal.Add(float64(res.DirsDeleted))
	BytesFreedTotal.Add(float64(res.BytesFreed))
	ErrorsTotal.Add(float64(res.ErrorCount()))
	SweepDuration.Observe(elapsed.Seconds())
}

// StartServer starts the metrics HTTP server on the specified address
// Exposes /metrics (Prometheus) and /health
func StartServer(addr string, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	currentSrv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := currentSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
		}
	}()
	logger.Printf("metrics server listening on %s", addr)
}

// StopServer shuts down the metrics server if running
func StopServer() {
	serverMutex.Lock()
	defer serverMutex.Unlock()
	if currentSrv != nil {
		currentSrv.Close()
		currentSrv = nil
	}
}
