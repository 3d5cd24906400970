package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"dirsweep/internal/config"
	"dirsweep/internal/history"
	"dirsweep/internal/limiter"
	"dirsweep/internal/metrics"
	"dirsweep/internal/report"
	"dirsweep/internal/safety"
	"dirsweep/internal/sweep"
)

// Deps bundles the collaborators of one sweep cycle. Report and
// History are optional; a nil entry disables that output.
type Deps struct {
	Logger  *log.Logger
	Report  *report.Writer
	History *history.DB
}

// RunOnce performs a single sweep cycle: traversal, report, history,
// metrics
func RunOnce(ctx context.Context, cfg *config.Config, deps Deps) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	start := time.Now()
	metrics.RecordSweepRun()

	sweeper := sweep.NewSweeper(logger)
	sweeper.SetValidator(safety.NewValidator(cfg.Root, nil))
	if cfg.ResourceLimits.MaxCPUPercent > 0 {
		cpuLimiter := limiter.NewCPULimiter(cfg.ResourceLimits.MaxCPUPercent)
		sweeper.SetThrottle(cpuLimiter.Throttle)
	}

	res, err := sweeper.Sweep(cfg.SweepConfig())
	if err != nil {
		metrics.ErrorsTotal.Inc()
		return err
	}

	if deps.Report != nil {
		if err := deps.Report.WriteReport(cfg.SweepConfig(), res, start); err != nil {
			logger.Printf("failed to write sweep log: %v", err)
		}
	}

	// History is best-effort: a database failure never aborts a sweep.
	if deps.History != nil {
		recordHistory(deps.History, cfg, res, start, logger)
	}

	elapsed := time.Since(start)
	metrics.RecordResult(res, elapsed)

	files, dirs := res.Candidates()
	logger.Printf("sweep complete: candidates=%d/%d deleted=%d/%d freed=%d bytes errors=%d duration=%.3fs",
		files, dirs, res.FilesDeleted, res.DirsDeleted, res.BytesFreed, res.ErrorCount(), elapsed.Seconds())
	return nil
}

func recordHistory(db *history.DB, cfg *config.Config, res *sweep.Result, start time.Time, logger *log.Logger) {
	runID, err := db.BeginRun(start, cfg.Root, cfg.DryRun)
	if err != nil {
		logger.Printf("failed to record run to history: %v", err)
		return
	}
	for _, ev := range res.Events {
		if err := db.RecordEvent(runID, ev); err != nil {
			logger.Printf("failed to record event to history: %v", err)
		}
	}
	if err := db.FinishRun(runID, time.Now(), res); err != nil {
		logger.Printf("failed to finish run in history: %v", err)
	}
}

// Run performs an immediate cycle and then repeats at the configured
// interval until the context is cancelled. Cancellation takes effect
// between cycles; a sweep in flight runs to completion.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	if err := RunOnce(ctx, cfg, deps); err != nil {
		return err
	}

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := RunOnce(ctx, cfg, deps); err != nil {
				logger.Printf("error running sweep cycle: %v", err)
			}
		}
	}
}
